package anthropic

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Message batch processing statuses. Expired and canceled are reported by
// older API versions in place of an ended batch.
const (
	StatusInProgress = "in_progress"
	StatusCanceling  = "canceling"
	StatusEnded      = "ended"
	StatusCanceled   = "canceled"
	StatusExpired    = "expired"
)

// Batch result item types.
const (
	ResultSucceeded = "succeeded"
	ResultErrored   = "errored"
	ResultCanceled  = "canceled"
	ResultExpired   = "expired"
)

const defaultBatchPollInterval = 5 * time.Minute

// ErrBatchFailed is returned when a batch expires or is canceled.
var ErrBatchFailed = eris.New("anthropic: batch did not complete")

// PollOption configures PollBatch.
type PollOption func(*pollConfig)

type pollConfig struct {
	interval time.Duration
	backoff  time.Duration
	timeout  time.Duration
}

// WithPollInterval sets the wait between status checks.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithBackoff doubles the interval after each check, up to limit. Without
// it the interval stays fixed.
func WithBackoff(limit time.Duration) PollOption {
	return func(c *pollConfig) {
		c.backoff = limit
	}
}

// WithPollTimeout bounds the total wait. Zero waits until the batch ends or
// ctx is cancelled.
func WithPollTimeout(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.timeout = d
	}
}

// PollBatch checks the batch until it ends, fails or ctx is done. Expired
// and canceled batches return the last status together with ErrBatchFailed.
func PollBatch(ctx context.Context, client Client, batchID string, opts ...PollOption) (*BatchResponse, error) {
	cfg := pollConfig{interval: defaultBatchPollInterval}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	interval := cfg.interval
	for {
		batch, err := client.GetBatch(ctx, batchID)
		if err != nil {
			return nil, eris.Wrapf(err, "anthropic: poll batch %s", batchID)
		}

		switch batch.ProcessingStatus {
		case StatusEnded:
			return batch, nil
		case StatusExpired:
			return batch, eris.Wrapf(ErrBatchFailed, "batch %s expired", batchID)
		case StatusCanceled, StatusCanceling:
			return batch, eris.Wrapf(ErrBatchFailed, "batch %s canceled", batchID)
		}

		zap.L().Info("anthropic: batch not finished",
			zap.String("batch_id", batchID),
			zap.String("status", batch.ProcessingStatus),
			zap.Int64("processing", batch.RequestCounts.Processing),
			zap.Int64("succeeded", batch.RequestCounts.Succeeded),
			zap.Duration("next_check", interval),
		)

		select {
		case <-ctx.Done():
			return nil, eris.Wrapf(ctx.Err(), "anthropic: poll batch %s stopped", batchID)
		case <-time.After(interval):
		}

		if cfg.backoff > 0 {
			interval = min(interval*2, cfg.backoff)
		}
	}
}

// BatchFailure is a batch item that did not succeed.
type BatchFailure struct {
	CustomID string
	Type     string
}

// BatchCollectResult holds the drained results of a batch.
type BatchCollectResult struct {
	Succeeded map[string]*MessageResponse
	Failures  []BatchFailure
	Usage     TokenUsage
}

// CollectBatchResults drains iter. Succeeded messages are keyed by
// custom_id and their token usage is summed; every other item is logged and
// listed in Failures.
func CollectBatchResults(iter BatchResultIterator) (*BatchCollectResult, error) {
	defer iter.Close() //nolint:errcheck

	result := &BatchCollectResult{Succeeded: make(map[string]*MessageResponse)}
	for iter.Next() {
		item := iter.Item()
		if item.Type == ResultSucceeded && item.Message != nil {
			result.Succeeded[item.CustomID] = item.Message
			result.Usage.InputTokens += item.Message.Usage.InputTokens
			result.Usage.OutputTokens += item.Message.Usage.OutputTokens
			continue
		}
		result.Failures = append(result.Failures, BatchFailure{CustomID: item.CustomID, Type: item.Type})
		zap.L().Warn("anthropic: batch item failed",
			zap.String("custom_id", item.CustomID),
			zap.String("type", item.Type),
		)
	}
	if err := iter.Err(); err != nil {
		return nil, eris.Wrap(err, "anthropic: collect batch results")
	}

	if len(result.Failures) > 0 {
		zap.L().Warn("anthropic: batch had failed items",
			zap.Int("succeeded", len(result.Succeeded)),
			zap.Int("failed", len(result.Failures)),
		)
	}
	return result, nil
}
