package openai

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const defaultPollInterval = 5 * time.Minute

// ErrBatchFailed is returned when a batch ends in failed, expired or
// cancelled state.
var ErrBatchFailed = eris.New("openai: batch did not complete")

// PollOption configures batch polling behavior.
type PollOption func(*pollConfig)

type pollConfig struct {
	interval time.Duration
	timeout  time.Duration
	onStatus func(*Batch)
}

// WithPollInterval overrides the fixed poll interval.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithPollTimeout bounds the total wait. Zero waits until the batch ends or
// ctx is cancelled.
func WithPollTimeout(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.timeout = d
	}
}

// WithStatusHook is called with every polled status.
func WithStatusHook(fn func(*Batch)) PollOption {
	return func(c *pollConfig) {
		c.onStatus = fn
	}
}

// PollBatch polls GetBatch on a fixed interval until the batch completes.
// Failed, expired and cancelled batches return ErrBatchFailed along with
// the last batch state.
func PollBatch(ctx context.Context, client Client, batchID string, opts ...PollOption) (*Batch, error) {
	cfg := pollConfig{interval: defaultPollInterval}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	ticker := time.NewTicker(cfg.interval)
	defer ticker.Stop()

	for {
		batch, err := client.GetBatch(ctx, batchID)
		if err != nil {
			return nil, eris.Wrapf(err, "openai: poll batch %s", batchID)
		}
		if cfg.onStatus != nil {
			cfg.onStatus(batch)
		}

		switch batch.Status {
		case StatusCompleted:
			return batch, nil
		case StatusFailed, StatusExpired, StatusCancelled, StatusCancelling:
			return batch, eris.Wrapf(ErrBatchFailed, "batch %s is %s", batchID, batch.Status)
		}

		zap.L().Info("openai: batch not finished",
			zap.String("batch_id", batchID),
			zap.String("status", batch.Status),
			zap.Int64("completed", batch.RequestCounts.Completed),
			zap.Int64("total", batch.RequestCounts.Total),
			zap.Duration("next_check", cfg.interval),
		)

		select {
		case <-ctx.Done():
			return nil, eris.Wrapf(ctx.Err(), "openai: poll batch %s stopped", batchID)
		case <-ticker.C:
		}
	}
}
