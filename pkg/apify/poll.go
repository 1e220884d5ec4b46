package apify

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	defaultPollInitial = 5 * time.Second
	defaultPollCap     = time.Minute
	defaultPollTimeout = time.Hour
)

// ErrRunFailed is returned when a run ends in any state but SUCCEEDED.
var ErrRunFailed = eris.New("apify: run did not succeed")

// PollOption configures polling behavior.
type PollOption func(*pollConfig)

type pollConfig struct {
	initial time.Duration
	cap     time.Duration
	timeout time.Duration
}

func defaultPollConfig() pollConfig {
	return pollConfig{
		initial: defaultPollInitial,
		cap:     defaultPollCap,
		timeout: defaultPollTimeout,
	}
}

// WithPollInterval overrides the initial poll interval.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.initial = d
		}
	}
}

// WithPollCap overrides the maximum poll interval.
func WithPollCap(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.cap = d
		}
	}
}

// WithPollTimeout overrides the default timeout (applied only if the parent
// context has no deadline).
func WithPollTimeout(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// PollRun polls GetRun until the run succeeds, ends otherwise, or the
// context expires. Uses exponential backoff: 5s -> 10s -> 20s -> 40s -> 1m
// (capped).
func PollRun(ctx context.Context, client Client, runID string, opts ...PollOption) (*Run, error) {
	cfg := defaultPollConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	interval := cfg.initial
	for {
		run, err := client.GetRun(ctx, runID)
		if err != nil {
			return nil, eris.Wrapf(err, "apify: poll run %s", runID)
		}

		if run.Status == StatusSucceeded {
			return run, nil
		}
		if run.Terminal() {
			return run, eris.Wrapf(ErrRunFailed, "run %s is %s %s", runID, run.Status, run.StatusMessage)
		}

		zap.L().Debug("apify: run not finished",
			zap.String("run_id", runID),
			zap.String("status", run.Status),
			zap.Duration("next_check", interval),
		)

		select {
		case <-ctx.Done():
			return nil, eris.Wrapf(ctx.Err(), "apify: poll run %s timed out", runID)
		case <-time.After(interval):
		}

		interval *= 2
		if interval > cfg.cap {
			interval = cfg.cap
		}
	}
}

// RunAndCollect starts actorID with input, waits for it to succeed and
// returns the items of its default dataset.
func RunAndCollect(ctx context.Context, client Client, actorID string, input any, opts ...PollOption) ([]map[string]any, error) {
	run, err := client.RunActor(ctx, actorID, input)
	if err != nil {
		return nil, err
	}
	zap.L().Info("apify: actor run started",
		zap.String("actor", actorID),
		zap.String("run_id", run.ID),
	)

	if run.Status != StatusSucceeded {
		run, err = PollRun(ctx, client, run.ID, opts...)
		if err != nil {
			return nil, err
		}
	}

	items, err := client.DatasetItems(ctx, run.DefaultDatasetID)
	if err != nil {
		return nil, err
	}
	zap.L().Info("apify: dataset fetched",
		zap.String("run_id", run.ID),
		zap.String("dataset_id", run.DefaultDatasetID),
		zap.Int("items", len(items)),
	)
	return items, nil
}
