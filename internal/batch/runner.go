package batch

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/finfluencer-cli/internal/cost"
	"github.com/sells-group/finfluencer-cli/internal/model"
	"github.com/sells-group/finfluencer-cli/internal/store"
)

// Provider names recorded in the job ledger.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

const defaultPollInterval = 5 * time.Minute

// ErrJobFailed is returned when the remote job ends in a failed, expired or
// cancelled state. It is fatal for the run: no partial results are salvaged.
var ErrJobFailed = eris.New("batch: remote job failed")

// Runner executes a set of tasks as one remote batch job and persists the
// raw results to outputPath.
type Runner interface {
	Run(ctx context.Context, tasks []model.PromptTask, outputPath string) ([]model.LLMResponse, error)
}

// Resumer continues polling a job recorded in the ledger by an earlier run.
type Resumer interface {
	Resume(ctx context.Context, jobID, outputPath string) ([]model.LLMResponse, error)
}

// PollSettings controls the remote job poll loop.
type PollSettings struct {
	// Interval between status checks. Default: 5m.
	Interval time.Duration
	// MaxWait bounds the total wait. Zero polls until the job ends or the
	// context is cancelled.
	MaxWait time.Duration
}

func (p PollSettings) interval() time.Duration {
	if p.Interval > 0 {
		return p.Interval
	}
	return defaultPollInterval
}

// ledger records job transitions. A nil store disables recording.
type ledger struct {
	store store.Store
}

func (l ledger) create(ctx context.Context, job *model.BatchJob) error {
	if l.store == nil {
		job.Status = model.JobStatusCreated
		return nil
	}
	return eris.Wrap(l.store.CreateJob(ctx, job), "batch: record job")
}

func (l ledger) load(ctx context.Context, id string) (*model.BatchJob, error) {
	if l.store == nil {
		return nil, eris.New("batch: resume requires a job store")
	}
	job, err := l.store.GetJob(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: load job %s", id)
	}
	return job, nil
}

func (l ledger) transition(ctx context.Context, job *model.BatchJob, to model.JobStatus) error {
	job.Status = to
	if l.store == nil {
		return nil
	}
	return eris.Wrapf(l.store.UpdateJob(ctx, job), "batch: record job %s as %s", job.ID, to)
}

// fail marks job failed. The cause is the error already being returned, so a
// ledger error is only logged. The write uses a fresh context since ctx may
// be the one that was cancelled.
func (l ledger) fail(job *model.BatchJob, cause error) {
	if job.Status.Terminal() {
		return
	}
	job.Error = cause.Error()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := l.transition(ctx, job, model.JobStatusFailed); err != nil {
		zap.L().Warn("batch: could not record job failure",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
	}
}

func logUsage(calc *cost.Calculator, provider, modelName string, isBatch bool, responses []model.LLMResponse) {
	var in, out int64
	for _, r := range responses {
		in += r.InputTokens
		out += r.OutputTokens
	}
	fields := []zap.Field{
		zap.String("provider", provider),
		zap.String("model", modelName),
		zap.Bool("batch", isBatch),
		zap.Int("responses", len(responses)),
		zap.Int64("input_tokens", in),
		zap.Int64("output_tokens", out),
	}
	if calc != nil {
		fields = append(fields, zap.Float64("estimated_cost_usd", calc.Provider(provider, modelName, isBatch, in, out)))
	}
	zap.L().Info("batch: usage", fields...)
}

func modelOf(tasks []model.PromptTask) string {
	if len(tasks) == 0 {
		return ""
	}
	return tasks[0].Model
}
