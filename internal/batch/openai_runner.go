package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/finfluencer-cli/internal/cost"
	"github.com/sells-group/finfluencer-cli/internal/model"
	"github.com/sells-group/finfluencer-cli/internal/store"
	"github.com/sells-group/finfluencer-cli/pkg/openai"
)

// OpenAIRunner runs tasks through the OpenAI batch API: upload the task
// file, create the job, poll, download the output file.
type OpenAIRunner struct {
	client           openai.Client
	ledger           ledger
	poll             PollSettings
	completionWindow string
	calc             *cost.Calculator
}

// OpenAIOption configures an OpenAIRunner.
type OpenAIOption func(*OpenAIRunner)

// WithOpenAIStore records job transitions in s.
func WithOpenAIStore(s store.Store) OpenAIOption {
	return func(r *OpenAIRunner) { r.ledger = ledger{store: s} }
}

// WithOpenAIPoll overrides the poll settings.
func WithOpenAIPoll(p PollSettings) OpenAIOption {
	return func(r *OpenAIRunner) { r.poll = p }
}

// WithCompletionWindow overrides the 24h completion window.
func WithCompletionWindow(w string) OpenAIOption {
	return func(r *OpenAIRunner) {
		if w != "" {
			r.completionWindow = w
		}
	}
}

// WithOpenAICost logs estimated cost with calc.
func WithOpenAICost(calc *cost.Calculator) OpenAIOption {
	return func(r *OpenAIRunner) { r.calc = calc }
}

// NewOpenAIRunner creates a runner backed by client.
func NewOpenAIRunner(client openai.Client, opts ...OpenAIOption) *OpenAIRunner {
	r := &OpenAIRunner{client: client, completionWindow: "24h"}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run writes the task file next to outputPath, submits it and blocks until
// the job finishes.
func (r *OpenAIRunner) Run(ctx context.Context, tasks []model.PromptTask, outputPath string) ([]model.LLMResponse, error) {
	if len(tasks) == 0 {
		return nil, eris.New("batch: no tasks to submit")
	}

	taskPath := TaskFilePath(outputPath)
	if err := WriteTaskFile(taskPath, tasks); err != nil {
		return nil, err
	}

	job := &model.BatchJob{
		Provider:   ProviderOpenAI,
		InputFile:  taskPath,
		OutputFile: outputPath,
		TaskCount:  len(tasks),
	}
	if err := r.ledger.create(ctx, job); err != nil {
		return nil, err
	}

	if err := r.submit(ctx, job); err != nil {
		r.ledger.fail(job, err)
		return nil, err
	}
	return r.await(ctx, job, modelOf(tasks))
}

// Resume continues a job created by an earlier Run. Jobs that already
// completed are re-parsed from their output file.
func (r *OpenAIRunner) Resume(ctx context.Context, jobID, outputPath string) ([]model.LLMResponse, error) {
	job, err := r.ledger.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Provider != ProviderOpenAI {
		return nil, eris.Errorf("batch: job %s belongs to provider %s", jobID, job.Provider)
	}
	if outputPath != "" {
		job.OutputFile = outputPath
	}

	switch job.Status {
	case model.JobStatusCompleted:
		return ReadResultFile(job.OutputFile)
	case model.JobStatusFailed:
		return nil, eris.Wrapf(ErrJobFailed, "job %s: %s", job.ID, job.Error)
	case model.JobStatusCreated:
		if err := r.submit(ctx, job); err != nil {
			r.ledger.fail(job, err)
			return nil, err
		}
	}

	zap.L().Info("batch: resuming job",
		zap.String("job_id", job.ID),
		zap.String("batch_id", job.RemoteID),
	)
	return r.await(ctx, job, "")
}

func (r *OpenAIRunner) submit(ctx context.Context, job *model.BatchJob) error {
	fileID, err := r.client.UploadBatchFile(ctx, job.InputFile)
	if err != nil {
		return eris.Wrapf(err, "batch: upload %s", job.InputFile)
	}
	job.InputFileID = fileID

	remote, err := r.client.CreateBatch(ctx, openai.BatchRequest{
		InputFileID:      fileID,
		Endpoint:         model.BatchEndpoint,
		CompletionWindow: r.completionWindow,
	})
	if err != nil {
		return eris.Wrap(err, "batch: create job")
	}
	job.RemoteID = remote.ID

	zap.L().Info("batch: job submitted",
		zap.String("job_id", job.ID),
		zap.String("batch_id", remote.ID),
		zap.String("input_file_id", fileID),
		zap.Int("tasks", job.TaskCount),
	)
	return r.ledger.transition(ctx, job, model.JobStatusSubmitted)
}

func (r *OpenAIRunner) await(ctx context.Context, job *model.BatchJob, modelName string) ([]model.LLMResponse, error) {
	remote, err := openai.PollBatch(ctx, r.client, job.RemoteID,
		openai.WithPollInterval(r.poll.interval()),
		openai.WithPollTimeout(r.poll.MaxWait),
		openai.WithStatusHook(func(b *openai.Batch) {
			zap.L().Debug("batch: job status",
				zap.String("job_id", job.ID),
				zap.String("batch_id", b.ID),
				zap.String("status", b.Status),
			)
		}),
	)
	switch {
	case errors.Is(err, openai.ErrBatchFailed):
		cause := eris.Wrapf(ErrJobFailed, "batch %s is %s%s", job.RemoteID, remote.Status, remoteErrors(remote))
		r.ledger.fail(job, cause)
		return nil, cause
	case err != nil:
		// Job stays submitted so it can be resumed.
		return nil, eris.Wrapf(err, "batch: wait for job %s", job.ID)
	}

	if remote.OutputFileID == "" {
		cause := eris.Wrapf(ErrJobFailed, "batch %s completed without an output file%s", job.RemoteID, remoteErrors(remote))
		r.ledger.fail(job, cause)
		return nil, cause
	}

	if err := r.download(ctx, remote.OutputFileID, job.OutputFile); err != nil {
		return nil, err
	}
	responses, err := ReadResultFile(job.OutputFile)
	if err != nil {
		return nil, err
	}

	job.ResponseCount = len(responses)
	if err := r.ledger.transition(ctx, job, model.JobStatusCompleted); err != nil {
		return nil, err
	}

	if remote.RequestCounts.Failed > 0 {
		zap.L().Warn("batch: some requests failed",
			zap.String("batch_id", remote.ID),
			zap.Int64("failed", remote.RequestCounts.Failed),
			zap.String("error_file_id", remote.ErrorFileID),
		)
	}
	logUsage(r.calc, ProviderOpenAI, modelName, true, responses)
	return responses, nil
}

func (r *OpenAIRunner) download(ctx context.Context, fileID, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "batch: create dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "batch: create output file %s", path)
	}
	if err := r.client.DownloadFile(ctx, fileID, f); err != nil {
		f.Close() //nolint:errcheck
		return eris.Wrapf(err, "batch: download %s", fileID)
	}
	return eris.Wrapf(f.Close(), "batch: close output file %s", path)
}

func remoteErrors(b *openai.Batch) string {
	if b == nil || len(b.Errors) == 0 {
		return ""
	}
	return ": " + strings.Join(b.Errors, "; ")
}
