package batch

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/finfluencer-cli/internal/cost"
	"github.com/sells-group/finfluencer-cli/internal/model"
	"github.com/sells-group/finfluencer-cli/internal/store"
	"github.com/sells-group/finfluencer-cli/pkg/anthropic"
)

const defaultMaxTokens = 4096

// AnthropicRunner runs tasks as an Anthropic message batch and writes the
// results in the same line schema as the OpenAI output file.
type AnthropicRunner struct {
	client    anthropic.Client
	ledger    ledger
	poll      PollSettings
	maxTokens int64
	calc      *cost.Calculator
}

// AnthropicOption configures an AnthropicRunner.
type AnthropicOption func(*AnthropicRunner)

// WithAnthropicStore records job transitions in s.
func WithAnthropicStore(s store.Store) AnthropicOption {
	return func(r *AnthropicRunner) { r.ledger = ledger{store: s} }
}

// WithAnthropicPoll overrides the poll settings.
func WithAnthropicPoll(p PollSettings) AnthropicOption {
	return func(r *AnthropicRunner) { r.poll = p }
}

// WithMaxTokens sets the completion token limit per request.
func WithMaxTokens(n int64) AnthropicOption {
	return func(r *AnthropicRunner) {
		if n > 0 {
			r.maxTokens = n
		}
	}
}

// WithAnthropicCost logs estimated cost with calc.
func WithAnthropicCost(calc *cost.Calculator) AnthropicOption {
	return func(r *AnthropicRunner) { r.calc = calc }
}

// NewAnthropicRunner creates a runner backed by client.
func NewAnthropicRunner(client anthropic.Client, opts ...AnthropicOption) *AnthropicRunner {
	r := &AnthropicRunner{client: client, maxTokens: defaultMaxTokens}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *AnthropicRunner) Run(ctx context.Context, tasks []model.PromptTask, outputPath string) ([]model.LLMResponse, error) {
	if len(tasks) == 0 {
		return nil, eris.New("batch: no tasks to submit")
	}

	taskPath := TaskFilePath(outputPath)
	if err := WriteTaskFile(taskPath, tasks); err != nil {
		return nil, err
	}

	job := &model.BatchJob{
		Provider:   ProviderAnthropic,
		InputFile:  taskPath,
		OutputFile: outputPath,
		TaskCount:  len(tasks),
	}
	if err := r.ledger.create(ctx, job); err != nil {
		return nil, err
	}
	if err := r.submit(ctx, job, tasks); err != nil {
		r.ledger.fail(job, err)
		return nil, err
	}
	return r.await(ctx, job, modelOf(tasks))
}

func (r *AnthropicRunner) Resume(ctx context.Context, jobID, outputPath string) ([]model.LLMResponse, error) {
	job, err := r.ledger.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Provider != ProviderAnthropic {
		return nil, eris.Errorf("batch: job %s belongs to provider %s", jobID, job.Provider)
	}
	if outputPath != "" {
		job.OutputFile = outputPath
	}

	tasks, taskErr := ReadTaskFile(job.InputFile)

	switch job.Status {
	case model.JobStatusCompleted:
		return ReadResultFile(job.OutputFile)
	case model.JobStatusFailed:
		return nil, eris.Wrapf(ErrJobFailed, "job %s: %s", job.ID, job.Error)
	case model.JobStatusCreated:
		if taskErr != nil {
			return nil, taskErr
		}
		if err := r.submit(ctx, job, tasks); err != nil {
			r.ledger.fail(job, err)
			return nil, err
		}
	}

	zap.L().Info("batch: resuming job",
		zap.String("job_id", job.ID),
		zap.String("batch_id", job.RemoteID),
	)
	return r.await(ctx, job, modelOf(tasks))
}

func (r *AnthropicRunner) submit(ctx context.Context, job *model.BatchJob, tasks []model.PromptTask) error {
	items := make([]anthropic.BatchRequestItem, len(tasks))
	for i, t := range tasks {
		items[i] = anthropic.BatchRequestItem{CustomID: t.CustomID, Params: r.messageRequest(t)}
	}

	remote, err := r.client.CreateBatch(ctx, anthropic.BatchRequest{Requests: items})
	if err != nil {
		return eris.Wrap(err, "batch: create job")
	}
	job.RemoteID = remote.ID

	zap.L().Info("batch: job submitted",
		zap.String("job_id", job.ID),
		zap.String("batch_id", remote.ID),
		zap.Int("tasks", job.TaskCount),
	)
	return r.ledger.transition(ctx, job, model.JobStatusSubmitted)
}

func (r *AnthropicRunner) messageRequest(t model.PromptTask) anthropic.MessageRequest {
	temp := t.Temperature
	return anthropic.MessageRequest{
		Model:       t.Model,
		MaxTokens:   r.maxTokens,
		System:      t.SystemPrompt,
		Messages:    []anthropic.Message{{Role: model.RoleUser, Content: t.UserPrompt}},
		Temperature: &temp,
	}
}

func (r *AnthropicRunner) await(ctx context.Context, job *model.BatchJob, modelName string) ([]model.LLMResponse, error) {
	remote, err := anthropic.PollBatch(ctx, r.client, job.RemoteID,
		anthropic.WithPollInterval(r.poll.interval()),
		anthropic.WithPollTimeout(r.poll.MaxWait),
	)
	switch {
	case errors.Is(err, anthropic.ErrBatchFailed):
		cause := eris.Wrapf(ErrJobFailed, "batch %s is %s", job.RemoteID, remote.ProcessingStatus)
		r.ledger.fail(job, cause)
		return nil, cause
	case err != nil:
		return nil, eris.Wrapf(err, "batch: wait for job %s", job.ID)
	}

	iter, err := r.client.GetBatchResults(ctx, job.RemoteID)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: fetch results for %s", job.RemoteID)
	}
	collected, err := anthropic.CollectBatchResults(iter)
	if err != nil {
		return nil, err
	}
	zap.L().Info("batch: results collected",
		zap.String("batch_id", job.RemoteID),
		zap.Int("succeeded", len(collected.Succeeded)),
		zap.Int("failed", len(collected.Failures)),
		zap.Int64("input_tokens", collected.Usage.InputTokens),
		zap.Int64("output_tokens", collected.Usage.OutputTokens),
	)
	if len(collected.Succeeded) == 0 {
		cause := eris.Wrapf(ErrJobFailed, "batch %s ended with no successful requests", job.RemoteID)
		r.ledger.fail(job, cause)
		return nil, cause
	}

	responses := orderedResponses(job, collected.Succeeded)
	if err := WriteResultFile(job.OutputFile, modelName, responses); err != nil {
		return nil, err
	}

	job.ResponseCount = len(responses)
	if err := r.ledger.transition(ctx, job, model.JobStatusCompleted); err != nil {
		return nil, err
	}
	logUsage(r.calc, ProviderAnthropic, modelName, true, responses)
	return responses, nil
}

// orderedResponses lists results in task file order so the output file is
// deterministic. Results whose id is not in the task file are appended.
func orderedResponses(job *model.BatchJob, results map[string]*anthropic.MessageResponse) []model.LLMResponse {
	toResponse := func(id string, m *anthropic.MessageResponse) model.LLMResponse {
		return model.LLMResponse{
			CustomID:     id,
			Text:         m.Text(),
			InputTokens:  m.Usage.InputTokens,
			OutputTokens: m.Usage.OutputTokens,
		}
	}

	out := make([]model.LLMResponse, 0, len(results))
	used := make(map[string]bool, len(results))
	if tasks, err := ReadTaskFile(job.InputFile); err == nil {
		for _, t := range tasks {
			if m, ok := results[t.CustomID]; ok && !used[t.CustomID] {
				out = append(out, toResponse(t.CustomID, m))
				used[t.CustomID] = true
			}
		}
	}
	for id, m := range results {
		if !used[id] {
			out = append(out, toResponse(id, m))
		}
	}
	return out
}
