package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/finfluencer-cli/internal/model"
	"github.com/sells-group/finfluencer-cli/internal/store"
	"github.com/sells-group/finfluencer-cli/pkg/anthropic"
	"github.com/sells-group/finfluencer-cli/pkg/openai"
)

// echoOpenAI is an in-memory batch service that answers every task with its
// own user prompt once the batch has been polled pendingPolls times.
type echoOpenAI struct {
	mu           sync.Mutex
	uploaded     []byte
	statuses     []string
	polls        int
	pendingPolls int
	finalStatus  string
	noOutput     bool
	uploadErr    error
}

func (e *echoOpenAI) CreateChatCompletion(context.Context, openai.ChatRequest) (*openai.ChatResponse, error) {
	return nil, eris.New("not used")
}

func (e *echoOpenAI) UploadBatchFile(_ context.Context, path string) (string, error) {
	if e.uploadErr != nil {
		return "", e.uploadErr
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	e.mu.Lock()
	e.uploaded = data
	e.mu.Unlock()
	return "file-in", nil
}

func (e *echoOpenAI) CreateBatch(_ context.Context, req openai.BatchRequest) (*openai.Batch, error) {
	if req.InputFileID != "file-in" {
		return nil, eris.Errorf("unexpected input file %s", req.InputFileID)
	}
	return &openai.Batch{ID: "batch_1", Status: openai.StatusValidating, InputFileID: req.InputFileID}, nil
}

func (e *echoOpenAI) GetBatch(_ context.Context, id string) (*openai.Batch, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.polls++
	if e.polls <= e.pendingPolls {
		return &openai.Batch{ID: id, Status: openai.StatusInProgress}, nil
	}
	b := &openai.Batch{ID: id, Status: e.finalStatus}
	if e.finalStatus == openai.StatusCompleted && !e.noOutput {
		b.OutputFileID = "file-out"
	}
	if e.finalStatus == openai.StatusFailed {
		b.Errors = []string{"invalid_request: bad line"}
	}
	return b, nil
}

func (e *echoOpenAI) DownloadFile(_ context.Context, fileID string, w io.Writer) error {
	if fileID != "file-out" {
		return eris.Errorf("unknown file %s", fileID)
	}
	e.mu.Lock()
	in := e.uploaded
	e.mu.Unlock()

	for _, raw := range bytes.Split(bytes.TrimSpace(in), []byte("\n")) {
		var task model.TaskLine
		if err := json.Unmarshal(raw, &task); err != nil {
			return err
		}
		line := model.ResultLine{
			CustomID: task.CustomID,
			Response: model.ResultResponse{StatusCode: 200, Body: model.ResultBody{
				Choices: []model.ResultChoice{{Message: model.ChatMessage{Role: "assistant", Content: task.Body.Messages[1].Content}}},
				Usage:   model.ResultUsage{PromptTokens: 10, CompletionTokens: 2},
			}},
		}
		out, _ := json.Marshal(line)
		if _, err := w.Write(append(out, '\n')); err != nil {
			return err
		}
	}
	return nil
}

func (e *echoOpenAI) Transcribe(context.Context, string, string) (string, error) {
	return "", eris.New("not used")
}

func newLedger(t *testing.T) store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "jobs.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	return st
}

func sampleTasks() []model.PromptTask {
	return []model.PromptTask{
		{CustomID: "111", Model: "gpt-4o", SystemPrompt: "s1", UserPrompt: "answer one"},
		{CustomID: "222", Model: "gpt-4o", SystemPrompt: "s2", UserPrompt: "answer two"},
	}
}

func fastPoll() PollSettings {
	return PollSettings{Interval: time.Millisecond}
}

func TestOpenAIRunner_EchoRoundTrip(t *testing.T) {
	client := &echoOpenAI{pendingPolls: 2, finalStatus: openai.StatusCompleted}
	ledger := newLedger(t)
	out := filepath.Join(t.TempDir(), "batch-files", "results.jsonl")

	r := NewOpenAIRunner(client, WithOpenAIStore(ledger), WithOpenAIPoll(fastPoll()))
	responses, err := r.Run(context.Background(), sampleTasks(), out)
	require.NoError(t, err)

	require.Len(t, responses, 2)
	assert.Equal(t, "111", responses[0].CustomID)
	assert.Equal(t, "answer one", responses[0].Text)
	assert.Equal(t, "222", responses[1].CustomID)
	assert.Equal(t, "answer two", responses[1].Text)
	assert.Equal(t, 3, client.polls)

	assert.FileExists(t, out)
	assert.FileExists(t, TaskFilePath(out))

	jobs, err := ledger.ListJobs(context.Background(), store.JobFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, model.JobStatusCompleted, jobs[0].Status)
	assert.Equal(t, "batch_1", jobs[0].RemoteID)
	assert.Equal(t, "file-in", jobs[0].InputFileID)
	assert.Equal(t, 2, jobs[0].TaskCount)
	assert.Equal(t, 2, jobs[0].ResponseCount)
}

func TestOpenAIRunner_FailedJobIsFatal(t *testing.T) {
	for _, status := range []string{openai.StatusFailed, openai.StatusExpired, openai.StatusCancelled} {
		t.Run(status, func(t *testing.T) {
			client := &echoOpenAI{finalStatus: status}
			ledger := newLedger(t)

			r := NewOpenAIRunner(client, WithOpenAIStore(ledger), WithOpenAIPoll(fastPoll()))
			_, err := r.Run(context.Background(), sampleTasks(), filepath.Join(t.TempDir(), "out.jsonl"))
			require.ErrorIs(t, err, ErrJobFailed)

			jobs, err := ledger.ListJobs(context.Background(), store.JobFilter{Status: model.JobStatusFailed})
			require.NoError(t, err)
			require.Len(t, jobs, 1)
			assert.Contains(t, jobs[0].Error, status)
		})
	}
}

func TestOpenAIRunner_CompletedWithoutOutput(t *testing.T) {
	client := &echoOpenAI{finalStatus: openai.StatusCompleted, noOutput: true}

	r := NewOpenAIRunner(client, WithOpenAIPoll(fastPoll()))
	_, err := r.Run(context.Background(), sampleTasks(), filepath.Join(t.TempDir(), "out.jsonl"))
	require.ErrorIs(t, err, ErrJobFailed)
}

func TestOpenAIRunner_UploadErrorMarksFailed(t *testing.T) {
	client := &echoOpenAI{uploadErr: eris.New("upload refused")}
	ledger := newLedger(t)

	r := NewOpenAIRunner(client, WithOpenAIStore(ledger))
	_, err := r.Run(context.Background(), sampleTasks(), filepath.Join(t.TempDir(), "out.jsonl"))
	require.Error(t, err)

	jobs, err := ledger.ListJobs(context.Background(), store.JobFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, model.JobStatusFailed, jobs[0].Status)
	assert.Contains(t, jobs[0].Error, "upload refused")
}

func TestOpenAIRunner_MaxWaitLeavesJobResumable(t *testing.T) {
	client := &echoOpenAI{pendingPolls: 1 << 30, finalStatus: openai.StatusCompleted}
	ledger := newLedger(t)
	out := filepath.Join(t.TempDir(), "out.jsonl")

	r := NewOpenAIRunner(client, WithOpenAIStore(ledger),
		WithOpenAIPoll(PollSettings{Interval: time.Millisecond, MaxWait: 20 * time.Millisecond}))
	_, err := r.Run(context.Background(), sampleTasks(), out)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	jobs, err := ledger.ListJobs(context.Background(), store.JobFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, model.JobStatusSubmitted, jobs[0].Status)

	// The remote job finishes; resuming picks it up without resubmitting.
	client.mu.Lock()
	client.pendingPolls = 0
	client.mu.Unlock()

	resp, err := r.Resume(context.Background(), jobs[0].ID, "")
	require.NoError(t, err)
	assert.Len(t, resp, 2)

	job, err := ledger.GetJob(context.Background(), jobs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, job.Status)

	// A completed job is re-read from disk.
	again, err := r.Resume(context.Background(), job.ID, "")
	require.NoError(t, err)
	assert.Equal(t, resp, again)
}

func TestOpenAIRunner_ResumeRequiresStore(t *testing.T) {
	r := NewOpenAIRunner(&echoOpenAI{})
	_, err := r.Resume(context.Background(), "job", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job store")
}

func TestOpenAIRunner_NoTasks(t *testing.T) {
	r := NewOpenAIRunner(&echoOpenAI{})
	_, err := r.Run(context.Background(), nil, filepath.Join(t.TempDir(), "out.jsonl"))
	require.Error(t, err)
}

// echoAnthropic answers every batch request with its user message.
type echoAnthropic struct {
	mu       sync.Mutex
	requests []anthropic.BatchRequestItem
	status   string
	errored  map[string]bool
}

func (e *echoAnthropic) CreateMessage(context.Context, anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	return nil, eris.New("not used")
}

func (e *echoAnthropic) CreateBatch(_ context.Context, req anthropic.BatchRequest) (*anthropic.BatchResponse, error) {
	e.mu.Lock()
	e.requests = req.Requests
	e.mu.Unlock()
	return &anthropic.BatchResponse{ID: "msgbatch_1", ProcessingStatus: "in_progress"}, nil
}

func (e *echoAnthropic) GetBatch(_ context.Context, id string) (*anthropic.BatchResponse, error) {
	return &anthropic.BatchResponse{ID: id, ProcessingStatus: e.status}, nil
}

func (e *echoAnthropic) GetBatchResults(context.Context, string) (anthropic.BatchResultIterator, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	items := make([]anthropic.BatchResultItem, 0, len(e.requests))
	for i := len(e.requests) - 1; i >= 0; i-- {
		req := e.requests[i]
		if e.errored[req.CustomID] {
			items = append(items, anthropic.BatchResultItem{CustomID: req.CustomID, Type: "errored"})
			continue
		}
		items = append(items, anthropic.BatchResultItem{
			CustomID: req.CustomID,
			Type:     "succeeded",
			Message: &anthropic.MessageResponse{
				Content: []anthropic.ContentBlock{{Type: "text", Text: req.Params.Messages[0].Content}},
				Usage:   anthropic.TokenUsage{InputTokens: 7, OutputTokens: 3},
			},
		})
	}
	return &sliceIterator{items: items, idx: -1}, nil
}

type sliceIterator struct {
	items []anthropic.BatchResultItem
	idx   int
}

func (s *sliceIterator) Next() bool {
	s.idx++
	return s.idx < len(s.items)
}
func (s *sliceIterator) Item() anthropic.BatchResultItem { return s.items[s.idx] }
func (s *sliceIterator) Err() error                      { return nil }
func (s *sliceIterator) Close() error                    { return nil }

func TestAnthropicRunner_EchoRoundTrip(t *testing.T) {
	client := &echoAnthropic{status: "ended", errored: map[string]bool{"222": true}}
	ledger := newLedger(t)
	out := filepath.Join(t.TempDir(), "results.jsonl")

	r := NewAnthropicRunner(client, WithAnthropicStore(ledger), WithAnthropicPoll(fastPoll()), WithMaxTokens(512))
	tasks := append(sampleTasks(), model.PromptTask{CustomID: "333", Model: "gpt-4o", SystemPrompt: "s3", UserPrompt: "answer three"})
	responses, err := r.Run(context.Background(), tasks, out)
	require.NoError(t, err)

	require.Len(t, responses, 2)
	assert.Equal(t, "111", responses[0].CustomID)
	assert.Equal(t, "answer one", responses[0].Text)
	assert.Equal(t, "333", responses[1].CustomID)

	require.Len(t, client.requests, 3)
	assert.Equal(t, int64(512), client.requests[0].Params.MaxTokens)
	assert.Equal(t, "s1", client.requests[0].Params.System)

	// The result file uses the shared schema.
	fromDisk, err := ReadResultFile(out)
	require.NoError(t, err)
	assert.Equal(t, responses, fromDisk)

	jobs, err := ledger.ListJobs(context.Background(), store.JobFilter{Provider: ProviderAnthropic})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, model.JobStatusCompleted, jobs[0].Status)
	assert.Equal(t, 2, jobs[0].ResponseCount)
}

func TestAnthropicRunner_ExpiredIsFatal(t *testing.T) {
	client := &echoAnthropic{status: "expired"}

	r := NewAnthropicRunner(client, WithAnthropicPoll(fastPoll()))
	_, err := r.Run(context.Background(), sampleTasks(), filepath.Join(t.TempDir(), "out.jsonl"))
	require.ErrorIs(t, err, ErrJobFailed)
}

func TestAnthropicRunner_AllErrored(t *testing.T) {
	client := &echoAnthropic{status: "ended", errored: map[string]bool{"111": true, "222": true}}

	r := NewAnthropicRunner(client, WithAnthropicPoll(fastPoll()))
	_, err := r.Run(context.Background(), sampleTasks(), filepath.Join(t.TempDir(), "out.jsonl"))
	require.ErrorIs(t, err, ErrJobFailed)
}

func TestAnthropicRunner_ResumeWrongProvider(t *testing.T) {
	ledger := newLedger(t)
	job := &model.BatchJob{Provider: ProviderOpenAI}
	require.NoError(t, ledger.CreateJob(context.Background(), job))

	r := NewAnthropicRunner(&echoAnthropic{}, WithAnthropicStore(ledger))
	_, err := r.Resume(context.Background(), job.ID, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider openai")
}
