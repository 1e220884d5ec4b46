package batch

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/finfluencer-cli/internal/model"
	"github.com/sells-group/finfluencer-cli/internal/resilience"
	"github.com/sells-group/finfluencer-cli/pkg/anthropic"
	"github.com/sells-group/finfluencer-cli/pkg/openai"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, t model.PromptTask) (model.LLMResponse, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(model.LLMResponse), args.Error(1)
}

func (m *mockCompleter) Provider() string { return "mock" }

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
}

func TestRowQuery_SentinelOnFailure(t *testing.T) {
	tasks := []model.PromptTask{
		{CustomID: "1", SystemPrompt: "s", UserPrompt: "u1"},
		{CustomID: "2", SystemPrompt: "s", UserPrompt: "u2"},
		{CustomID: "3", SystemPrompt: "", UserPrompt: "u3"},
	}
	c := new(mockCompleter)
	c.On("Complete", mock.Anything, tasks[0]).Return(model.LLMResponse{CustomID: "1", Text: "ok"}, nil)
	c.On("Complete", mock.Anything, tasks[1]).Return(model.LLMResponse{}, eris.New("invalid prompt")).Once()

	got, err := RowQuery(context.Background(), c, tasks, RowQueryOptions{Retry: fastRetry()})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "ok", got[0].Text)
	assert.Equal(t, model.LLMResponse{CustomID: "2", Text: RowErrorSentinel}, got[1])
	assert.Equal(t, model.LLMResponse{CustomID: "3", Text: RowErrorSentinel}, got[2])

	// Non-transient errors are not retried and empty prompts never reach the API.
	c.AssertNumberOfCalls(t, "Complete", 2)
}

func TestRowQuery_RetriesTransient(t *testing.T) {
	task := model.PromptTask{CustomID: "1", SystemPrompt: "s", UserPrompt: "u"}
	c := new(mockCompleter)
	c.On("Complete", mock.Anything, task).Return(model.LLMResponse{}, resilience.NewTransientError(eris.New("rate limited"), 429)).Twice()
	c.On("Complete", mock.Anything, task).Return(model.LLMResponse{CustomID: "1", Text: "finally"}, nil).Once()

	got, err := RowQuery(context.Background(), c, []model.PromptTask{task}, RowQueryOptions{Retry: fastRetry()})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "finally", got[0].Text)
	c.AssertNumberOfCalls(t, "Complete", 3)
}

func TestRowQuery_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := RowQuery(ctx, new(mockCompleter), sampleTasks(), RowQueryOptions{RatePerSec: 1})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, got)
}

type stubOpenAI struct {
	echoOpenAI
	last openai.ChatRequest
}

func (s *stubOpenAI) CreateChatCompletion(_ context.Context, req openai.ChatRequest) (*openai.ChatResponse, error) {
	s.last = req
	return &openai.ChatResponse{Content: "reply to " + req.User, Usage: openai.TokenUsage{InputTokens: 3, OutputTokens: 4}}, nil
}

func TestOpenAICompleter(t *testing.T) {
	client := &stubOpenAI{}
	c := OpenAICompleter{Client: client}

	got, err := c.Complete(context.Background(), model.PromptTask{CustomID: "9", Model: "gpt-4o", SystemPrompt: "sys", UserPrompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, model.LLMResponse{CustomID: "9", Text: "reply to hi", InputTokens: 3, OutputTokens: 4}, got)
	assert.Equal(t, "sys", client.last.System)
	require.NotNil(t, client.last.Temperature)
	assert.Equal(t, 0.0, *client.last.Temperature)
	assert.Equal(t, ProviderOpenAI, c.Provider())
}

type stubAnthropic struct {
	echoAnthropic
	last anthropic.MessageRequest
}

func (s *stubAnthropic) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	s.last = req
	return &anthropic.MessageResponse{Content: []anthropic.ContentBlock{{Type: "text", Text: "hello"}}}, nil
}

func TestAnthropicCompleter(t *testing.T) {
	client := &stubAnthropic{}
	c := AnthropicCompleter{Client: client}

	got, err := c.Complete(context.Background(), model.PromptTask{CustomID: "9", Model: "claude", SystemPrompt: "sys", UserPrompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Text)
	assert.Equal(t, int64(defaultMaxTokens), client.last.MaxTokens)
	assert.Equal(t, "sys", client.last.System)
	require.Len(t, client.last.Messages, 1)
	assert.Equal(t, "hi", client.last.Messages[0].Content)
	assert.Equal(t, ProviderAnthropic, c.Provider())
}
