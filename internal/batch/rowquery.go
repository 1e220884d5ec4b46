package batch

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/finfluencer-cli/internal/cost"
	"github.com/sells-group/finfluencer-cli/internal/model"
	"github.com/sells-group/finfluencer-cli/internal/resilience"
	"github.com/sells-group/finfluencer-cli/pkg/anthropic"
	"github.com/sells-group/finfluencer-cli/pkg/openai"
)

// RowErrorSentinel replaces the response of any row that could not be
// processed.
const RowErrorSentinel = "Error: unable to process row"

// Completer issues one synchronous completion for a task.
type Completer interface {
	Complete(ctx context.Context, task model.PromptTask) (model.LLMResponse, error)
	Provider() string
}

// OpenAICompleter adapts an openai.Client to Completer.
type OpenAICompleter struct {
	Client openai.Client
}

func (c OpenAICompleter) Complete(ctx context.Context, t model.PromptTask) (model.LLMResponse, error) {
	temp := t.Temperature
	resp, err := c.Client.CreateChatCompletion(ctx, openai.ChatRequest{
		Model:       t.Model,
		System:      t.SystemPrompt,
		User:        t.UserPrompt,
		Temperature: &temp,
	})
	if err != nil {
		return model.LLMResponse{}, err
	}
	return model.LLMResponse{
		CustomID:     t.CustomID,
		Text:         resp.Content,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}

func (OpenAICompleter) Provider() string { return ProviderOpenAI }

// AnthropicCompleter adapts an anthropic.Client to Completer.
type AnthropicCompleter struct {
	Client    anthropic.Client
	MaxTokens int64
}

func (c AnthropicCompleter) Complete(ctx context.Context, t model.PromptTask) (model.LLMResponse, error) {
	maxTokens := c.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	temp := t.Temperature
	resp, err := c.Client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       t.Model,
		MaxTokens:   maxTokens,
		System:      t.SystemPrompt,
		Messages:    []anthropic.Message{{Role: model.RoleUser, Content: t.UserPrompt}},
		Temperature: &temp,
	})
	if err != nil {
		return model.LLMResponse{}, err
	}
	return model.LLMResponse{
		CustomID:     t.CustomID,
		Text:         resp.Text(),
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}

func (AnthropicCompleter) Provider() string { return ProviderAnthropic }

// RowQueryOptions tunes RowQuery.
type RowQueryOptions struct {
	// RatePerSec caps request starts per second. Zero means unlimited.
	RatePerSec float64
	Retry      resilience.RetryConfig
	Cost       *cost.Calculator
}

// RowQuery runs one completion per task in order. A task that fails after
// retries, or whose prompts are empty, gets RowErrorSentinel as its text and
// the run continues. The returned error is non-nil only when ctx ends; the
// responses gathered so far are returned with it.
func RowQuery(ctx context.Context, c Completer, tasks []model.PromptTask, opts RowQueryOptions) ([]model.LLMResponse, error) {
	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}
	limiter := rate.NewLimiter(limit, 1)

	retry := opts.Retry
	if retry.ShouldRetry == nil {
		retry.ShouldRetry = resilience.RetryOnStatus(statusOf)
	}
	if retry.RetryAfter == nil {
		retry.RetryAfter = retryAfter
	}

	out := make([]model.LLMResponse, 0, len(tasks))
	var failed int
	for _, t := range tasks {
		if err := limiter.Wait(ctx); err != nil {
			return out, eris.Wrap(err, "batch: row query stopped")
		}

		resp, err := queryRow(ctx, c, t, retry)
		if err != nil {
			if ctx.Err() != nil {
				return out, eris.Wrap(ctx.Err(), "batch: row query stopped")
			}
			failed++
			zap.L().Warn("batch: row query failed",
				zap.String("custom_id", t.CustomID),
				zap.String("provider", c.Provider()),
				zap.Error(err),
			)
			resp = model.LLMResponse{CustomID: t.CustomID, Text: RowErrorSentinel}
		}
		out = append(out, resp)
	}

	zap.L().Info("batch: row query finished",
		zap.Int("rows", len(tasks)),
		zap.Int("failed", failed),
	)
	logUsage(opts.Cost, c.Provider(), modelOf(tasks), false, out)
	return out, nil
}

func queryRow(ctx context.Context, c Completer, t model.PromptTask, retry resilience.RetryConfig) (model.LLMResponse, error) {
	if strings.TrimSpace(t.SystemPrompt) == "" || strings.TrimSpace(t.UserPrompt) == "" {
		return model.LLMResponse{}, eris.Errorf("batch: task %s has an empty prompt", t.CustomID)
	}
	retry.OnRetry = resilience.RetryLogger(c.Provider(), "row_query", zap.String("custom_id", t.CustomID))
	return resilience.DoVal(ctx, retry, func(ctx context.Context) (model.LLMResponse, error) {
		return c.Complete(ctx, t)
	})
}

var statusOf = resilience.FirstStatus(openai.StatusCode, anthropic.StatusCode)

func retryAfter(err error) time.Duration {
	if v := openai.RetryAfter(err); v != "" {
		return resilience.ParseRetryAfter(v)
	}
	return resilience.ParseRetryAfter(anthropic.RetryAfter(err))
}
