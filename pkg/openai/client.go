// Package openai wraps the OpenAI SDK operations the pipeline uses: chat
// completions, batch file upload, batch jobs, file download and audio
// transcription.
package openai

import (
	"context"
	"errors"
	"io"
	"os"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rotisserie/eris"
)

// Client defines the OpenAI API operations used by the pipeline.
type Client interface {
	CreateChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	UploadBatchFile(ctx context.Context, path string) (string, error)
	CreateBatch(ctx context.Context, req BatchRequest) (*Batch, error)
	GetBatch(ctx context.Context, batchID string) (*Batch, error)
	DownloadFile(ctx context.Context, fileID string, w io.Writer) error
	Transcribe(ctx context.Context, path, model string) (string, error)
}

// ChatRequest is a single system + user completion request.
type ChatRequest struct {
	Model       string
	System      string
	User        string
	Temperature *float64
}

// ChatResponse holds the first choice of a completion.
type ChatResponse struct {
	ID      string
	Model   string
	Content string
	Usage   TokenUsage
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// BatchRequest creates a batch job over an uploaded input file.
type BatchRequest struct {
	InputFileID      string
	Endpoint         string // defaults to /v1/chat/completions
	CompletionWindow string // defaults to 24h
}

// Batch status values reported by the API.
const (
	StatusValidating = "validating"
	StatusInProgress = "in_progress"
	StatusFinalizing = "finalizing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusExpired    = "expired"
	StatusCancelling = "cancelling"
	StatusCancelled  = "cancelled"
)

// Batch is our own view of a remote batch job.
type Batch struct {
	ID            string
	Status        string
	InputFileID   string
	OutputFileID  string
	ErrorFileID   string
	Errors        []string
	RequestCounts RequestCounts
}

// RequestCounts tallies requests by outcome.
type RequestCounts struct {
	Total     int64
	Completed int64
	Failed    int64
}

// StatusCode returns the HTTP status of an API error anywhere in err's
// chain, or 0 when err did not come from an API response.
func StatusCode(err error) int {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// RetryAfter returns the Retry-After header of an API error response, or
// "" when err carries none.
func RetryAfter(err error) string {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) && apiErr.Response != nil {
		return apiErr.Response.Header.Get("Retry-After")
	}
	return ""
}

// ClientOption configures NewClient.
type ClientOption func(*[]option.RequestOption)

// WithBaseURL points the client at a different API host.
func WithBaseURL(u string) ClientOption {
	return func(o *[]option.RequestOption) {
		*o = append(*o, option.WithBaseURL(u))
	}
}

// WithMaxRetries overrides the SDK's retry count for transient failures.
func WithMaxRetries(n int) ClientOption {
	return func(o *[]option.RequestOption) {
		*o = append(*o, option.WithMaxRetries(n))
	}
}

// sdkClient implements Client using the official openai-go SDK.
type sdkClient struct {
	client sdk.Client
}

// NewClient creates a new OpenAI client backed by the SDK.
func NewClient(apiKey string, opts ...ClientOption) Client {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	for _, o := range opts {
		o(&reqOpts)
	}
	return &sdkClient{client: sdk.NewClient(reqOpts...)}
}

func (c *sdkClient) CreateChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	params := sdk.ChatCompletionNewParams{
		Model: sdk.ChatModel(req.Model),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.SystemMessage(req.System),
			sdk.UserMessage(req.User),
		},
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "openai: create chat completion")
	}

	out := &ChatResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Usage: TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
	if len(resp.Choices) > 0 {
		out.Content = resp.Choices[0].Message.Content
	}
	return out, nil
}

func (c *sdkClient) UploadBatchFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "openai: open batch file %s", path)
	}
	defer f.Close()

	obj, err := c.client.Files.New(ctx, sdk.FileNewParams{
		File:    f,
		Purpose: sdk.FilePurposeBatch,
	})
	if err != nil {
		return "", eris.Wrapf(err, "openai: upload batch file %s", path)
	}
	return obj.ID, nil
}

func (c *sdkClient) CreateBatch(ctx context.Context, req BatchRequest) (*Batch, error) {
	endpoint := sdk.BatchNewParamsEndpointV1ChatCompletions
	if req.Endpoint != "" {
		endpoint = sdk.BatchNewParamsEndpoint(req.Endpoint)
	}
	window := sdk.BatchNewParamsCompletionWindow24h
	if req.CompletionWindow != "" {
		window = sdk.BatchNewParamsCompletionWindow(req.CompletionWindow)
	}

	batch, err := c.client.Batches.New(ctx, sdk.BatchNewParams{
		InputFileID:      req.InputFileID,
		Endpoint:         endpoint,
		CompletionWindow: window,
	})
	if err != nil {
		return nil, eris.Wrap(err, "openai: create batch")
	}
	return fromSDKBatch(batch), nil
}

func (c *sdkClient) GetBatch(ctx context.Context, batchID string) (*Batch, error) {
	batch, err := c.client.Batches.Get(ctx, batchID)
	if err != nil {
		return nil, eris.Wrapf(err, "openai: get batch %s", batchID)
	}
	return fromSDKBatch(batch), nil
}

func (c *sdkClient) DownloadFile(ctx context.Context, fileID string, w io.Writer) error {
	resp, err := c.client.Files.Content(ctx, fileID)
	if err != nil {
		return eris.Wrapf(err, "openai: download file %s", fileID)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return eris.Wrapf(err, "openai: read file %s", fileID)
	}
	return nil
}

func (c *sdkClient) Transcribe(ctx context.Context, path, model string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "openai: open audio %s", path)
	}
	defer f.Close()

	if model == "" {
		model = string(sdk.AudioModelWhisper1)
	}
	tr, err := c.client.Audio.Transcriptions.New(ctx, sdk.AudioTranscriptionNewParams{
		File:  f,
		Model: sdk.AudioModel(model),
	})
	if err != nil {
		return "", eris.Wrapf(err, "openai: transcribe %s", path)
	}
	return tr.Text, nil
}

func fromSDKBatch(b *sdk.Batch) *Batch {
	out := &Batch{
		ID:           b.ID,
		Status:       string(b.Status),
		InputFileID:  b.InputFileID,
		OutputFileID: b.OutputFileID,
		ErrorFileID:  b.ErrorFileID,
		RequestCounts: RequestCounts{
			Total:     b.RequestCounts.Total,
			Completed: b.RequestCounts.Completed,
			Failed:    b.RequestCounts.Failed,
		},
	}
	for _, e := range b.Errors.Data {
		out.Errors = append(out.Errors, e.Code+": "+e.Message)
	}
	return out
}
