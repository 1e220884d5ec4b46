package model

// Roles used in chat messages.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Batch wire constants shared by the task file and the remote job.
const (
	BatchMethod   = "POST"
	BatchEndpoint = "/v1/chat/completions"
)

// PromptTask is one LLM request unit. CustomID is the correlation id and
// must round-trip through the remote job unchanged.
type PromptTask struct {
	CustomID     string
	Model        string
	Temperature  float64
	SystemPrompt string
	UserPrompt   string
}

// LLMResponse is one completion, joined back to its task by CustomID.
type LLMResponse struct {
	CustomID     string `json:"custom_id" csv:"custom_id"`
	Text         string `json:"query_response" csv:"query_response"`
	InputTokens  int64  `json:"-" csv:"-"`
	OutputTokens int64  `json:"-" csv:"-"`
}

// TaskLine is the JSONL wire form of a PromptTask.
type TaskLine struct {
	CustomID string   `json:"custom_id"`
	Method   string   `json:"method"`
	URL      string   `json:"url"`
	Body     TaskBody `json:"body"`
}

// TaskBody is the chat completion request embedded in a TaskLine.
type TaskBody struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []ChatMessage `json:"messages"`
}

// ChatMessage is a single role/content pair.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResultLine is the JSONL wire form of one batch result.
type ResultLine struct {
	ID       string         `json:"id,omitempty"`
	CustomID string         `json:"custom_id"`
	Response ResultResponse `json:"response"`
	Error    *ResultError   `json:"error,omitempty"`
}

// ResultResponse wraps the HTTP-level response of a batch item.
type ResultResponse struct {
	StatusCode int        `json:"status_code,omitempty"`
	Body       ResultBody `json:"body"`
}

// ResultBody is the chat completion returned for a batch item.
type ResultBody struct {
	Model   string         `json:"model,omitempty"`
	Choices []ResultChoice `json:"choices"`
	Usage   ResultUsage    `json:"usage"`
}

// ResultChoice holds one completion choice.
type ResultChoice struct {
	Message ChatMessage `json:"message"`
}

// ResultUsage holds token counts reported for a batch item.
type ResultUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
}

// ResultError is set when the remote job could not process an item.
type ResultError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewTaskLine converts a PromptTask to its wire form.
func NewTaskLine(t PromptTask) TaskLine {
	return TaskLine{
		CustomID: t.CustomID,
		Method:   BatchMethod,
		URL:      BatchEndpoint,
		Body: TaskBody{
			Model:       t.Model,
			Temperature: t.Temperature,
			Messages: []ChatMessage{
				{Role: RoleSystem, Content: t.SystemPrompt},
				{Role: RoleUser, Content: t.UserPrompt},
			},
		},
	}
}
