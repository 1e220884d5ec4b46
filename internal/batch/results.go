package batch

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/finfluencer-cli/internal/model"
	"github.com/sells-group/finfluencer-cli/internal/table"
)

const maxResultLine = 16 << 20

// ParseResultFile reads a JSONL batch result stream. Lines that are not
// valid JSON or carry no completion are logged and skipped.
func ParseResultFile(r io.Reader) ([]model.LLMResponse, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxResultLine)

	var (
		out    []model.LLMResponse
		lineNo int
	)
	for sc.Scan() {
		lineNo++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}

		var line model.ResultLine
		if err := json.Unmarshal(raw, &line); err != nil {
			zap.L().Warn("batch: skipping malformed result line",
				zap.Int("line", lineNo),
				zap.Error(err),
			)
			continue
		}
		if line.Error != nil || len(line.Response.Body.Choices) == 0 {
			fields := []zap.Field{zap.String("custom_id", line.CustomID), zap.Int("line", lineNo)}
			if line.Error != nil {
				fields = append(fields, zap.String("code", line.Error.Code), zap.String("message", line.Error.Message))
			}
			zap.L().Warn("batch: result line has no completion", fields...)
			continue
		}

		out = append(out, model.LLMResponse{
			CustomID:     line.CustomID,
			Text:         line.Response.Body.Choices[0].Message.Content,
			InputTokens:  line.Response.Body.Usage.PromptTokens,
			OutputTokens: line.Response.Body.Usage.CompletionTokens,
		})
	}
	if err := sc.Err(); err != nil {
		return out, eris.Wrap(err, "batch: read result file")
	}
	return out, nil
}

// ReadResultFile opens and parses a result file.
func ReadResultFile(path string) ([]model.LLMResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: open result file %s", path)
	}
	defer f.Close() //nolint:errcheck
	return ParseResultFile(f)
}

// WriteResultFile writes responses in the same line schema the remote batch
// service produces, so providers without a result file share one parser.
func WriteResultFile(path, modelName string, responses []model.LLMResponse) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "batch: create dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "batch: create result file %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range responses {
		line := model.ResultLine{
			CustomID: r.CustomID,
			Response: model.ResultResponse{
				StatusCode: 200,
				Body: model.ResultBody{
					Model: modelName,
					Choices: []model.ResultChoice{{
						Message: model.ChatMessage{Role: "assistant", Content: r.Text},
					}},
					Usage: model.ResultUsage{PromptTokens: r.InputTokens, CompletionTokens: r.OutputTokens},
				},
			},
		}
		if err := enc.Encode(line); err != nil {
			return eris.Wrapf(err, "batch: encode result %s", r.CustomID)
		}
	}
	return eris.Wrapf(w.Flush(), "batch: write result file %s", path)
}

// Join attaches each response to the row with the same correlation id as a
// query_response column. Rows without a response are dropped from the
// result and their ids returned so callers can report them.
func Join(rows *table.Table, responses []model.LLMResponse) (*table.Table, []string) {
	byID := make(map[string]string, len(responses))
	for _, r := range responses {
		byID[r.CustomID] = r.Text
	}

	out := table.New(rows.Columns...)
	out.AddColumn(ColResponse)

	var missing []string
	for i, id := range RowIDs(rows) {
		text, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		r := make(table.Row, len(rows.Rows[i])+1)
		for k, v := range rows.Rows[i] {
			r[k] = v
		}
		r[ColResponse] = text
		out.Append(r)
	}

	if len(missing) > 0 {
		zap.L().Warn("batch: rows without a response were dropped",
			zap.Int("missing", len(missing)),
			zap.Strings("custom_ids", missing),
		)
	}
	return out, missing
}
