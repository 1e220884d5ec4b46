// Package batch turns a prompt table into LLM requests, runs them as a
// remote batch job or row by row, and joins the responses back onto the
// originating rows.
package batch

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/finfluencer-cli/internal/model"
	"github.com/sells-group/finfluencer-cli/internal/table"
)

// Columns read and written by the orchestrator.
const (
	ColCustomID = "custom_id"
	ColResponse = "query_response"
)

// ErrDuplicateID is returned when two rows share a correlation id.
var ErrDuplicateID = eris.New("batch: duplicate correlation id")

// RowIDs returns the correlation id of every row: the custom_id column when
// present, else the row position.
func RowIDs(rows *table.Table) []string {
	ids := make([]string, rows.Len())
	useColumn := rows.HasColumn(ColCustomID)
	for i, r := range rows.Rows {
		if useColumn {
			ids[i] = r[ColCustomID]
		} else {
			ids[i] = strconv.Itoa(i)
		}
	}
	return ids
}

// BuildTasks builds one PromptTask per row from the named system and user
// prompt columns.
func BuildTasks(rows *table.Table, systemField, userField, modelName string, temperature float64) ([]model.PromptTask, error) {
	for _, col := range []string{systemField, userField} {
		if !rows.HasColumn(col) {
			return nil, eris.Errorf("batch: prompt column %q not found", col)
		}
	}

	ids := RowIDs(rows)
	seen := make(map[string]struct{}, len(ids))
	tasks := make([]model.PromptTask, 0, len(ids))
	for i, r := range rows.Rows {
		id := ids[i]
		if strings.TrimSpace(id) == "" {
			return nil, eris.Errorf("batch: row %d has an empty correlation id", i)
		}
		if _, dup := seen[id]; dup {
			return nil, eris.Wrapf(ErrDuplicateID, "id %s", id)
		}
		seen[id] = struct{}{}
		tasks = append(tasks, model.PromptTask{
			CustomID:     id,
			Model:        modelName,
			Temperature:  temperature,
			SystemPrompt: r[systemField],
			UserPrompt:   r[userField],
		})
	}
	return tasks, nil
}

// WriteTaskFile serializes tasks as newline-delimited JSON.
func WriteTaskFile(path string, tasks []model.PromptTask) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "batch: create dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "batch: create task file %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, t := range tasks {
		if err := enc.Encode(model.NewTaskLine(t)); err != nil {
			return eris.Wrapf(err, "batch: encode task %s", t.CustomID)
		}
	}
	if err := w.Flush(); err != nil {
		return eris.Wrapf(err, "batch: write task file %s", path)
	}

	zap.L().Info("batch: wrote task file",
		zap.String("file", path),
		zap.Int("tasks", len(tasks)),
	)
	return nil
}

// TaskFilePath derives the task file path that accompanies a result file,
// e.g. results.jsonl -> results_input.jsonl.
func TaskFilePath(outputPath string) string {
	ext := filepath.Ext(outputPath)
	return strings.TrimSuffix(outputPath, ext) + "_input.jsonl"
}

// ReadTaskFile loads tasks written by WriteTaskFile.
func ReadTaskFile(path string) ([]model.PromptTask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: open task file %s", path)
	}
	defer f.Close() //nolint:errcheck

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxResultLine)

	var tasks []model.PromptTask
	for lineNo := 1; sc.Scan(); lineNo++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var line model.TaskLine
		if err := json.Unmarshal(sc.Bytes(), &line); err != nil {
			return nil, eris.Wrapf(err, "batch: decode task file %s line %d", path, lineNo)
		}
		t := model.PromptTask{
			CustomID:    line.CustomID,
			Model:       line.Body.Model,
			Temperature: line.Body.Temperature,
		}
		for _, m := range line.Body.Messages {
			switch m.Role {
			case model.RoleSystem:
				t.SystemPrompt = m.Content
			case model.RoleUser:
				t.UserPrompt = m.Content
			}
		}
		tasks = append(tasks, t)
	}
	return tasks, eris.Wrapf(sc.Err(), "batch: read task file %s", path)
}
