package parser

import (
	"strings"

	"github.com/sells-group/finfluencer-cli/internal/model"
	"github.com/sells-group/finfluencer-cli/internal/table"
)

// Labels of the survey schema.
const (
	LabelQuestion    = "Question"
	LabelSymbol      = "Symbol"
	LabelCategory    = "Category"
	LabelSpeculation = "Speculation"
	LabelValue       = "Value"
	LabelResponse    = "Response"
)

// surveySuffixes are the flattened column suffixes in output order.
var surveySuffixes = []string{"explanation", "symbol", "category", "speculation", "value", "response"}

// ParseSurvey extracts one ExtractedField per question block. Blocks are
// kept when they carry a **Question: ...** label. When questions is
// non-empty the result has exactly one entry per question, in that order,
// matched case-insensitively; questions without a block have all fields nil.
func ParseSurvey(text string, questions []string) []model.ExtractedField {
	var parsed []model.ExtractedField
	for _, b := range Blocks(text) {
		if !Mentions(b, LabelQuestion) {
			continue
		}
		q := Field(b, LabelQuestion)
		if q == nil {
			continue
		}
		parsed = append(parsed, model.ExtractedField{
			Question:    *q,
			Explanation: Field(b, LabelExplanation),
			Symbol:      Field(b, LabelSymbol),
			Category:    Field(b, LabelCategory),
			Speculation: Field(b, LabelSpeculation),
			Value:       Field(b, LabelValue),
			Response:    Field(b, LabelResponse),
		})
	}
	if len(questions) == 0 {
		return parsed
	}

	byQuestion := make(map[string]model.ExtractedField, len(parsed))
	for _, f := range parsed {
		key := normalizeQuestion(f.Question)
		if _, seen := byQuestion[key]; !seen {
			byQuestion[key] = f
		}
	}
	out := make([]model.ExtractedField, len(questions))
	for i, q := range questions {
		f, ok := byQuestion[normalizeQuestion(q)]
		if !ok {
			f = model.ExtractedField{}
		}
		f.Question = q
		out[i] = f
	}
	return out
}

// FlattenSurvey denormalizes fields into one labeled value per
// question/field pair, e.g. "Q1 - explanation".
func FlattenSurvey(fields []model.ExtractedField) []model.LabeledValue {
	out := make([]model.LabeledValue, 0, len(fields)*len(surveySuffixes))
	for _, f := range fields {
		values := []*string{f.Explanation, f.Symbol, f.Category, f.Speculation, f.Value, f.Response}
		for i, suffix := range surveySuffixes {
			out = append(out, model.LabeledValue{
				Label: f.Question + " - " + suffix,
				Value: values[i],
			})
		}
	}
	return out
}

// ParseSurveyTable parses the textCol of every row into one output row per
// input row: idCol followed by the flattened survey columns. Nil values are
// written as empty cells.
func ParseSurveyTable(rows *table.Table, idCol, textCol string, questions []string) *table.Table {
	out := table.New(idCol)
	for _, q := range questions {
		for _, suffix := range surveySuffixes {
			out.AddColumn(q + " - " + suffix)
		}
	}
	for _, r := range rows.Rows {
		row := table.Row{idCol: r[idCol]}
		for _, lv := range FlattenSurvey(ParseSurvey(r[textCol], questions)) {
			out.AddColumn(lv.Label)
			if lv.Value != nil {
				row[lv.Label] = *lv.Value
			} else {
				row[lv.Label] = ""
			}
		}
		out.Append(row)
	}
	return out
}

func normalizeQuestion(q string) string {
	return fold(strings.Join(strings.Fields(q), " "))
}
