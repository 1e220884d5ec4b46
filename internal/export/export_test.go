package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/finfluencer-cli/internal/model"
	"github.com/sells-group/finfluencer-cli/internal/table"
)

func strPtr(s string) *string { return &s }

func sampleMentions() []model.StockMention {
	return []model.StockMention{
		{
			CustomID:       "7301",
			StockName:      strPtr("Apple"),
			Ticker:         strPtr("AAPL"),
			Recommendation: strPtr("Buy"),
		},
		{
			CustomID:  "7302",
			StockName: strPtr("Nvidia, Inc."),
			Ticker:    strPtr("NVDA"),
		},
	}
}

func TestMarshalCSV(t *testing.T) {
	data, err := MarshalCSV(sampleMentions())
	require.NoError(t, err)

	lines := string(data)
	assert.Contains(t, lines, "custom_id,stock_name,ticker,mention_date,influencer,recommendation,explanation,confidence,virality\n")
	assert.Contains(t, lines, "7301,Apple,AAPL,,,Buy,,,\n")
	assert.Contains(t, lines, `7302,"Nvidia, Inc.",NVDA`)
}

func TestMarshalCSV_EmptyWritesHeader(t *testing.T) {
	data, err := MarshalCSV([]model.LabeledValue(nil))
	require.NoError(t, err)
	assert.Equal(t, "label,value\n", string(data))
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "stocks.csv")
	require.NoError(t, WriteCSV(path, sampleMentions()))

	got, err := table.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, []string{"7301", "7302"}, got.Column("custom_id"))
	assert.Equal(t, "", got.Rows[1]["recommendation"])
}

func TestToTable(t *testing.T) {
	tbl, err := ToTable([]model.LabeledValue{
		{Label: "Q1 - explanation", Value: strPtr("because")},
		{Label: "Q1 - symbol"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"label", "value"}, tbl.Columns)
	assert.Equal(t, "because", tbl.Rows[0]["value"])
	assert.Equal(t, "", tbl.Rows[1]["value"])
}

func TestXLSX_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stocks.xlsx")
	require.NoError(t, WriteRowsXLSX(path, "stocks", sampleMentions()))

	_, err := os.Stat(path)
	require.NoError(t, err)

	got, err := ReadXLSX(path, "stocks")
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, "custom_id", got.Columns[0])
	assert.Equal(t, "Nvidia, Inc.", got.Rows[1]["stock_name"])
	assert.Equal(t, "Buy", got.Rows[0]["recommendation"])
}

func TestWriteXLSX_DefaultSheetKeepsIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.xlsx")
	tbl := table.New("id", "text")
	tbl.Append(table.Row{"id": "7301234567890123456", "text": "hi"})
	require.NoError(t, WriteXLSX(path, "", tbl))

	got, err := ReadXLSX(path, "")
	require.NoError(t, err)
	assert.Equal(t, "7301234567890123456", got.Rows[0]["id"])
}

func TestReadXLSX_Errors(t *testing.T) {
	_, err := ReadXLSX(filepath.Join(t.TempDir(), "missing.xlsx"), "")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "t.xlsx")
	require.NoError(t, WriteXLSX(path, "a", table.New("x")))
	_, err = ReadXLSX(path, "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `sheet "b" not found`)
}
