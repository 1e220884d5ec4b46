package export

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/finfluencer-cli/internal/table"
)

// DefaultSheet is the sheet name used when none is given.
const DefaultSheet = "results"

// WriteXLSX writes t to a single-sheet workbook at path. Every cell is
// written as a string so ids keep their digits.
func WriteXLSX(path, sheetName string, t *table.Table) error {
	if sheetName == "" {
		sheetName = DefaultSheet
	}
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %q", sheetName)
	}

	header := sheet.AddRow()
	for _, c := range t.Columns {
		header.AddCell().SetString(c)
	}
	for _, r := range t.Rows {
		row := sheet.AddRow()
		for _, c := range t.Columns {
			row.AddCell().SetString(r[c])
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "export: create dir for %s", path)
	}
	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

// WriteRowsXLSX converts tagged structs with ToTable and writes them with
// WriteXLSX.
func WriteRowsXLSX[T any](path, sheetName string, rows []T) error {
	t, err := ToTable(rows)
	if err != nil {
		return err
	}
	return WriteXLSX(path, sheetName, t)
}

// ReadXLSX loads a sheet into a table, taking the first row as the header.
// An empty sheetName selects the first sheet.
func ReadXLSX(path, sheetName string) (*table.Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: open %s", path)
	}

	sheet, err := getSheet(f, sheetName)
	if err != nil {
		return nil, err
	}

	if len(sheet.Rows) == 0 {
		return table.New(), nil
	}
	t := table.New(rowToStrings(sheet.Rows[0])...)
	for _, r := range sheet.Rows[1:] {
		cells := rowToStrings(r)
		row := make(table.Row, len(t.Columns))
		for i, c := range t.Columns {
			if i < len(cells) {
				row[c] = cells[i]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func getSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("export: sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("export: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
