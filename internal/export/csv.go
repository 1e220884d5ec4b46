// Package export writes parsed completions as CSV or XLSX files.
package export

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/finfluencer-cli/internal/table"
)

// MarshalCSV encodes rows as CSV using their csv struct tags. Nil pointer
// fields become empty cells.
func MarshalCSV[T any](rows []T) ([]byte, error) {
	if len(rows) == 0 {
		var zero T
		header, err := csvutil.Header(zero, "csv")
		if err != nil {
			return nil, eris.Wrap(err, "export: csv header")
		}
		return table.New(header...).Bytes()
	}
	data, err := csvutil.Marshal(rows)
	if err != nil {
		return nil, eris.Wrap(err, "export: marshal csv")
	}
	return data, nil
}

// WriteCSV overwrites path with rows encoded as CSV.
func WriteCSV[T any](path string, rows []T) error {
	data, err := MarshalCSV(rows)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "export: create dir for %s", path)
	}
	return eris.Wrapf(os.WriteFile(path, data, 0o644), "export: write %s", path)
}

// ToTable converts tagged structs to a table with the same columns
// MarshalCSV would write.
func ToTable[T any](rows []T) (*table.Table, error) {
	data, err := MarshalCSV(rows)
	if err != nil {
		return nil, err
	}
	return table.Read(bytes.NewReader(data))
}
