// Package table provides a header-ordered, string-typed CSV table with the
// handful of dataframe operations the metadata stores need.
package table

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
)

// Row maps column name to cell value. Absent columns read as "".
type Row map[string]string

// Table is an ordered set of rows sharing a column list. All values are
// strings so numeric-looking ids never lose precision.
type Table struct {
	Columns []string
	Rows    []Row
}

// New creates an empty table with the given columns.
func New(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether name is part of the header.
func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// AddColumn appends name to the header if missing.
func (t *Table) AddColumn(name string) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
}

// Append adds a row, extending the header with any unseen keys in sorted
// order so output stays deterministic.
func (t *Table) Append(r Row) {
	var extra []string
	for k := range r {
		if !t.HasColumn(k) {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	t.Columns = append(t.Columns, extra...)
	t.Rows = append(t.Rows, r)
}

// Set assigns value to column name on every row produced by fn.
func (t *Table) Set(name string, fn func(Row) string) {
	t.AddColumn(name)
	for _, r := range t.Rows {
		r[name] = fn(r)
	}
}

// Rename renames a column in the header and on every row.
func (t *Table) Rename(from, to string) {
	for i, c := range t.Columns {
		if c == from {
			t.Columns[i] = to
		}
	}
	for _, r := range t.Rows {
		if v, ok := r[from]; ok {
			delete(r, from)
			r[to] = v
		}
	}
}

// Column returns the values of name in row order.
func (t *Table) Column(name string) []string {
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[name]
	}
	return out
}

// Filter returns a new table holding the rows for which keep is true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := New(t.Columns...)
	for _, r := range t.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// SortStable sorts rows in place with a stable sort, so equal rows keep
// their input order.
func (t *Table) SortStable(less func(a, b Row) bool) {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		return less(t.Rows[i], t.Rows[j])
	})
}

// Head returns a table with at most n leading rows.
func (t *Table) Head(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	out := New(t.Columns...)
	out.Rows = append(out.Rows, t.Rows[:n]...)
	return out
}

// Concat returns a table holding a's rows followed by b's. The header is the
// union of both headers in first-seen order.
func Concat(a, b *Table) *Table {
	out := New()
	for _, src := range []*Table{a, b} {
		if src == nil {
			continue
		}
		for _, c := range src.Columns {
			out.AddColumn(c)
		}
		out.Rows = append(out.Rows, src.Rows...)
	}
	return out
}

// DedupLast removes rows sharing the same key value, keeping the last
// occurrence at its position in the input.
func (t *Table) DedupLast(key string) *Table {
	last := make(map[string]int, len(t.Rows))
	for i, r := range t.Rows {
		last[r[key]] = i
	}
	out := New(t.Columns...)
	for i, r := range t.Rows {
		if last[r[key]] == i {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// Read parses CSV from r. The first record is the header.
func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "table: read csv")
	}
	if len(records) == 0 {
		return New(), nil
	}

	t := New(records[0]...)
	for _, rec := range records[1:] {
		row := make(Row, len(t.Columns))
		for i, c := range t.Columns {
			if i < len(rec) {
				row[c] = rec[i]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ReadFile loads a CSV file.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "table: open %s", path)
	}
	defer f.Close()
	return Read(f)
}

// ReadFileIfExists loads path, or returns (nil, nil) when it does not exist.
func ReadFileIfExists(path string) (*Table, error) {
	t, err := ReadFile(path)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return t, err
}

// Write encodes the table as CSV with a header row.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return eris.Wrap(err, "table: write header")
	}
	rec := make([]string, len(t.Columns))
	for _, r := range t.Rows {
		for i, c := range t.Columns {
			rec[i] = r[c]
		}
		if err := cw.Write(rec); err != nil {
			return eris.Wrap(err, "table: write row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "table: flush")
}

// Bytes returns the table encoded as CSV.
func (t *Table) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile overwrites path with the table. The data is written to a
// sibling temp file first and renamed into place.
func (t *Table) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "table: create dir for %s", path)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrapf(err, "table: create temp for %s", path)
	}
	defer os.Remove(tmp.Name())

	if err := t.Write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "table: close temp for %s", path)
	}
	return eris.Wrapf(os.Rename(tmp.Name(), path), "table: replace %s", path)
}

// FromRecords builds a table from decoded JSON objects such as scraper
// dataset items. Nested values are stored as compact JSON.
func FromRecords(records []map[string]any) *Table {
	t := New()
	for _, rec := range records {
		row := make(Row, len(rec))
		for k, v := range rec {
			row[k] = Stringify(v)
		}
		t.Append(row)
	}
	return t
}

// Stringify renders a decoded JSON value as a cell. Booleans use the
// True/False spelling already present in existing stores.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "True"
		}
		return "False"
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
