// Package sheet reads tabular sources (xlsx workbooks and csv files) into
// an in-memory Table with a header row.
package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for file extensions other than xlsx/xlsm/csv.
var ErrUnsupportedFormat = errors.New("unsupported tabular format")

// Table is a header row plus data rows. Every row has len(Headers) cells.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Load reads path. For workbooks, sheet selects the worksheet; empty means
// the first one. Blank rows are skipped.
func Load(path, sheet string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return loadWorkbook(path, sheet)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ReadCSV(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func loadWorkbook(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return fromRows(rows), nil
}

// ReadCSV reads a csv stream whose first record is the header.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return fromRows(rows), nil
}

func fromRows(rows [][]string) *Table {
	t := &Table{}
	for len(rows) > 0 && isBlank(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return t
	}
	t.Headers = append([]string(nil), rows[0]...)
	for _, r := range rows[1:] {
		if isBlank(r) {
			continue
		}
		t.Rows = append(t.Rows, pad(r, len(t.Headers)))
	}
	return t
}

// pad fits r to n cells. GetRows drops trailing empty cells.
func pad(r []string, n int) []string {
	out := make([]string, n)
	copy(out, r)
	return out
}

func isBlank(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// NormalizeHeader folds case and collapses all whitespace (including the
// line breaks used in wrapped header cells) to single spaces.
func NormalizeHeader(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}

// Column returns the index of the header matching name after normalization.
func (t *Table) Column(name string) (int, bool) {
	want := NormalizeHeader(name)
	for i, h := range t.Headers {
		if NormalizeHeader(h) == want {
			return i, true
		}
	}
	return -1, false
}

// Project returns a table holding only the named columns that exist, in the
// order given. Output headers use the requested spelling. When none of the
// names exist the table is returned unchanged.
func (t *Table) Project(names []string) *Table {
	var idx []int
	var headers []string
	for _, n := range names {
		if i, ok := t.Column(n); ok {
			idx = append(idx, i)
			headers = append(headers, n)
		}
	}
	if len(idx) == 0 {
		return t
	}
	out := &Table{Headers: headers, Rows: make([][]string, 0, len(t.Rows))}
	for _, r := range t.Rows {
		row := make([]string, len(idx))
		for j, i := range idx {
			row[j] = r[i]
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// Records converts rows to header-keyed maps, in row order.
func (t *Table) Records() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		rec := make(map[string]string, len(t.Headers))
		for i, h := range t.Headers {
			rec[h] = r[i]
		}
		out = append(out, rec)
	}
	return out
}
