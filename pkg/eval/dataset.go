package eval

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"graddirector/pkg/sheet"
)

// Dataset column names.
const (
	ColumnQuestion  = "user_question"
	ColumnReference = "gpd_answer"
)

// DefaultMaxRows bounds the replayed rows when no limit is configured.
const DefaultMaxRows = 50

// Case is one recorded question with its reference answer.
type Case struct {
	Row       int    `json:"row"`
	Question  string `json:"question"`
	Reference string `json:"reference"`
}

// LoadDataset reads up to maxRows cases from path. A missing file or a
// table without both columns yields no cases and no error, so the run is
// skipped rather than failed. Rows with a blank question are dropped.
func LoadDataset(path string, maxRows int) ([]Case, error) {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	tbl, err := sheet.Load(path, "")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Warn("Evaluation dataset not found", "path", path)
			return nil, nil
		}
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	return casesFrom(tbl, maxRows), nil
}

func casesFrom(tbl *sheet.Table, maxRows int) []Case {
	qi, okQ := tbl.Column(ColumnQuestion)
	ri, okR := tbl.Column(ColumnReference)
	if !okQ || !okR {
		slog.Warn("Evaluation dataset lacks required columns", "need", []string{ColumnQuestion, ColumnReference}, "have", tbl.Headers)
		return nil
	}

	rows := tbl.Rows
	if len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	out := make([]Case, 0, len(rows))
	for i, r := range rows {
		if strings.TrimSpace(r[qi]) == "" {
			continue
		}
		out = append(out, Case{Row: i, Question: r[qi], Reference: r[ri]})
	}
	return out
}
