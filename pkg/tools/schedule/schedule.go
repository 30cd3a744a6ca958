// Package schedule exposes the department course schedule spreadsheet as a
// model-callable lookup tool.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"graddirector/pkg/config"
	"graddirector/pkg/sheet"
	"graddirector/pkg/tools"
)

// ToolName is the name the model calls the lookup by.
const ToolName = "query_course_schedule"

// Column headers of the schedule export. Wrapped header cells contain
// literal line breaks.
const (
	ColCourse     = "COURSE"
	ColInstructor = "PRIMARY\nINSTRUCTOR\nLAST NAME"
)

// KeepColumns are the columns returned to the model, in output order.
var KeepColumns = []string{
	ColCourse,
	"TITLE",
	"CRN",
	"SECT",
	ColInstructor,
	"SCHEDULE",
	"BUILDING",
	"ROOM",
	"BEGIN\nTIME",
	"END\nTIME",
	"MODALITY\nTEXT",
	"MAX\nCREDITS",
	"ACTUAL\nENROLLMENT",
	"MAX\nSIZE",
	"MON-IND",
	"TUE-IND",
	"WED-IND",
	"THU-IND",
	"FRI-IND",
}

// Query is a decoded tool call.
type Query struct {
	Course     string
	Instructor string
	MaxRows    *int
}

// Tool is the course-schedule lookup.
type Tool struct {
	path    string
	sheet   string
	noCache bool

	mu     sync.Mutex
	cached *sheet.Table
	stamp  fileStamp
}

type fileStamp struct {
	mod  time.Time
	size int64
}

// New creates the lookup over the spreadsheet described by cfg.
func New(cfg config.CourseScheduleConfig) *Tool {
	return &Tool{path: cfg.Path, sheet: cfg.Sheet, noCache: cfg.NoCache}
}

func (t *Tool) Name() string { return ToolName }

func (t *Tool) Description() string {
	return "Query VCU course schedule by course code or instructor last name."
}

func (t *Tool) Schema() tools.ArgSchema {
	return tools.ArgSchema{
		{Name: "course", Type: tools.TypeString, Description: "Course code prefix or full code, e.g., 'CMSC691'"},
		{Name: "instructor", Type: tools.TypeString, Description: "Instructor last name, e.g., 'Damevski'"},
		{Name: "max_rows", Type: tools.TypeInteger, Description: "If set, cap the number of returned rows."},
	}
}

// Execute implements tools.Tool.
func (t *Tool) Execute(ctx context.Context, args map[string]any) (any, error) {
	q := Query{
		Course:     tools.StringArg(args, "course"),
		Instructor: tools.StringArg(args, "instructor"),
	}
	if n, ok := tools.IntArg(args, "max_rows"); ok {
		if n < 0 {
			return nil, fmt.Errorf("%w: max_rows must be >= 0", tools.ErrInvalidArguments)
		}
		q.MaxRows = &n
	}

	tbl, err := t.table()
	if err != nil {
		return nil, err
	}
	rows := Filter(tbl, q)
	slog.DebugContext(ctx, "Course schedule query", "course", q.Course, "instructor", q.Instructor, "rows", len(rows.Rows))
	return rows.Records(), nil
}

// Filter applies q to tbl. Empty filters are ignored, both filters must
// match when set. When the filters match nothing, or no filter is set, the
// whole table is used. MaxRows keeps the head of the result.
func Filter(tbl *sheet.Table, q Query) *sheet.Table {
	out := tbl
	if q.Course != "" || q.Instructor != "" {
		matched := &sheet.Table{Headers: tbl.Headers}
		for _, r := range tbl.Rows {
			if cellContains(tbl, r, ColCourse, q.Course) && cellContains(tbl, r, ColInstructor, q.Instructor) {
				matched.Rows = append(matched.Rows, r)
			}
		}
		if len(matched.Rows) > 0 {
			out = matched
		}
	}

	if q.MaxRows != nil && *q.MaxRows < len(out.Rows) {
		out = &sheet.Table{Headers: out.Headers, Rows: out.Rows[:*q.MaxRows]}
	}
	return out
}

// cellContains is a case-insensitive substring test. A blank needle always
// matches; a missing column never does.
func cellContains(tbl *sheet.Table, row []string, col, needle string) bool {
	if needle == "" {
		return true
	}
	i, ok := tbl.Column(col)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(row[i]), strings.ToLower(needle))
}

// table returns the projected schedule, reloading it when the file changed.
func (t *Tool) table() (*sheet.Table, error) {
	info, err := os.Stat(t.path)
	if err != nil {
		return nil, fmt.Errorf("course schedule unavailable: %w", err)
	}
	stamp := fileStamp{mod: info.ModTime(), size: info.Size()}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.noCache && t.cached != nil && t.stamp == stamp {
		return t.cached, nil
	}

	raw, err := sheet.Load(t.path, t.sheet)
	if err != nil {
		return nil, fmt.Errorf("course schedule unavailable: %w", err)
	}
	tbl := raw.Project(KeepColumns)
	t.cached, t.stamp = tbl, stamp
	return tbl, nil
}

// Invalidate drops the cached table.
func (t *Tool) Invalidate() {
	t.mu.Lock()
	t.cached = nil
	t.mu.Unlock()
}

// Watch invalidates the cache whenever the spreadsheet is rewritten, until
// ctx is done.
func (t *Tool) Watch(ctx context.Context) {
	ch := config.WatchConfig(ctx, t.path)
	go func() {
		for range ch {
			slog.Info("Course schedule changed, dropping cache", "file", t.path)
			t.Invalidate()
		}
	}()
}
