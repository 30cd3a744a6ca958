package schedule

import (
	"context"
	"path/filepath"
	"testing"

	"graddirector/pkg/config"
	"graddirector/pkg/sheet"
	"graddirector/pkg/tools"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/goleak"
)

func writeSchedule(t *testing.T, path string, rows [][]any) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := r
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
}

var fixture = [][]any{
	{"COURSE", "TITLE", "CRN", "PRIMARY\nINSTRUCTOR\nLAST NAME", "INTERNAL NOTE"},
	{"CMSC 691", "Software Analytics", "40001", "Damevski", "x"},
	{"CMSC 601", "Research Methods", "40002", "Smith", "y"},
	{"CMSC 691", "Deep Learning", "40003", "Ghosh", "z"},
	{"CMSC 635", "Knowledge Discovery", "40004", "DAMEVSKI", "w"},
}

func newTool(t *testing.T) *Tool {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedule.xlsx")
	writeSchedule(t, path, fixture)
	return New(config.CourseScheduleConfig{Path: path})
}

func courses(rows []map[string]string) []string {
	var out []string
	for _, r := range rows {
		out = append(out, r[ColCourse]+"/"+r["CRN"])
	}
	return out
}

func run(t *testing.T, tool *Tool, args map[string]any) []map[string]string {
	t.Helper()
	out, err := tool.Execute(context.Background(), args)
	require.NoError(t, err)
	return out.([]map[string]string)
}

func TestInstructorFilterIsCaseInsensitive(t *testing.T) {
	rows := run(t, newTool(t), map[string]any{"instructor": "damevski"})
	assert.Equal(t, []string{"CMSC 691/40001", "CMSC 635/40004"}, courses(rows))
}

func TestCourseAndInstructorCombine(t *testing.T) {
	rows := run(t, newTool(t), map[string]any{"course": "cmsc 691", "instructor": "Ghosh"})
	assert.Equal(t, []string{"CMSC 691/40003"}, courses(rows))
}

func TestNoMatchReturnsFullTable(t *testing.T) {
	rows := run(t, newTool(t), map[string]any{"course": "PHYS 101"})
	assert.Len(t, rows, 4)
}

func TestMaxRowsKeepsHead(t *testing.T) {
	tool := newTool(t)

	rows := run(t, tool, map[string]any{"max_rows": float64(2)})
	assert.Equal(t, []string{"CMSC 691/40001", "CMSC 601/40002"}, courses(rows))

	rows = run(t, tool, map[string]any{"max_rows": float64(0)})
	assert.Empty(t, rows)

	rows = run(t, tool, map[string]any{"max_rows": float64(99)})
	assert.Len(t, rows, 4)
}

func TestNegativeMaxRowsFails(t *testing.T) {
	reg, err := tools.NewRegistry(newTool(t))
	require.NoError(t, err)

	res := reg.Invoke(context.Background(), ToolName, `{"max_rows": -1}`)
	assert.False(t, res.OK)
	assert.Contains(t, res.Reason, "max_rows")
}

func TestOnlyKeptColumnsAreReturned(t *testing.T) {
	rows := run(t, newTool(t), map[string]any{"max_rows": float64(1)})
	require.Len(t, rows, 1)
	assert.Equal(t, map[string]string{
		"COURSE":      "CMSC 691",
		"TITLE":       "Software Analytics",
		"CRN":         "40001",
		ColInstructor: "Damevski",
	}, rows[0])
}

func TestRepeatedQueriesAreIdentical(t *testing.T) {
	tool := newTool(t)
	args := map[string]any{"course": "CMSC"}
	first := run(t, tool, args)
	second := run(t, tool, args)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("rows differ (-first +second):\n%s", diff)
	}
}

func TestReloadsWhenFileChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.xlsx")
	writeSchedule(t, path, fixture)
	tool := New(config.CourseScheduleConfig{Path: path})
	assert.Len(t, run(t, tool, nil), 4)

	writeSchedule(t, path, append(fixture, []any{"CMSC 678", "Machine Learning", "40005", "Kecman", "v"}))
	assert.Len(t, run(t, tool, nil), 5)
}

func TestMissingFileIsToolFailure(t *testing.T) {
	tool := New(config.CourseScheduleConfig{Path: filepath.Join(t.TempDir(), "absent.xlsx")})
	_, err := tool.Execute(context.Background(), map[string]any{})
	assert.ErrorContains(t, err, "course schedule unavailable")
}

func TestFilterMissingColumnFallsBack(t *testing.T) {
	tbl := &sheet.Table{
		Headers: []string{ColCourse},
		Rows:    [][]string{{"CMSC 691"}, {"CMSC 601"}},
	}
	out := Filter(tbl, Query{Instructor: "Damevski"})
	assert.Equal(t, tbl.Rows, out.Rows)
}

func TestSchemaRendersForProviders(t *testing.T) {
	s := newTool(t).Schema().JSONSchema()
	assert.Equal(t, "object", s["type"])
	assert.Empty(t, s["required"])
	props := s["properties"].(map[string]any)
	assert.Contains(t, props, "course")
	assert.Contains(t, props, "instructor")
	assert.Contains(t, props, "max_rows")
}

func TestWatchStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	tool := newTool(t)
	ctx, cancel := context.WithCancel(context.Background())
	tool.Watch(ctx)
	cancel()
}
