package cmd

import (
	"bytes"
	"context"
	"testing"

	"graddirector/pkg/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listedTool struct {
	name   string
	schema tools.ArgSchema
}

func (t listedTool) Name() string { return t.name }
func (t listedTool) Description() string { return "does " + t.name }
func (t listedTool) Schema() tools.ArgSchema { return t.schema }
func (t listedTool) Execute(context.Context, map[string]any) (any, error) { return nil, nil }

func TestRootCommandTree(t *testing.T) {
	root := NewRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "chat", "eval", "tools"})

	for _, flag := range []string{"config", "system", "log-level"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}

	toolsCmd, _, err := root.Find([]string{"tools", "probe"})
	require.NoError(t, err)
	assert.Equal(t, "probe", toolsCmd.Name())

	evalCmd, _, err := root.Find([]string{"eval"})
	require.NoError(t, err)
	for _, flag := range []string{"dataset", "max-rows", "out"} {
		assert.NotNil(t, evalCmd.Flags().Lookup(flag), flag)
	}
}

func TestSystemLogLevelOverride(t *testing.T) {
	opts := &globalOptions{systemPath: "does-not-exist.json", logLevel: "debug"}
	sys := opts.system()
	assert.Equal(t, "debug", sys.LogLevel)
	assert.Equal(t, 5, sys.MaxToolRounds)
}

func TestPrintRoster(t *testing.T) {
	reg, err := tools.NewRegistry(
		listedTool{name: "web_search", schema: tools.ArgSchema{{Name: "query", Type: tools.TypeString, Required: true}}},
		listedTool{name: "noop"},
	)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printRoster(&buf, reg))
	out := buf.String()
	assert.Contains(t, out, "TOOL")
	assert.Contains(t, out, "query:string*")
	assert.Contains(t, out, "does noop")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("noop")), bytes.Index(buf.Bytes(), []byte("web_search")))
}

func TestArgSummary(t *testing.T) {
	assert.Equal(t, "-", argSummary(nil))
	assert.Equal(t, "course:string, max_rows:integer", argSummary(tools.ArgSchema{
		{Name: "course", Type: tools.TypeString},
		{Name: "max_rows", Type: tools.TypeInteger},
	}))
}
