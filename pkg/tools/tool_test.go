package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTool struct {
	name   string
	schema ArgSchema
	fn     func(ctx context.Context, args map[string]any) (any, error)
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return "fake " + f.name }
func (f *fakeTool) Schema() ArgSchema   { return f.schema }
func (f *fakeTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	return f.fn(ctx, args)
}

func echoTool() *fakeTool {
	return &fakeTool{
		name: "echo",
		schema: ArgSchema{
			{Name: "text", Type: TypeString, Required: true},
			{Name: "times", Type: TypeInteger},
		},
		fn: func(_ context.Context, args map[string]any) (any, error) {
			return args["text"], nil
		},
	}
}

func TestRegisterRejectsDuplicatesAndSealed(t *testing.T) {
	reg, err := NewRegistry(echoTool())
	require.NoError(t, err)

	assert.Error(t, reg.Register(echoTool()))

	reg.Seal()
	assert.True(t, reg.Sealed())
	err = reg.Register(&fakeTool{name: "late"})
	assert.ErrorIs(t, err, ErrRegistrySealed)
	assert.Equal(t, []string{"echo"}, reg.Names())
}

func TestInvoke(t *testing.T) {
	reg, err := NewRegistry(echoTool())
	require.NoError(t, err)

	res := reg.Invoke(context.Background(), "echo", `{"text":"hi","times":2}`)
	assert.True(t, res.OK)
	assert.Equal(t, "hi", res.Payload())
}

func TestInvokeFailures(t *testing.T) {
	boom := &fakeTool{name: "boom", fn: func(context.Context, map[string]any) (any, error) {
		return nil, errors.New("upstream down")
	}}
	panicky := &fakeTool{name: "panicky", fn: func(context.Context, map[string]any) (any, error) {
		panic("nil map")
	}}
	reg, err := NewRegistry(echoTool(), boom, panicky)
	require.NoError(t, err)

	tests := []struct {
		name   string
		tool   string
		args   string
		reason string
	}{
		{"unknown tool", "nope", `{}`, "unknown tool"},
		{"not an object", "echo", `[1,2]`, "arguments must be a JSON object"},
		{"missing required", "echo", `{}`, "missing required field: text"},
		{"null required", "echo", `{"text":null}`, "missing required field: text"},
		{"wrong type", "echo", `{"text":3}`, "expected string"},
		{"fractional integer", "echo", `{"text":"a","times":1.5}`, "expected integer"},
		{"unknown field", "echo", `{"text":"a","loud":true}`, "unknown field: loud"},
		{"execution error", "boom", ``, "upstream down"},
		{"panic", "panicky", `{}`, "panicked"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := reg.Invoke(context.Background(), tt.tool, tt.args)
			assert.False(t, res.OK)
			assert.Contains(t, res.Reason, tt.reason)
			assert.Contains(t, res.Payload(), "error")
		})
	}
}

func TestValidateDropsNullOptionals(t *testing.T) {
	args := map[string]any{"text": "a", "times": nil}
	require.NoError(t, Validate(echoTool().schema, args))
	_, ok := args["times"]
	assert.False(t, ok)
}

func TestDefinitionsSorted(t *testing.T) {
	reg, err := NewRegistry(&fakeTool{name: "zeta"}, echoTool())
	require.NoError(t, err)

	defs := reg.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "echo", defs[0].Name)
	assert.Equal(t, "zeta", defs[1].Name)
	assert.Equal(t, []string{"text"}, defs[0].Parameters["required"])
}

func TestPayload(t *testing.T) {
	assert.Equal(t, "plain", OKResult("t", "plain").Payload())
	assert.Equal(t, `[{"a":"1"}]`, OKResult("t", []map[string]string{{"a": "1"}}).Payload())
	assert.Equal(t, `{"error": "bad \"x\""}`, FailedResult("t", "bad %q", "x").Payload())
}

func TestNilRegistryIsEmpty(t *testing.T) {
	var reg *Registry
	assert.Zero(t, reg.Len())
	assert.Empty(t, reg.Definitions())
}
