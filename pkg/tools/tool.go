package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"graddirector/pkg/llm"
)

// ErrUnknownTool is reported when the model names a tool that is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// ErrRegistrySealed is returned by Register after Seal.
var ErrRegistrySealed = errors.New("tool registry is sealed")

// Tool is a capability the model can call.
type Tool interface {
	Name() string
	Description() string
	Schema() ArgSchema
	// Execute runs the tool with validated arguments.
	Execute(ctx context.Context, args map[string]any) (any, error)
}

// Registry is the tool roster. It is filled at startup, then sealed and
// only read afterwards.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	sealed bool
}

// NewRegistry creates a registry holding tools. It fails on duplicates.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool when its name is not in use.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool is nil")
	}
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("register %s: %w", name, ErrRegistrySealed)
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.tools[name] = tool
	return nil
}

// Seal freezes the roster.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether Seal was called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names lists registered tool names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Definitions returns the provider-facing tool list, sorted by name.
func (r *Registry) Definitions() []llm.ToolDefinition {
	names := r.Names()
	defs := make([]llm.ToolDefinition, 0, len(names))
	for _, n := range names {
		t, _ := r.Get(n)
		defs = append(defs, llm.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema().JSONSchema(),
		})
	}
	return defs
}

// Invoke decodes and validates argsJSON, then runs the named tool.
// It never returns an error: unknown tools, bad arguments, execution
// errors and panics all become a failed Result.
func (r *Registry) Invoke(ctx context.Context, name string, argsJSON string) Result {
	args, err := ParseArguments(argsJSON)
	if err != nil {
		return FailedResult(name, "%v", err)
	}
	return r.InvokeArgs(ctx, name, args)
}

// InvokeArgs is Invoke for an already decoded argument map.
func (r *Registry) InvokeArgs(ctx context.Context, name string, args map[string]any) (res Result) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			slog.ErrorContext(ctx, "Tool panicked", "tool", name, "panic", p, "stack", string(debug.Stack()))
			res = FailedResult(name, "tool %s panicked: %v", name, p)
		}
		slog.InfoContext(ctx, "Tool invoked", "tool", name, "ok", res.OK, "duration", time.Since(start))
	}()

	t, ok := r.Get(name)
	if !ok {
		return FailedResult(name, "%v: %s (available: %v)", ErrUnknownTool, name, r.Names())
	}

	if args == nil {
		args = map[string]any{}
	}
	if err := Validate(t.Schema(), args); err != nil {
		return FailedResult(name, "%v", err)
	}

	data, err := t.Execute(ctx, args)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return FailedResult(name, "tool %s timed out: %v", name, err)
		}
		return FailedResult(name, "%v", err)
	}
	return OKResult(name, data)
}
