package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"graddirector/pkg/config"
	"graddirector/pkg/llm"
	"graddirector/pkg/monitor"
	"graddirector/pkg/tools"
	"graddirector/pkg/utils"
)

// ErrModelInvocation wraps any failure of the model call. It ends the turn.
var ErrModelInvocation = errors.New("model invocation failed")

// ErrEmptyInput is returned when the user text is blank.
var ErrEmptyInput = errors.New("empty user input")

// Result is the outcome of one user turn.
type Result struct {
	Text      string
	Rounds    int  // tool rounds executed
	ToolCalls int  // tool calls executed across all rounds
	Forced    bool // the round ceiling was reached and a no-tools call answered
	Degraded  bool // the answer was assembled locally from gathered results
}

// Observer receives progress callbacks while a turn runs. Implementations
// must not block.
type Observer interface {
	OnModelTurn(ctx context.Context, round int, msg llm.Message)
	OnToolResult(ctx context.Context, round int, res tools.Result)
}

// Option customizes an Engine.
type Option func(*Engine)

// WithPreamble replaces DefaultPreamble. Blank values are ignored.
func WithPreamble(p string) Option {
	return func(e *Engine) {
		if strings.TrimSpace(p) != "" {
			e.preamble = p
		}
	}
}

// WithObserver attaches an Observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// Engine drives the dialogue loop: model turn, tool turn, repeat until the
// model answers in text or the round ceiling is hit.
// It implements api.AgentEngine.
type Engine struct {
	client   llm.LLMClient
	registry *tools.Registry
	store    llm.Store
	sysCfg   *config.SystemConfig
	preamble string
	observer Observer

	locks sync.Map // conversationID -> *sync.Mutex
}

// NewEngine wires an Engine. A nil registry means no tools are offered and a
// nil store gets a fresh in-memory SessionManager.
func NewEngine(client llm.LLMClient, registry *tools.Registry, store llm.Store, sysCfg *config.SystemConfig, opts ...Option) *Engine {
	if sysCfg == nil {
		sysCfg = config.DefaultSystemConfig()
	}
	if store == nil {
		store = llm.NewSessionManager()
	}
	e := &Engine{
		client:   client,
		registry: registry,
		store:    store,
		sysCfg:   sysCfg,
		preamble: DefaultPreamble,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Clear drops the stored history of conversationID.
func (e *Engine) Clear(conversationID string) {
	unlock := e.lock(conversationID)
	defer unlock()
	e.store.Clear(conversationID)
}

// History returns a copy of the stored turns of conversationID.
func (e *Engine) History(conversationID string) []llm.Message {
	return e.store.Messages(conversationID)
}

// lock serializes turns of one conversation.
func (e *Engine) lock(conversationID string) func() {
	v, _ := e.locks.LoadOrStore(conversationID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (e *Engine) maxRounds() int {
	if e.sysCfg.MaxToolRounds <= 0 {
		return config.DefaultSystemConfig().MaxToolRounds
	}
	return e.sysCfg.MaxToolRounds
}

func (e *Engine) definitions() []llm.ToolDefinition {
	if !e.sysCfg.EnableTools || e.registry.Len() == 0 {
		return nil
	}
	return e.registry.Definitions()
}

// Run processes one user turn of conversationID to completion. Every turn it
// produces (user, assistant, tool result) is appended to the store. A model
// failure is returned wrapped in ErrModelInvocation and the turns stored so
// far stay in place.
func (e *Engine) Run(ctx context.Context, conversationID, userText string) (*Result, error) {
	if strings.TrimSpace(userText) == "" {
		return nil, ErrEmptyInput
	}
	unlock := e.lock(conversationID)
	defer unlock()

	ctx = monitor.WithConversation(ctx, conversationID)
	e.store.Append(conversationID, llm.NewUserMessage(userText))

	defs := e.definitions()
	maxRounds := e.maxRounds()
	res := &Result{}

	for {
		slog.DebugContext(ctx, "Model round start", "round", res.Rounds)
		resp, err := e.callModel(ctx, e.prompt(conversationID), defs)
		if err != nil {
			return nil, err
		}

		if !resp.HasToolCalls() {
			msg := llm.NewAssistantMessage(resp.Text)
			e.store.Append(conversationID, msg)
			e.notifyModel(ctx, res.Rounds, msg)
			res.Text = resp.Text
			slog.InfoContext(ctx, "Turn finished", "rounds", res.Rounds, "tool_calls", res.ToolCalls)
			return res, nil
		}

		if res.Rounds >= maxRounds {
			slog.WarnContext(ctx, "Tool round ceiling reached", "max_tool_rounds", maxRounds, "pending_calls", len(resp.ToolCalls))
			return e.finish(ctx, conversationID, resp, res)
		}

		calls := assignCallIDs(resp.ToolCalls)
		msg := llm.NewAssistantMessage(resp.Text, calls...)
		e.store.Append(conversationID, msg)
		e.notifyModel(ctx, res.Rounds, msg)

		for _, call := range calls {
			tr := e.callTool(ctx, call)
			e.store.Append(conversationID, llm.NewToolResultMessage(call.ID, tr.Tool, tr.Payload(), !tr.OK))
			if e.observer != nil {
				e.observer.OnToolResult(ctx, res.Rounds, tr)
			}
			res.ToolCalls++
		}
		res.Rounds++
		slog.DebugContext(ctx, "Model round end", "round", res.Rounds, "tool_calls", len(calls))
	}
}

// finish makes the single no-tools call allowed past the ceiling. The pending
// calls in last are never stored since they have no results.
func (e *Engine) finish(ctx context.Context, conversationID string, last *llm.Response, res *Result) (*Result, error) {
	msgs := append(e.prompt(conversationID), llm.NewSystemMessage(finalAnswerInstruction))
	resp, err := e.callModel(ctx, msgs, nil)
	if err != nil {
		return nil, err
	}
	res.Forced = true

	text := strings.TrimSpace(resp.Text)
	if resp.HasToolCalls() || text == "" {
		res.Degraded = true
		text = e.degradedAnswer(conversationID, resp.Text, last.Text)
	}

	msg := llm.NewAssistantMessage(text)
	e.store.Append(conversationID, msg)
	e.notifyModel(ctx, res.Rounds, msg)
	res.Text = text
	slog.InfoContext(ctx, "Turn finished at ceiling", "rounds", res.Rounds, "tool_calls", res.ToolCalls, "degraded", res.Degraded)
	return res, nil
}

// degradedAnswer joins the latest assistant text with the successful tool
// payloads gathered since the last user turn. candidates are checked first,
// then the stored assistant turns from newest to oldest.
func (e *Engine) degradedAnswer(conversationID string, candidates ...string) string {
	history := e.store.Messages(conversationID)
	start := 0
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == llm.RoleUser {
			start = i + 1
			break
		}
	}
	turn := history[start:]

	var lastText string
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			lastText = c
			break
		}
	}
	for i := len(turn) - 1; i >= 0 && lastText == ""; i-- {
		if turn[i].Role == llm.RoleAssistant {
			lastText = strings.TrimSpace(turn[i].Content)
		}
	}

	var sb strings.Builder
	sb.WriteString(degradedIntro)
	if lastText != "" {
		sb.WriteString("\n\n")
		sb.WriteString(lastText)
	}
	for _, m := range turn {
		if !m.IsToolResult() || m.IsError || strings.TrimSpace(m.Content) == "" {
			continue
		}
		fmt.Fprintf(&sb, "\n\n[%s] %s", m.ToolName, m.Content)
	}
	return sb.String()
}

// prompt is the preamble followed by the stored history.
func (e *Engine) prompt(conversationID string) []llm.Message {
	history := e.store.Messages(conversationID)
	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.NewSystemMessage(e.preamble))
	return append(msgs, history...)
}

func (e *Engine) callModel(ctx context.Context, msgs []llm.Message, defs []llm.ToolDefinition) (*llm.Response, error) {
	if e.client == nil {
		return nil, fmt.Errorf("%w: no model client", ErrModelInvocation)
	}
	callCtx, cancel := withTimeout(ctx, e.sysCfg.LLMTimeoutMs)
	defer cancel()

	resp, err := e.client.Chat(callCtx, msgs, defs)
	if err != nil {
		slog.ErrorContext(ctx, "Model call failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrModelInvocation, err)
	}
	if resp == nil {
		resp = &llm.Response{}
	}
	return resp, nil
}

func (e *Engine) callTool(ctx context.Context, call llm.ToolCall) tools.Result {
	callCtx, cancel := withTimeout(ctx, e.sysCfg.ToolTimeoutMs)
	defer cancel()

	name := strings.TrimPrefix(call.Name, "functions.")
	res := e.registry.Invoke(callCtx, name, call.Arguments)
	res.CallID = call.ID
	if res.Tool == "" {
		res.Tool = name
	}
	return res
}

func (e *Engine) notifyModel(ctx context.Context, round int, msg llm.Message) {
	if e.observer != nil {
		e.observer.OnModelTurn(ctx, round, msg.Clone())
	}
}

// assignCallIDs fills missing ids and replaces duplicates so every tool
// result links to exactly one call.
func assignCallIDs(calls []llm.ToolCall) []llm.ToolCall {
	out := make([]llm.ToolCall, len(calls))
	seen := make(map[string]bool, len(calls))
	for i, c := range calls {
		if c.ID == "" || seen[c.ID] {
			c.ID = utils.GenerateCallID()
		}
		seen[c.ID] = true
		out[i] = c
	}
	return out
}

func withTimeout(ctx context.Context, ms int) (context.Context, context.CancelFunc) {
	if ms <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(ms)*time.Millisecond)
}

// Reply implements api.AgentEngine.
func (e *Engine) Reply(ctx context.Context, conversationID, text string) (string, error) {
	res, err := e.Run(ctx, conversationID, text)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}
