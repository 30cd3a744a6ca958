package llm

import (
	"time"

	"graddirector/pkg/utils"
)

//----------------------------------------------------------------
// Message - one turn of a conversation
//----------------------------------------------------------------

// Message is one immutable entry in a conversation history.
// A user turn has Role "user", an assistant turn has Role "assistant" and
// optionally ToolCalls, and a tool result turn has Role "tool" with
// ToolCallID linking it back to the call it answers.
type Message struct {
	ID        string `json:"id,omitempty"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp,omitempty"`

	// ToolCalls holds the model's tool requests (role: assistant only).
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID, ToolName and IsError describe a tool result (role: tool only).
	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
	IsError    bool   `json:"is_error,omitempty"`
}

// ToolCall is a structured tool request emitted by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON object text

	// Meta carries provider specific data (for example a Gemini thought
	// signature) that must be echoed back on the next request. Not serialized.
	Meta map[string]any `json:"-"`
}

// ToolDefinition is the provider-facing description of a registered tool.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON schema object
}

// Response is the outcome of one model invocation: either final text or a
// non-empty list of tool calls (some providers return both).
type Response struct {
	Text      string     `json:"text"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Usage     *LLMUsage  `json:"usage,omitempty"`
}

// HasToolCalls reports whether the model asked for at least one tool.
func (r *Response) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}

//----------------------------------------------------------------
// Helper Functions - Message
//----------------------------------------------------------------

// NewTextMessage builds a plain text message with a fresh id.
func NewTextMessage(role, text string) Message {
	return Message{
		ID:        utils.GenerateID(),
		Role:      role,
		Content:   text,
		Timestamp: time.Now().Unix(),
	}
}

// NewSystemMessage builds a system message.
func NewSystemMessage(text string) Message {
	return NewTextMessage(RoleSystem, text)
}

// NewUserMessage builds a user turn.
func NewUserMessage(text string) Message {
	return NewTextMessage(RoleUser, text)
}

// NewAssistantMessage builds an assistant turn, optionally carrying tool calls.
func NewAssistantMessage(text string, calls ...ToolCall) Message {
	m := NewTextMessage(RoleAssistant, text)
	if len(calls) > 0 {
		m.ToolCalls = append([]ToolCall(nil), calls...)
	}
	return m
}

// NewToolResultMessage builds a tool result turn answering callID.
func NewToolResultMessage(callID, toolName, payload string, isError bool) Message {
	m := NewTextMessage(RoleTool, payload)
	m.ToolCallID = callID
	m.ToolName = toolName
	m.IsError = isError
	return m
}

// IsToolResult reports whether m answers a tool call.
func (m *Message) IsToolResult() bool {
	return m.Role == RoleTool
}

// Clone returns a deep copy so that callers cannot mutate stored turns.
func (m Message) Clone() Message {
	if len(m.ToolCalls) > 0 {
		calls := make([]ToolCall, len(m.ToolCalls))
		copy(calls, m.ToolCalls)
		m.ToolCalls = calls
	}
	return m
}
