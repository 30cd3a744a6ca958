package llm

// Role constants identify the author of a Message.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// StopReason constants define normalized reasons for LLM generation termination.
// All providers must normalize their native stop reasons to these values.
const (
	StopReasonStop     = "stop"     // Normal completion
	StopReasonLength   = "length"   // Output truncated due to token limit
	StopReasonToolUse  = "tool_use" // Model requested one or more tools
	StopReasonFiltered = "filtered" // Provider safety filter stopped output
)
