package relay

import (
	"context"

	"graddirector/pkg/tools"
)

// Tool names exposed to the model.
const (
	ReadToolName = "relay_read"
	SendToolName = "relay_send"
)

// DefaultReadLimit is used when the model gives no limit.
const DefaultReadLimit = 5

// ReadTool lets the model read recent channel messages.
type ReadTool struct{ relay *Relay }

// NewReadTool wraps r as a model-callable tool.
func NewReadTool(r *Relay) *ReadTool { return &ReadTool{relay: r} }

func (t *ReadTool) Name() string { return ReadToolName }

func (t *ReadTool) Description() string {
	return "Read the most recent messages of a chat channel. Returns a list of {id, content}."
}

func (t *ReadTool) Schema() tools.ArgSchema {
	return tools.ArgSchema{
		{Name: "channel", Type: tools.TypeString, Required: true, Description: "Channel id"},
		{Name: "limit", Type: tools.TypeInteger, Description: "Maximum number of messages"},
	}
}

func (t *ReadTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	limit, ok := tools.IntArg(args, "limit")
	if !ok || limit <= 0 {
		limit = DefaultReadLimit
	}
	return t.relay.Read(ctx, tools.StringArg(args, "channel"), limit)
}

// SendTool lets the model post a message to a chat channel.
type SendTool struct{ relay *Relay }

// NewSendTool wraps r as a model-callable tool.
func NewSendTool(r *Relay) *SendTool { return &SendTool{relay: r} }

func (t *SendTool) Name() string { return SendToolName }

func (t *SendTool) Description() string {
	return "Send a message to a chat channel, optionally as a reply to a message id."
}

func (t *SendTool) Schema() tools.ArgSchema {
	return tools.ArgSchema{
		{Name: "channel", Type: tools.TypeString, Required: true, Description: "Channel id"},
		{Name: "content", Type: tools.TypeString, Required: true, Description: "Message text"},
		{Name: "reply_to", Type: tools.TypeString, Description: "Message id to reply to"},
	}
}

func (t *SendTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	// content is left untrimmed
	content, _ := args["content"].(string)
	return t.relay.Send(ctx, tools.StringArg(args, "channel"), content, tools.StringArg(args, "reply_to"))
}
