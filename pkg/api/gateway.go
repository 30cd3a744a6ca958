package api

import "fmt"

// Signals understood by SignalingChannel implementations.
const (
	SignalThinking = "thinking" // a turn is being processed
	SignalDone     = "done"     // the turn finished and the reply was sent
)

// Channel defines the standardized lifecycle interface for communication platforms.
type Channel interface {
	ID() string
	Start(ctx ChannelContext) error
	Stop() error
	Send(session SessionContext, message string) error
}

// SignalingChannel is an optional extension of the Channel interface for
// platforms that can show a working indicator.
type SignalingChannel interface {
	Channel
	SendSignal(session SessionContext, signal string) error
}

// ChannelContext provides the interface for a Channel implementation to
// communicate back with the Gateway core.
type ChannelContext interface {
	MessageResponder
	OnMessage(channelID string, msg *UnifiedMessage)
}

// MessageResponder defines the capabilities for sending responses back to a channel.
type MessageResponder interface {
	SendReply(session SessionContext, content string) error
	SendSignal(session SessionContext, signal string) error
}

// UnifiedMessage is an incoming user message, independent of platform.
type UnifiedMessage struct {
	Session SessionContext // where the message came from and where replies go
	Content string         // text content
	Raw     any            // optional platform payload
}

// SessionContext encapsulates identity and routing information for a specific
// conversation unit on a specific communication channel.
type SessionContext struct {
	ChannelID string // channel that originated the session (e.g., "telegram")
	UserID    string // platform user id
	ChatID    string // platform chat, group or room id (may match UserID for DMs)
	Username  string // display name
	ReplyToID string // platform message id being answered, if the platform threads replies
}

// ConversationID is the history key of the session: one conversation per
// chat on each channel.
func (s SessionContext) ConversationID() string {
	chat := s.ChatID
	if chat == "" {
		chat = s.UserID
	}
	return fmt.Sprintf("%s:%s", s.ChannelID, chat)
}

// MessageHandler defines the function signature for processing incoming messages.
// It implements the MessageProcessor interface.
type MessageHandler func(*UnifiedMessage)

// OnMessage allows MessageHandler to satisfy the MessageProcessor interface.
func (h MessageHandler) OnMessage(msg *UnifiedMessage) {
	h(msg)
}

// MessageProcessor defines the interface for components that can process incoming messages.
type MessageProcessor interface {
	OnMessage(msg *UnifiedMessage)
}

// ResponderAware defines an interface for components that require a MessageResponder to be injected.
type ResponderAware interface {
	SetResponder(responder MessageResponder)
}

// GatewayHandler is a composite interface for components that handle incoming
// messages AND are aware of the responder (e.g., ChatHandler).
type GatewayHandler interface {
	MessageProcessor
	ResponderAware
}
