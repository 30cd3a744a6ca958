package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"graddirector/pkg/api"
	"graddirector/pkg/gateway"
	"graddirector/pkg/monitor"
)

// Reply texts shown to users.
const (
	EmptyAnswerText = "I didn’t produce a response."
	ErrorHint       = "Please check your API keys and internet connection."
	ClearedText     = "Conversation cleared."
	HelpText        = "Ask me about VCU CS graduate programs, admissions, requirements or the course schedule.\n/clear starts a new conversation."
)

// FormatError renders a terminal turn error for the user.
func FormatError(err error) string {
	return fmt.Sprintf("❌ Error: %v\n%s", err, ErrorHint)
}

// AnswerText maps an engine outcome to the text sent back to the user.
func AnswerText(answer string, err error) string {
	if err != nil {
		return FormatError(err)
	}
	if strings.TrimSpace(answer) == "" {
		return EmptyAnswerText
	}
	return answer
}

// ChatHandler turns incoming gateway messages into engine turns and sends
// the answers back through the responder.
// It implements api.GatewayHandler.
type ChatHandler struct {
	ctx       context.Context
	engine    api.AgentEngine
	responder api.MessageResponder
}

// NewChatHandler creates a handler. Runs are cancelled when ctx is done.
func NewChatHandler(ctx context.Context, engine api.AgentEngine) *ChatHandler {
	if ctx == nil {
		ctx = context.Background()
	}
	return &ChatHandler{ctx: ctx, engine: engine}
}

// SetResponder implements api.ResponderAware.
func (h *ChatHandler) SetResponder(responder api.MessageResponder) {
	h.responder = responder
}

// OnMessage processes one message to completion on the caller's goroutine.
func (h *ChatHandler) OnMessage(msg *gateway.UnifiedMessage) {
	content := strings.TrimSpace(msg.Content)
	if content == "" || h.responder == nil {
		return
	}
	conv := msg.Session.ConversationID()
	ctx := monitor.WithConversation(h.ctx, conv)

	if strings.HasPrefix(content, "/") && h.handleSlashCommand(ctx, msg.Session, conv, content) {
		return
	}

	start := time.Now()
	if err := h.responder.SendSignal(msg.Session, api.SignalThinking); err != nil {
		slog.DebugContext(ctx, "Signal failed", "channel", msg.Session.ChannelID, "error", err)
	}

	answer, err := h.engine.Reply(ctx, conv, content)
	if err != nil {
		slog.ErrorContext(ctx, "Turn failed", "channel", msg.Session.ChannelID, "error", err)
	}
	h.reply(ctx, msg.Session, AnswerText(answer, err))
	slog.InfoContext(ctx, "Turn handled", "channel", msg.Session.ChannelID, "duration", time.Since(start).String(), "ok", err == nil)

	if err := h.responder.SendSignal(msg.Session, api.SignalDone); err != nil {
		slog.DebugContext(ctx, "Signal failed", "channel", msg.Session.ChannelID, "error", err)
	}
}

// handleSlashCommand reports whether content was a command it handled.
// Unknown commands go to the engine as ordinary text.
func (h *ChatHandler) handleSlashCommand(ctx context.Context, session api.SessionContext, conv, content string) bool {
	cmd := strings.ToLower(strings.Fields(content)[0])
	switch cmd {
	case "/clear", "/reset":
		h.engine.Clear(conv)
		h.reply(ctx, session, ClearedText)
	case "/help", "/start":
		h.reply(ctx, session, HelpText)
	default:
		return false
	}
	return true
}

func (h *ChatHandler) reply(ctx context.Context, session api.SessionContext, text string) {
	if err := h.responder.SendReply(session, text); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		slog.ErrorContext(ctx, fmt.Sprintf("send_message failed for channel %s", session.ChatID), "channel", session.ChannelID, "error", err)
	}
}
