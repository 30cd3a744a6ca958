package monitor

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCustomHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCustomHandler(&buf, slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := WithConversation(context.Background(), "conv-1")
	logger.With("tool", "web_search").InfoContext(ctx, "Tool invoked", "ok", true)

	out := buf.String()
	assert.Contains(t, out, "[INFO] [conv-1] Tool invoked")
	assert.Contains(t, out, `tool="web_search"`)
	assert.Contains(t, out, "ok=true")
}

func TestCustomHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	h := NewCustomHandler(&buf, slog.HandlerOptions{Level: ParseLevel("warn")})
	logger := slog.New(h)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[WARN] shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestConversationFromEmpty(t *testing.T) {
	assert.Empty(t, ConversationFrom(context.Background()))
	assert.Equal(t, context.Background(), WithConversation(context.Background(), ""))
}

func TestCLIMonitorOnMessage(t *testing.T) {
	var buf bytes.Buffer
	m := NewCLIMonitor(&buf)
	m.OnMessage(MonitorMessage{
		Timestamp:   time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC),
		MessageType: TypeUser,
		ChannelID:   "web",
		Username:    "alice",
		Content:     "line one\nline two",
	})
	m.OnMessage(MonitorMessage{Timestamp: time.Now(), MessageType: TypeAssistant, ChannelID: "web", Content: "hi"})

	out := buf.String()
	assert.Contains(t, out, "[web/alice] line one line two")
	assert.Contains(t, out, "[AI -> web] hi")
}
