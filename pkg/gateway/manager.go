package gateway

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"graddirector/pkg/monitor"
)

// ErrChannelNotFound is returned when a reply targets an unregistered channel.
var ErrChannelNotFound = errors.New("channel not found")

// GatewayManager owns the registered channels and routes messages between
// them and the message handler.
type GatewayManager struct {
	channels   map[string]Channel
	msgHandler MessageHandler
	monitor    monitor.Monitor
	started    []string
	mu         sync.RWMutex
}

// NewGatewayManager creates an empty GatewayManager.
func NewGatewayManager() *GatewayManager {
	return &GatewayManager{
		channels: make(map[string]Channel),
	}
}

// SetMessageHandler sets the function that processes every incoming message.
func (g *GatewayManager) SetMessageHandler(handler MessageHandler) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.msgHandler = handler
}

// SetMonitor sets the traffic monitor.
func (g *GatewayManager) SetMonitor(m monitor.Monitor) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.monitor = m
}

// Register adds a channel. A later channel with the same ID replaces it.
func (g *GatewayManager) Register(c Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channels[c.ID()] = c
}

// GetChannel looks a channel up by ID.
func (g *GatewayManager) GetChannel(id string) (Channel, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.channels[id]
	return c, ok
}

// ChannelIDs lists registered channel IDs in sorted order.
func (g *GatewayManager) ChannelIDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]string, 0, len(g.channels))
	for id := range g.channels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StartAll starts every registered channel in ID order. On failure the
// channels already started are stopped again.
func (g *GatewayManager) StartAll() error {
	for _, id := range g.ChannelIDs() {
		c, _ := g.GetChannel(id)
		slog.Info("Starting channel", "channel", id)
		if err := c.Start(g); err != nil {
			g.StopAll()
			return fmt.Errorf("failed to start channel %s: %w", id, err)
		}
		g.mu.Lock()
		g.started = append(g.started, id)
		g.mu.Unlock()
	}
	return nil
}

// StopAll stops the started channels in reverse start order.
func (g *GatewayManager) StopAll() {
	g.mu.Lock()
	started := g.started
	g.started = nil
	g.mu.Unlock()

	for i := len(started) - 1; i >= 0; i-- {
		id := started[i]
		c, ok := g.GetChannel(id)
		if !ok {
			continue
		}
		slog.Info("Stopping channel", "channel", id)
		if err := c.Stop(); err != nil {
			slog.Error("Error stopping channel", "channel", id, "error", err)
		}
	}
}

func (g *GatewayManager) mirror(kind string, session SessionContext, content string) {
	g.mu.RLock()
	m := g.monitor
	g.mu.RUnlock()
	if m == nil {
		return
	}
	m.OnMessage(monitor.MonitorMessage{
		Timestamp:   time.Now(),
		MessageType: kind,
		ChannelID:   session.ChannelID,
		Username:    session.Username,
		Content:     content,
	})
}

// SendReply routes content back to the channel the session belongs to.
func (g *GatewayManager) SendReply(session SessionContext, content string) error {
	slog.Debug("Gateway reply", "channel", session.ChannelID, "user", session.Username, "len", len(content))
	g.mirror(monitor.TypeAssistant, session, content)

	c, ok := g.GetChannel(session.ChannelID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrChannelNotFound, session.ChannelID)
	}
	return c.Send(session, content)
}

// SendSignal forwards a control signal to channels that support one.
// Channels without signal support ignore it.
func (g *GatewayManager) SendSignal(session SessionContext, signal string) error {
	c, ok := g.GetChannel(session.ChannelID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrChannelNotFound, session.ChannelID)
	}
	if sc, ok := c.(SignalingChannel); ok {
		return sc.SendSignal(session, signal)
	}
	return nil
}

// OnMessage implements ChannelContext. The handler runs on the caller's
// goroutine, so a channel regains control only after the reply was sent.
func (g *GatewayManager) OnMessage(channelID string, msg *UnifiedMessage) {
	if msg.Session.ChannelID == "" {
		msg.Session.ChannelID = channelID
	}
	slog.Info("Gateway received", "channel", channelID, "user", msg.Session.Username, "chat", msg.Session.ChatID, "len", len(msg.Content))
	g.mirror(monitor.TypeUser, msg.Session, msg.Content)

	g.mu.RLock()
	h := g.msgHandler
	g.mu.RUnlock()
	if h == nil {
		slog.Warn("No message handler set", "channel", channelID)
		return
	}
	h(msg)
}
