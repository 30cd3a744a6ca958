package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"graddirector/pkg/api"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ChannelID is the gateway id of the websocket channel.
const ChannelID = "web"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the UI is served separately
	},
}

// WebConfig configures the websocket listener.
type WebConfig struct {
	Port     int  `json:"port"`
	Disabled bool `json:"disabled,omitempty"`
}

// IncomingMessage is a client frame. Plain-text frames are accepted too.
type IncomingMessage struct {
	Text string `json:"text"`
}

// Frame is a server frame: "signal" with Value, "text" with Text, or "done".
type Frame struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Value string `json:"value,omitempty"`
}

// SafeConn serializes writes on a websocket connection.
type SafeConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (sc *SafeConn) WriteFrame(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.Conn.WriteMessage(websocket.TextMessage, data)
}

// WebChannel serves /ws. Each connection is its own conversation.
type WebChannel struct {
	config      WebConfig
	server      *http.Server
	connections map[string]*SafeConn // UserID -> connection
	mu          sync.RWMutex
}

func NewWebChannel(cfg WebConfig) *WebChannel {
	return &WebChannel{
		config:      cfg,
		connections: make(map[string]*SafeConn),
	}
}

func (c *WebChannel) ID() string {
	return ChannelID
}

// Handler returns the HTTP handler routing messages into ctx.
func (c *WebChannel) Handler(ctx api.ChannelContext) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		c.handleWebSocket(w, r, ctx)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (c *WebChannel) Start(ctx api.ChannelContext) error {
	addr := fmt.Sprintf(":%d", c.config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("web listen %s: %w", addr, err)
	}
	c.server = &http.Server{
		Handler:           c.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("Web API listening", "addr", ln.Addr().String())

	go func() {
		if err := c.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Web API server error", "error", err)
		}
	}()
	return nil
}

func (c *WebChannel) Stop() error {
	if c.server != nil {
		return c.server.Close()
	}
	return nil
}

func (c *WebChannel) conn(session api.SessionContext) (*SafeConn, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	conn, ok := c.connections[session.UserID]
	if !ok {
		return nil, fmt.Errorf("web user %s not connected", session.UserID)
	}
	return conn, nil
}

func (c *WebChannel) Send(session api.SessionContext, message string) error {
	conn, err := c.conn(session)
	if err != nil {
		return err
	}
	return conn.WriteFrame(Frame{Type: "text", Text: message})
}

// SendSignal implements api.SignalingChannel. SignalDone becomes a "done" frame.
func (c *WebChannel) SendSignal(session api.SessionContext, signal string) error {
	conn, err := c.conn(session)
	if err != nil {
		return err
	}
	if signal == api.SignalDone {
		return conn.WriteFrame(Frame{Type: "done"})
	}
	return conn.WriteFrame(Frame{Type: "signal", Value: signal})
}

// decodeIncoming accepts {"text": ...} or a plain-text frame.
func decodeIncoming(data []byte) string {
	var incoming IncomingMessage
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") && json.Unmarshal(data, &incoming) == nil {
		return incoming.Text
	}
	return trimmed
}

func (c *WebChannel) handleWebSocket(w http.ResponseWriter, r *http.Request, ctx api.ChannelContext) {
	rawConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WS upgrade failed", "error", err)
		return
	}
	conn := &SafeConn{Conn: rawConn}

	userID := uuid.NewString()
	c.mu.Lock()
	c.connections[userID] = conn
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.connections, userID)
		c.mu.Unlock()
		conn.Close()
	}()

	session := api.SessionContext{
		ChannelID: ChannelID,
		UserID:    userID,
		ChatID:    userID,
		Username:  "WebUser",
	}
	slog.Debug("WS connected", "user", userID, "remote", r.RemoteAddr)

	// Frames are handled one at a time, so one connection never runs two
	// turns at once.
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		content := decodeIncoming(data)
		if content == "" {
			continue
		}
		ctx.OnMessage(c.ID(), &api.UnifiedMessage{
			Session: session,
			Content: content,
		})
	}
}
