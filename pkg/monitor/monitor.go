package monitor

import "time"

// Message types mirrored to a Monitor.
const (
	TypeUser      = "USER"
	TypeAssistant = "ASSISTANT"
	TypeError     = "ERROR"
)

// MonitorMessage is one piece of traffic passing through the gateway.
type MonitorMessage struct {
	Timestamp   time.Time
	MessageType string
	ChannelID   string
	Username    string
	Content     string
}

// Monitor observes gateway traffic.
type Monitor interface {
	Start() error
	Stop() error
	OnMessage(msg MonitorMessage)
}
