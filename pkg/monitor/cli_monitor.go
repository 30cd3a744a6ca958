package monitor

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// CLIMonitor prints every message flowing through the gateway to a writer.
type CLIMonitor struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewCLIMonitor creates a monitor writing to w, or stdout when w is nil.
func NewCLIMonitor(w io.Writer) *CLIMonitor {
	if w == nil {
		w = os.Stdout
	}
	return &CLIMonitor{writer: w}
}

func (m *CLIMonitor) Start() error {
	fmt.Fprintln(m.writer, "----------------------------------------------------------------")
	fmt.Fprintln(m.writer, "Monitor active: all channel traffic appears here")
	fmt.Fprintln(m.writer, "----------------------------------------------------------------")
	return nil
}

func (m *CLIMonitor) Stop() error {
	return nil
}

// OnMessage prints one line per message, newlines in content flattened.
func (m *CLIMonitor) OnMessage(msg MonitorMessage) {
	timestamp := msg.Timestamp.Format("2006-01-02 15:04:05")
	content := strings.ReplaceAll(msg.Content, "\n", " ")

	var line string
	switch msg.MessageType {
	case TypeAssistant:
		line = fmt.Sprintf("[AI -> %s] %s", msg.ChannelID, content)
	case TypeError:
		line = fmt.Sprintf("[ERR %s] %s", msg.ChannelID, content)
	default:
		line = fmt.Sprintf("[%s/%s] %s", msg.ChannelID, msg.Username, content)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintf(m.writer, "\033[90m[%s]\033[0m %s\n", timestamp, line)
}
