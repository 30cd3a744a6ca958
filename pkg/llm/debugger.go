package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

type contextKey string

// DebugDirContextKey nests exchange dumps under a per-conversation folder.
const DebugDirContextKey contextKey = "debug_dir"

// ExchangeDebugger writes the raw request and response of model invocations
// to debug/exchanges/<provider>/. A disabled debugger is a no-op.
type ExchangeDebugger struct {
	file    *os.File
	enabled bool
}

// NewExchangeDebugger opens a new dump file when enabled.
func NewExchangeDebugger(ctx context.Context, provider string, enabled bool) *ExchangeDebugger {
	if !enabled {
		return &ExchangeDebugger{enabled: false}
	}

	debugDir := filepath.Join("debug", "exchanges", provider)
	if dirStr, ok := ctx.Value(DebugDirContextKey).(string); ok && dirStr != "" {
		debugDir = filepath.Join("debug", "exchanges", dirStr, provider)
	}

	if err := os.MkdirAll(debugDir, 0755); err != nil {
		slog.Error("Failed to create debug directory", "dir", debugDir, "error", err)
		return &ExchangeDebugger{enabled: false}
	}

	timestamp := time.Now().Format("20060102_150405.000")
	filename := filepath.Join(debugDir, fmt.Sprintf("%s.log", timestamp))

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		slog.Error("Failed to open debug file", "file", filename, "error", err)
		return &ExchangeDebugger{enabled: false}
	}

	slog.Debug("Exchange debug ON", "provider", provider, "file", filename)
	return &ExchangeDebugger{file: f, enabled: true}
}

// Dump writes v as indented JSON under a label line.
func (d *ExchangeDebugger) Dump(label string, v any) {
	if !d.enabled || d.file == nil {
		return
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		data = []byte(fmt.Sprintf("%+v", v))
	}
	if _, err := fmt.Fprintf(d.file, "### %s\n%s\n", label, data); err != nil {
		slog.Warn("Failed to write to debug file", "error", err)
	}
}

// Close closes the dump file.
func (d *ExchangeDebugger) Close() {
	if d.file != nil {
		d.file.Close()
		d.file = nil
	}
}
