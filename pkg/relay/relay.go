package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// ErrAllVariantsFailed is returned when every payload shape was rejected.
var ErrAllVariantsFailed = errors.New("relay: all payload variants failed")

// ErrToolNotFound is returned when the server lacks a configured tool.
var ErrToolNotFound = errors.New("relay: tool not found")

// ErrChannelNotAllowed is returned for channels outside the allowed set.
var ErrChannelNotAllowed = errors.New("relay: channel not allowed")

// Ack acknowledges a send. Variant is the index of the accepted payload.
type Ack struct {
	Variant   int    `json:"variant"`
	MessageID string `json:"message_id,omitempty"`
	Raw       string `json:"raw,omitempty"`
}

// Relay reads and sends channel messages through a Caller using the
// resolved relay tool names.
type Relay struct {
	caller   Caller
	sendTool string
	readTool string
	allowed  map[string]bool
}

// New creates a Relay. An empty allowed list permits every channel.
func New(caller Caller, sendTool, readTool string, allowed []string) *Relay {
	r := &Relay{caller: caller, sendTool: sendTool, readTool: readTool}
	if len(allowed) > 0 {
		r.allowed = make(map[string]bool, len(allowed))
		for _, c := range allowed {
			r.allowed[c] = true
		}
	}
	return r
}

func (r *Relay) check(channel string) error {
	if channel == "" {
		return fmt.Errorf("relay: channel is empty")
	}
	if r.allowed != nil && !r.allowed[channel] {
		return fmt.Errorf("%w: %s", ErrChannelNotAllowed, channel)
	}
	return nil
}

// Read fetches recent messages of channel, trying each read variant until
// one call succeeds. A successful call with an unreadable body yields an
// empty list.
func (r *Relay) Read(ctx context.Context, channel string, limit int) ([]Message, error) {
	if err := r.check(channel); err != nil {
		return nil, err
	}
	var errs []error
	for i, payload := range ReadVariants(channel, limit) {
		raw, err := r.caller.CallToolText(ctx, r.readTool, payload)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.DebugContext(ctx, "Relay read variant rejected", "channel", channel, "variant", i, "error", err)
			errs = append(errs, err)
			continue
		}
		return ParseMessages(raw), nil
	}
	return nil, fmt.Errorf("%w: read %s: %w", ErrAllVariantsFailed, channel, errors.Join(errs...))
}

// Send posts content to channel, optionally as a reply, trying each send
// variant until one is accepted.
func (r *Relay) Send(ctx context.Context, channel, content, replyTo string) (*Ack, error) {
	if err := r.check(channel); err != nil {
		return nil, err
	}
	var errs []error
	for i, payload := range SendVariants(channel, content, replyTo) {
		raw, err := r.caller.CallToolText(ctx, r.sendTool, payload)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.DebugContext(ctx, "Relay send variant rejected", "channel", channel, "variant", i, "error", err)
			errs = append(errs, err)
			continue
		}
		return &Ack{Variant: i, MessageID: sentMessageID(raw), Raw: raw}, nil
	}
	return nil, fmt.Errorf("%w: send %s: %w", ErrAllVariantsFailed, channel, errors.Join(errs...))
}

// sentMessageID pulls a message id out of a JSON send acknowledgement.
func sentMessageID(raw string) string {
	var m map[string]any
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return ""
	}
	return firstString(m, "messageId", "message_id", "id")
}

// ToolLister is the part of Client used for name resolution.
type ToolLister interface {
	ListTools(ctx context.Context) ([]ToolInfo, error)
}

// ResolveToolNames matches the configured send and read tool names against
// the server's tools case-insensitively and returns the server spelling.
func ResolveToolNames(ctx context.Context, lister ToolLister, send, read string) (string, string, error) {
	infos, err := lister.ListTools(ctx)
	if err != nil {
		return "", "", err
	}
	byLower := make(map[string]string, len(infos))
	have := make([]string, 0, len(infos))
	for _, ti := range infos {
		byLower[strings.ToLower(ti.Name)] = ti.Name
		have = append(have, ti.Name)
	}
	sort.Strings(have)

	sendName, okSend := byLower[strings.ToLower(send)]
	readName, okRead := byLower[strings.ToLower(read)]
	if !okSend || !okRead {
		return "", "", fmt.Errorf("%w: have: %s. need: %s, %s", ErrToolNotFound, strings.Join(have, ", "), send, read)
	}
	return sendName, readName, nil
}
