package relay

import (
	"fmt"
	"strings"
)

// Message is a normalized relay message.
type Message struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// ReadVariants lists the read payload shapes in the order they are tried.
// limit <= 0 omits the limit key.
func ReadVariants(channel string, limit int) []map[string]any {
	keys := []string{"channelId", "channel_id", "channel"}
	out := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		p := map[string]any{k: channel}
		if limit > 0 {
			p["limit"] = limit
		}
		out = append(out, p)
	}
	return out
}

// SendVariants lists the send payload shapes in the order they are tried.
// Reply keys are left out when replyTo is empty.
func SendVariants(channel, content, replyTo string) []map[string]any {
	shapes := []struct{ channel, content, reply string }{
		{"channelId", "content", "replyToMessageId"},
		{"channel_id", "content", "reply_to_id"},
		{"channel", "text", "reply_to"},
	}
	out := make([]map[string]any, 0, len(shapes))
	for _, s := range shapes {
		p := map[string]any{s.channel: channel, s.content: content}
		if replyTo != "" {
			p[s.reply] = replyTo
		}
		out = append(out, p)
	}
	return out
}

// ParseMessages decodes a read response. It accepts a JSON array of
// message objects or an object holding one under messages, data or items.
// Anything else yields an empty list.
func ParseMessages(raw string) []Message {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []Message{}
	}

	var v any
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return []Message{}
	}

	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case map[string]any:
		for _, k := range []string{"messages", "data", "items"} {
			if arr, ok := t[k].([]any); ok {
				items = arr
				break
			}
		}
	}

	out := make([]Message, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Message{
			ID:      firstString(m, "messageId", "message_id", "id"),
			Content: strings.TrimSpace(firstString(m, "content", "text")),
		})
	}
	return out
}

// firstString returns the first non-empty value among keys, stringified.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case nil:
			continue
		case string:
			if v != "" {
				return v
			}
		case fmt.Stringer:
			if s := v.String(); s != "" {
				return s
			}
		case bool:
			continue
		default:
			if s := fmt.Sprint(v); s != "" {
				return s
			}
		}
	}
	return ""
}
