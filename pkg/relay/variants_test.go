package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadVariantsOrder(t *testing.T) {
	assert.Equal(t, []map[string]any{
		{"channelId": "42", "limit": 5},
		{"channel_id": "42", "limit": 5},
		{"channel": "42", "limit": 5},
	}, ReadVariants("42", 5))

	assert.Equal(t, map[string]any{"channelId": "42"}, ReadVariants("42", 0)[0])
}

func TestSendVariantsOrder(t *testing.T) {
	assert.Equal(t, []map[string]any{
		{"channelId": "42", "content": "hi", "replyToMessageId": "m1"},
		{"channel_id": "42", "content": "hi", "reply_to_id": "m1"},
		{"channel": "42", "text": "hi", "reply_to": "m1"},
	}, SendVariants("42", "hi", "m1"))
}

func TestSendVariantsOmitReplyKeys(t *testing.T) {
	assert.Equal(t, []map[string]any{
		{"channelId": "42", "content": "hi"},
		{"channel_id": "42", "content": "hi"},
		{"channel": "42", "text": "hi"},
	}, SendVariants("42", "hi", ""))
}

func TestParseMessages(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []Message
	}{
		{"empty", "", []Message{}},
		{"not json", "Retrieved 2 messages", []Message{}},
		{"scalar", `"hello"`, []Message{}},
		{
			"array with mixed keys",
			`[{"messageId":"1","content":" hi "},{"message_id":"2","text":"yo"},{"id":1234567890123456789,"content":"big"}]`,
			[]Message{{ID: "1", Content: "hi"}, {ID: "2", Content: "yo"}, {ID: "1234567890123456789", Content: "big"}},
		},
		{
			"wrapped",
			`{"messages":[{"id":"9","content":"x"}]}`,
			[]Message{{ID: "9", Content: "x"}},
		},
		{
			"data wrapper skips non objects",
			`{"data":["junk",{"id":"3","text":"y"}]}`,
			[]Message{{ID: "3", Content: "y"}},
		},
		{"object without list", `{"ok":true}`, []Message{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseMessages(tt.raw))
		})
	}
}
