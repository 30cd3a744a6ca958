package telegram

import (
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"short", "hello", 10, []string{"hello"}},
		{"no limit", "hello", 0, []string{"hello"}},
		{"hard cut", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"newline preferred", "abc\ndefgh", 6, []string{"abc\n", "defgh"}},
		{"runes not bytes", "ééééé", 2, []string{"éé", "éé", "é"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitMessage(tt.text, tt.limit))
		})
	}
}

func TestSplitMessageRejoins(t *testing.T) {
	text := strings.Repeat("line of text\n", 500)
	chunks := SplitMessage(text, DefaultMessageLimit)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), DefaultMessageLimit)
	}
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestToUnified(t *testing.T) {
	update := tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 7,
		Text:      " What is CMSC 508? ",
		Chat:      &tgbotapi.Chat{ID: 42},
		From:      &tgbotapi.User{ID: 9, UserName: "ram"},
	}}
	msg := toUnified(update)
	require.NotNil(t, msg)
	assert.Equal(t, "What is CMSC 508?", msg.Content)
	assert.Equal(t, "42", msg.Session.ChatID)
	assert.Equal(t, "9", msg.Session.UserID)
	assert.Equal(t, "7", msg.Session.ReplyToID)
	assert.Equal(t, "telegram:42", msg.Session.ConversationID())

	assert.Nil(t, toUnified(tgbotapi.Update{}))
	assert.Nil(t, toUnified(tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}}}))
}
