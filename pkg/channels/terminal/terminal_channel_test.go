package terminal

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graddirector/pkg/api"
)

type recordingContext struct {
	got []*api.UnifiedMessage
}

func (r *recordingContext) SendReply(api.SessionContext, string) error  { return nil }
func (r *recordingContext) SendSignal(api.SessionContext, string) error { return nil }
func (r *recordingContext) OnMessage(_ string, msg *api.UnifiedMessage) { r.got = append(r.got, msg) }

func typed(m model, text string) model {
	m.input.SetValue(text)
	return m
}

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(model)
	require.True(t, ok)
	return nm, cmd
}

func TestEnterSubmitsAndBlocksInput(t *testing.T) {
	rc := &recordingContext{}
	session := api.SessionContext{ChannelID: ChannelID, ChatID: "s1"}
	m := typed(newModel(rc, session), "  What is CMSC 508?  ")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.working)
	assert.Empty(t, m.input.Value())
	assert.Contains(t, m.View(), "Thinking")

	// typing while working is ignored
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	assert.Empty(t, m.input.Value())
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)

	// the submit command forwards the message to the gateway
	turn := m.submit("What is CMSC 508?")
	assert.Equal(t, turnDoneMsg{}, turn())
	require.Len(t, rc.got, 1)
	assert.Equal(t, "What is CMSC 508?", rc.got[0].Content)
	assert.Equal(t, "s1", rc.got[0].Session.ChatID)

	m, _ = update(t, m, turnDoneMsg{})
	assert.False(t, m.working)
}

func TestEnterIgnoresBlank(t *testing.T) {
	m := typed(newModel(&recordingContext{}, api.SessionContext{}), "   ")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.False(t, m.working)
}

func TestSignalsToggleWorking(t *testing.T) {
	m := newModel(&recordingContext{}, api.SessionContext{})
	m, cmd := update(t, m, workingMsg(true))
	assert.True(t, m.working)
	assert.NotNil(t, cmd)
	m, _ = update(t, m, workingMsg(false))
	assert.False(t, m.working)
}

func TestReplyPrints(t *testing.T) {
	m := newModel(&recordingContext{}, api.SessionContext{})
	_, cmd := update(t, m, replyMsg("Database Theory"))
	assert.NotNil(t, cmd)
}

func TestQuitKeys(t *testing.T) {
	m := newModel(&recordingContext{}, api.SessionContext{})
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestSendBeforeStart(t *testing.T) {
	c := NewTerminalChannel(nil, nil)
	assert.Error(t, c.Send(api.SessionContext{}, "x"))
	assert.NoError(t, c.Stop())
}
