package gateway

import (
	"errors"
	"sync"
	"testing"

	"graddirector/pkg/api"
	"graddirector/pkg/monitor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct{ name, id string }

type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) add(name, id string) {
	r.mu.Lock()
	r.events = append(r.events, event{name, id})
	r.mu.Unlock()
}

type fakeChannel struct {
	id       string
	rec      *recorder
	startErr error
	cctx     ChannelContext
	sent     []string
}

func (c *fakeChannel) ID() string { return c.id }

func (c *fakeChannel) Start(cctx ChannelContext) error {
	c.rec.add("start", c.id)
	c.cctx = cctx
	return c.startErr
}

func (c *fakeChannel) Stop() error {
	c.rec.add("stop", c.id)
	return nil
}

func (c *fakeChannel) Send(_ SessionContext, msg string) error {
	c.sent = append(c.sent, msg)
	return nil
}

type signalingChannel struct {
	fakeChannel
	signals []string
}

func (c *signalingChannel) SendSignal(_ SessionContext, s string) error {
	c.signals = append(c.signals, s)
	return nil
}

type memMonitor struct {
	started bool
	msgs    []monitor.MonitorMessage
}

func (m *memMonitor) Start() error { m.started = true; return nil }
func (m *memMonitor) Stop() error { return nil }
func (m *memMonitor) OnMessage(msg monitor.MonitorMessage) {
	m.msgs = append(m.msgs, msg)
}

type echoHandler struct {
	responder api.MessageResponder
}

func (h *echoHandler) SetResponder(r api.MessageResponder) { h.responder = r }

func (h *echoHandler) OnMessage(msg *UnifiedMessage) {
	_ = h.responder.SendSignal(msg.Session, api.SignalThinking)
	_ = h.responder.SendReply(msg.Session, "echo: "+msg.Content)
}

func TestBuildRequiresChannels(t *testing.T) {
	_, err := NewGatewayBuilder().Build()
	assert.Error(t, err)
}

func TestBuildStartsInOrderAndStopsInReverse(t *testing.T) {
	rec := &recorder{}
	web := &fakeChannel{id: "web", rec: rec}
	tg := &fakeChannel{id: "telegram", rec: rec}
	mon := &memMonitor{}

	gw, err := NewGatewayBuilder().WithMonitor(mon).WithChannel(web, tg).Build()
	require.NoError(t, err)
	assert.True(t, mon.started)
	assert.Equal(t, []string{"telegram", "web"}, gw.ChannelIDs())

	gw.StopAll()
	assert.Equal(t, []event{
		{"start", "telegram"}, {"start", "web"},
		{"stop", "web"}, {"stop", "telegram"},
	}, rec.events)
}

func TestStartFailureStopsStartedChannels(t *testing.T) {
	rec := &recorder{}
	a := &fakeChannel{id: "a", rec: rec}
	b := &fakeChannel{id: "b", rec: rec, startErr: errors.New("port in use")}

	_, err := NewGatewayBuilder().WithChannel(a, b).Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port in use")
	assert.Equal(t, []event{{"start", "a"}, {"start", "b"}, {"stop", "a"}}, rec.events)
}

func TestMessageRoundTrip(t *testing.T) {
	rec := &recorder{}
	ch := &signalingChannel{fakeChannel: fakeChannel{id: "web", rec: rec}}
	mon := &memMonitor{}

	gw, err := NewGatewayBuilder().WithMonitor(mon).WithChannel(ch).WithHandler(&echoHandler{}).Build()
	require.NoError(t, err)
	defer gw.StopAll()

	ch.cctx.OnMessage("web", &UnifiedMessage{Session: SessionContext{UserID: "u1", Username: "sam"}, Content: "hi"})

	assert.Equal(t, []string{"echo: hi"}, ch.sent)
	assert.Equal(t, []string{api.SignalThinking}, ch.signals)
	require.Len(t, mon.msgs, 2)
	assert.Equal(t, monitor.TypeUser, mon.msgs[0].MessageType)
	assert.Equal(t, "web", mon.msgs[0].ChannelID)
	assert.Equal(t, monitor.TypeAssistant, mon.msgs[1].MessageType)
}

func TestRoutingErrors(t *testing.T) {
	gw := NewGatewayManager()
	err := gw.SendReply(SessionContext{ChannelID: "nope"}, "x")
	assert.ErrorIs(t, err, ErrChannelNotFound)
	assert.ErrorIs(t, gw.SendSignal(SessionContext{ChannelID: "nope"}, api.SignalThinking), ErrChannelNotFound)

	plain := &fakeChannel{id: "plain", rec: &recorder{}}
	gw.Register(plain)
	assert.NoError(t, gw.SendSignal(SessionContext{ChannelID: "plain"}, api.SignalThinking))

	// no handler: the message is dropped
	gw.OnMessage("plain", &UnifiedMessage{Content: "hi"})
	assert.Empty(t, plain.sent)
}
