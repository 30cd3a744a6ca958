package discord

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"graddirector/pkg/api"
	"graddirector/pkg/relay"
)

type sent struct {
	channel, content, replyTo string
}

type fakeRelay struct {
	mu      sync.Mutex
	inbox   map[string][]relay.Message
	reads   map[string]int
	sent    []sent
	sendErr error
}

func newFakeRelay() *fakeRelay {
	return &fakeRelay{inbox: map[string][]relay.Message{}, reads: map[string]int{}}
}

func (f *fakeRelay) post(channel string, msgs ...relay.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inbox[channel] = append(f.inbox[channel], msgs...)
}

func (f *fakeRelay) Read(_ context.Context, channel string, _ int) ([]relay.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads[channel]++
	return append([]relay.Message(nil), f.inbox[channel]...), nil
}

func (f *fakeRelay) Send(_ context.Context, channel, content, replyTo string) (*relay.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{channel, content, replyTo})
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	// the relay echoes our own post back on the next read, under a new id
	f.inbox[channel] = append(f.inbox[channel], relay.Message{ID: "bot-" + replyTo, Content: content})
	return &relay.Ack{}, nil
}

func (f *fakeRelay) readCount(channel string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads[channel]
}

// answerContext plays gateway + handler: it answers each message through
// the channel and records what it saw.
type answerContext struct {
	ch       *DiscordChannel
	mu       sync.Mutex
	handled  []api.UnifiedMessage
	sendErrs []error
}

func (a *answerContext) SendReply(s api.SessionContext, content string) error {
	return a.ch.Send(s, content)
}
func (a *answerContext) SendSignal(api.SessionContext, string) error { return nil }

func (a *answerContext) OnMessage(_ string, msg *api.UnifiedMessage) {
	a.mu.Lock()
	a.handled = append(a.handled, *msg)
	a.mu.Unlock()
	if err := a.SendReply(msg.Session, "answer to "+msg.Content); err != nil {
		a.mu.Lock()
		a.sendErrs = append(a.sendErrs, err)
		a.mu.Unlock()
	}
}

func (a *answerContext) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.handled)
}

func newChannel(t *testing.T, r Relayer, opts Options, channels ...string) (*DiscordChannel, *answerContext) {
	t.Helper()
	ch, err := NewDiscordChannel(r, channels, opts)
	require.NoError(t, err)
	return ch, &answerContext{ch: ch}
}

func TestPollOnceNothingNew(t *testing.T) {
	r := newFakeRelay()
	ch, cctx := newChannel(t, r, Options{}, "c1", "c2")

	assert.False(t, ch.PollOnce(context.Background(), cctx))
	assert.Zero(t, cctx.count())
	assert.Equal(t, 1, r.readCount("c1"))
	assert.Equal(t, 1, r.readCount("c2"))
}

func TestPollOnceAnswersEachMessageOnce(t *testing.T) {
	r := newFakeRelay()
	r.post("c1", relay.Message{ID: "m1", Content: " What is CMSC 508? "}, relay.Message{ID: "m2", Content: "   "})
	ch, cctx := newChannel(t, r, Options{}, "c1")

	assert.True(t, ch.PollOnce(context.Background(), cctx))
	require.Equal(t, 1, cctx.count())
	got := cctx.handled[0]
	assert.Equal(t, "What is CMSC 508?", got.Content)
	assert.Equal(t, "c1", got.Session.ChatID)
	assert.Equal(t, "m1", got.Session.ReplyToID)
	assert.Equal(t, "discord:c1", got.Session.ConversationID())

	require.Len(t, r.sent, 1)
	assert.Equal(t, sent{"c1", "answer to What is CMSC 508?", "m1"}, r.sent[0])

	// the second cycle sees m1, m2 and our own reply: nothing new
	assert.False(t, ch.PollOnce(context.Background(), cctx))
	assert.Equal(t, 1, cctx.count())
}

func TestPollOnceMessagesWithoutIDs(t *testing.T) {
	r := newFakeRelay()
	r.post("c1", relay.Message{Content: "hello"})
	ch, cctx := newChannel(t, r, Options{}, "c1")

	assert.True(t, ch.PollOnce(context.Background(), cctx))
	assert.False(t, ch.PollOnce(context.Background(), cctx))
	assert.Equal(t, 1, cctx.count())
}

func TestPrimeSkipsBacklog(t *testing.T) {
	r := newFakeRelay()
	r.post("c1", relay.Message{ID: "old", Content: "asked before startup"})
	ch, cctx := newChannel(t, r, Options{}, "c1")

	ch.Prime(context.Background())
	assert.False(t, ch.PollOnce(context.Background(), cctx))

	r.post("c1", relay.Message{ID: "new", Content: "fresh question"})
	assert.True(t, ch.PollOnce(context.Background(), cctx))
	require.Equal(t, 1, cctx.count())
	assert.Equal(t, "fresh question", cctx.handled[0].Content)
}

func TestSendFailureStillCountsTurn(t *testing.T) {
	r := newFakeRelay()
	r.sendErr = relay.ErrAllVariantsFailed
	r.post("c1", relay.Message{ID: "m1", Content: "hi"})
	ch, cctx := newChannel(t, r, Options{}, "c1")

	assert.True(t, ch.PollOnce(context.Background(), cctx))
	require.Len(t, cctx.sendErrs, 1)
	assert.True(t, errors.Is(cctx.sendErrs[0], relay.ErrAllVariantsFailed))
	assert.False(t, ch.PollOnce(context.Background(), cctx))
}

func TestSendUnknownChannel(t *testing.T) {
	ch, _ := newChannel(t, newFakeRelay(), Options{}, "c1")
	err := ch.Send(api.SessionContext{ChatID: "elsewhere"}, "x")
	assert.ErrorIs(t, err, relay.ErrChannelNotAllowed)
}

func TestNewDiscordChannelValidation(t *testing.T) {
	_, err := NewDiscordChannel(nil, []string{"c1"}, Options{})
	assert.Error(t, err)
	_, err = NewDiscordChannel(newFakeRelay(), nil, Options{})
	assert.Error(t, err)
}

func TestLoopBacksOffWhenIdle(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := newFakeRelay()
	ch, cctx := newChannel(t, r, Options{
		ActiveInterval: time.Millisecond,
		IdleInterval:   time.Hour,
		AnswerBacklog:  true,
	}, "c1")

	require.NoError(t, ch.Start(cctx))
	require.Eventually(t, func() bool { return r.readCount("c1") >= 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, r.readCount("c1"), "idle cycle must wait the long interval")
	require.NoError(t, ch.Stop())
}

func TestLoopAnswersThenStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := newFakeRelay()
	r.post("c1", relay.Message{ID: "m1", Content: "first"})
	ch, cctx := newChannel(t, r, Options{
		ActiveInterval: time.Millisecond,
		IdleInterval:   5 * time.Millisecond,
		AnswerBacklog:  true,
	}, "c1")

	require.NoError(t, ch.Start(cctx))
	require.Eventually(t, func() bool { return cctx.count() == 1 }, time.Second, 5*time.Millisecond)

	r.post("c1", relay.Message{ID: "m2", Content: "second"})
	require.Eventually(t, func() bool { return cctx.count() == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, ch.Stop())
}

func TestSeenSetBounded(t *testing.T) {
	s := newSeenSet()
	for i := 0; i < maxSeen+10; i++ {
		s.add(string(rune('a'+i%26)) + time.Duration(i).String())
	}
	assert.Len(t, s.order, maxSeen)
	assert.Len(t, s.keys, maxSeen)
}
