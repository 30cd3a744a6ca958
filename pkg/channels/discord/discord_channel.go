// Package discord is the polling-relay front-end: it reads a fixed set of
// channels through the relay, answers each unseen message and posts the
// reply back to the channel it came from.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"graddirector/pkg/api"
	"graddirector/pkg/config"
	"graddirector/pkg/relay"
)

// ChannelID is the gateway id of the relay channel.
const ChannelID = "discord"

// maxSeen bounds the per-channel seen set; older entries are forgotten first.
const maxSeen = 1000

// Relayer is the read/send surface of relay.Relay.
type Relayer interface {
	Read(ctx context.Context, channel string, limit int) ([]relay.Message, error)
	Send(ctx context.Context, channel, content, replyTo string) (*relay.Ack, error)
}

// Options tune the poll loop.
type Options struct {
	ActiveInterval time.Duration // sleep after a cycle that found messages
	IdleInterval   time.Duration // sleep after an empty cycle
	ReadLimit      int
	AnswerBacklog  bool          // answer messages already present at startup
	CallTimeout    time.Duration // per relay call
}

// OptionsFrom derives Options from the engine parameters.
func OptionsFrom(sys *config.SystemConfig) Options {
	if sys == nil {
		sys = config.DefaultSystemConfig()
	}
	return Options{
		ActiveInterval: time.Duration(sys.RelayActivePollMs) * time.Millisecond,
		IdleInterval:   time.Duration(sys.RelayIdlePollMs) * time.Millisecond,
		ReadLimit:      sys.RelayReadLimit,
		AnswerBacklog:  sys.RelayAnswerBacklog,
		CallTimeout:    time.Duration(sys.ToolTimeoutMs) * time.Millisecond,
	}
}

// seenSet is an insertion-ordered set with a size bound.
type seenSet struct {
	keys  map[string]bool
	order []string
}

func newSeenSet() *seenSet { return &seenSet{keys: make(map[string]bool)} }

func (s *seenSet) has(k string) bool { return s.keys[k] }

func (s *seenSet) add(k string) {
	if s.keys[k] {
		return
	}
	s.keys[k] = true
	s.order = append(s.order, k)
	if len(s.order) > maxSeen {
		delete(s.keys, s.order[0])
		s.order = s.order[1:]
	}
}

// tracker remembers, per channel, handled message ids and the texts this
// process posted, so neither is answered again.
type tracker struct {
	ids   *seenSet
	texts *seenSet
}

// DiscordChannel polls relay channels sequentially; a slow turn on one
// channel delays the others.
type DiscordChannel struct {
	relay    Relayer
	channels []string
	opts     Options

	mu       sync.Mutex
	trackers map[string]*tracker

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDiscordChannel creates the channel. channels must not be empty.
func NewDiscordChannel(r Relayer, channels []string, opts Options) (*DiscordChannel, error) {
	if r == nil {
		return nil, errors.New("discord channel requires a connected relay")
	}
	if len(channels) == 0 {
		return nil, errors.New("DISCORD_ALLOWED_CHANNELS is empty; set it to one or more channel ids to poll")
	}
	if opts.ActiveInterval <= 0 {
		opts.ActiveInterval = 300 * time.Millisecond
	}
	if opts.IdleInterval <= 0 {
		opts.IdleInterval = 800 * time.Millisecond
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = 5
	}
	c := &DiscordChannel{
		relay:    r,
		channels: append([]string(nil), channels...),
		opts:     opts,
		trackers: make(map[string]*tracker, len(channels)),
	}
	for _, ch := range c.channels {
		c.trackers[ch] = &tracker{ids: newSeenSet(), texts: newSeenSet()}
	}
	return c, nil
}

func (c *DiscordChannel) ID() string { return ChannelID }

// Start launches the poll loop. Unless AnswerBacklog is set, messages
// already present are marked seen first.
func (c *DiscordChannel) Start(cctx api.ChannelContext) error {
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		if !c.opts.AnswerBacklog {
			c.Prime(c.ctx)
		}
		for {
			found := c.PollOnce(c.ctx, cctx)
			wait := c.opts.IdleInterval
			if found {
				wait = c.opts.ActiveInterval
			}
			timer := time.NewTimer(wait)
			select {
			case <-c.ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
	slog.Info("Relay polling started", "channels", c.channels)
	return nil
}

// Stop ends the poll loop and waits for the current cycle to finish.
func (c *DiscordChannel) Stop() error {
	if c.cancel == nil {
		return nil
	}
	c.cancel()
	<-c.done
	return nil
}

func (c *DiscordChannel) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.opts.CallTimeout)
}

func (c *DiscordChannel) read(ctx context.Context, channel string) ([]relay.Message, error) {
	rctx, cancel := c.callCtx(ctx)
	defer cancel()
	slog.DebugContext(ctx, "Relay read", "channel", channel, "limit", c.opts.ReadLimit)
	return c.relay.Read(rctx, channel, c.opts.ReadLimit)
}

// messageKey identifies a message; messages without an id fall back to
// their content.
func messageKey(m relay.Message) string {
	if m.ID != "" {
		return "id:" + m.ID
	}
	return "text:" + strings.TrimSpace(m.Content)
}

// Prime marks every currently visible message as seen.
func (c *DiscordChannel) Prime(ctx context.Context) {
	for _, ch := range c.channels {
		msgs, err := c.read(ctx, ch)
		if err != nil {
			slog.WarnContext(ctx, "Relay prime read failed", "channel", ch, "error", err)
			continue
		}
		c.mu.Lock()
		for _, m := range msgs {
			c.trackers[ch].ids.add(messageKey(m))
		}
		c.mu.Unlock()
	}
}

// PollOnce reads every channel once and hands each unseen, non-empty
// message to cctx. It reports whether any message was handled.
func (c *DiscordChannel) PollOnce(ctx context.Context, cctx api.ChannelContext) bool {
	found := false
	for _, ch := range c.channels {
		if ctx.Err() != nil {
			return found
		}
		msgs, err := c.read(ctx, ch)
		if err != nil {
			slog.WarnContext(ctx, "Relay read failed", "channel", ch, "error", err)
			continue
		}
		for _, m := range msgs {
			content := strings.TrimSpace(m.Content)
			if !c.claim(ch, m, content) {
				continue
			}
			found = true
			cctx.OnMessage(c.ID(), &api.UnifiedMessage{
				Session: api.SessionContext{
					ChannelID: ChannelID,
					UserID:    ch,
					ChatID:    ch,
					Username:  ch,
					ReplyToID: m.ID,
				},
				Content: content,
				Raw:     m,
			})
		}
	}
	return found
}

// claim marks m seen and reports whether it should be answered.
func (c *DiscordChannel) claim(channel string, m relay.Message, content string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	tr := c.trackers[channel]
	key := messageKey(m)
	if tr.ids.has(key) {
		return false
	}
	tr.ids.add(key)
	return content != "" && !tr.texts.has(content)
}

// Send posts message to the session's relay channel as a reply to the
// message being answered.
func (c *DiscordChannel) Send(session api.SessionContext, message string) error {
	ch := session.ChatID
	c.mu.Lock()
	tr, ok := c.trackers[ch]
	if ok {
		tr.texts.add(strings.TrimSpace(message))
	}
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", relay.ErrChannelNotAllowed, ch)
	}

	parent := c.ctx
	if parent == nil {
		parent = context.Background()
	}
	sctx, cancel := c.callCtx(parent)
	defer cancel()
	ack, err := c.relay.Send(sctx, ch, message, session.ReplyToID)
	if err != nil {
		return err
	}
	if ack.MessageID != "" {
		c.mu.Lock()
		tr.ids.add("id:" + ack.MessageID)
		c.mu.Unlock()
	}
	slog.Debug("Relay reply sent", "channel", ch, "variant", ack.Variant)
	return nil
}
