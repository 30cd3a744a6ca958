package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"graddirector/pkg/api"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ChannelID is the gateway id of the Telegram channel.
const ChannelID = "telegram"

// DefaultMessageLimit is Telegram's hard cap on one message, with headroom.
const DefaultMessageLimit = 4000

// TelegramConfig encapsulates the credentials required to authenticate with
// the Telegram Bot API.
type TelegramConfig struct {
	Token string `json:"token"`
}

// TelegramChannel long-polls the Bot API. Each chat is one conversation.
type TelegramChannel struct {
	bot          *tgbotapi.BotAPI
	messageLimit int
	stopCtx      context.Context
	stopCancel   context.CancelFunc
}

func NewTelegramChannel(cfg TelegramConfig, msgLimit int) (*TelegramChannel, error) {
	ctx, cancel := context.WithCancel(context.Background())

	// Dials are tied to stopCtx so Stop aborts an in-flight long poll
	// instead of leaving it to collide with the next bot instance.
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	botHTTPClient := &http.Client{
		Timeout: 90 * time.Second,
		Transport: &http.Transport{
			DialContext: func(dialCtx context.Context, network, addr string) (net.Conn, error) {
				mergedCtx, mergedCancel := context.WithCancel(dialCtx)
				go func() {
					select {
					case <-ctx.Done():
						mergedCancel()
					case <-mergedCtx.Done():
					}
				}()
				return dialer.DialContext(mergedCtx, network, addr)
			},
			ForceAttemptHTTP2:   true,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, botHTTPClient)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	slog.Info("Telegram bot authorized", "username", bot.Self.UserName)

	if msgLimit <= 0 {
		msgLimit = DefaultMessageLimit
	}
	return &TelegramChannel{
		bot:          bot,
		messageLimit: msgLimit,
		stopCtx:      ctx,
		stopCancel:   cancel,
	}, nil
}

func (t *TelegramChannel) ID() string {
	return ChannelID
}

// Start runs the update loop in the background. Updates are handled in
// order, one turn at a time.
func (t *TelegramChannel) Start(ctx api.ChannelContext) error {
	go func() {
		offset := 0
		for {
			select {
			case <-t.stopCtx.Done():
				return
			default:
			}

			reqConfig := tgbotapi.NewUpdate(offset)
			reqConfig.Timeout = 60
			updates, err := t.bot.GetUpdates(reqConfig)
			if err != nil {
				select {
				case <-t.stopCtx.Done():
					return
				case <-time.After(3 * time.Second):
					slog.Debug("Failed to get telegram updates", "error", err)
					continue
				}
			}

			for _, update := range updates {
				if update.UpdateID < offset {
					continue
				}
				offset = update.UpdateID + 1
				if msg := toUnified(update); msg != nil {
					ctx.OnMessage(t.ID(), msg)
				}
			}
		}
	}()
	return nil
}

// toUnified maps a text update; non-text updates give nil.
func toUnified(update tgbotapi.Update) *api.UnifiedMessage {
	m := update.Message
	if m == nil || m.Chat == nil {
		return nil
	}
	content := strings.TrimSpace(m.Text)
	if content == "" {
		content = strings.TrimSpace(m.Caption)
	}
	if content == "" {
		return nil
	}
	session := api.SessionContext{
		ChannelID: ChannelID,
		ChatID:    strconv.FormatInt(m.Chat.ID, 10),
		ReplyToID: strconv.Itoa(m.MessageID),
	}
	if m.From != nil {
		session.UserID = strconv.FormatInt(m.From.ID, 10)
		session.Username = m.From.UserName
	}
	return &api.UnifiedMessage{Session: session, Content: content, Raw: m}
}

// SendSignal shows the typing indicator while a turn runs.
func (t *TelegramChannel) SendSignal(session api.SessionContext, signal string) error {
	if signal != api.SignalThinking {
		return nil
	}
	chatID, err := strconv.ParseInt(session.ChatID, 10, 64)
	if err != nil {
		return err
	}
	_, err = t.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
	return err
}

func (t *TelegramChannel) Stop() error {
	t.stopCancel()
	if httpClient, ok := t.bot.Client.(*http.Client); ok && httpClient != nil {
		if transport, ok := httpClient.Transport.(*http.Transport); ok {
			transport.CloseIdleConnections()
		}
	}
	return nil
}

func (t *TelegramChannel) Send(session api.SessionContext, message string) error {
	chatID, err := strconv.ParseInt(session.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id for telegram: %s", session.ChatID)
	}
	for i, chunk := range SplitMessage(message, t.messageLimit) {
		if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			return fmt.Errorf("telegram send chunk %d failed: %w", i, err)
		}
	}
	return nil
}

// SplitMessage cuts text into chunks of at most limit runes, preferring to
// break after a newline in the second half of a chunk.
func SplitMessage(text string, limit int) []string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return []string{text}
	}
	var chunks []string
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i >= limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
