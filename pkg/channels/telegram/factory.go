package telegram

import (
	"fmt"
	"os"

	"graddirector/pkg/channels"
	"graddirector/pkg/gateway"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TelegramFactory builds the Telegram channel.
type TelegramFactory struct{}

// Create implements channels.ChannelFactory. The token falls back to
// TELEGRAM_BOT_TOKEN.
func (f *TelegramFactory) Create(rawConfig jsoniter.RawMessage, deps channels.Deps) (gateway.Channel, error) {
	var tgCfg TelegramConfig
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &tgCfg); err != nil {
			return nil, fmt.Errorf("failed to parse telegram config: %w", err)
		}
	}
	if tgCfg.Token == "" {
		tgCfg.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	if tgCfg.Token == "" {
		return nil, fmt.Errorf("missing telegram token")
	}

	limit := 0
	if deps.System != nil {
		limit = deps.System.TelegramMessageLimit
	}
	ch, err := NewTelegramChannel(tgCfg, limit)
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func init() {
	channels.RegisterChannel("telegram", &TelegramFactory{})
}
