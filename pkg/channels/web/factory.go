package web

import (
	"fmt"

	"graddirector/pkg/channels"
	"graddirector/pkg/gateway"

	jsoniter "github.com/json-iterator/go"
)

// DefaultPort is used when the config omits one.
const DefaultPort = 8080

// WebFactory builds the websocket channel.
type WebFactory struct{}

// Create implements channels.ChannelFactory.
func (f *WebFactory) Create(rawConfig jsoniter.RawMessage, _ channels.Deps) (gateway.Channel, error) {
	cfg := WebConfig{Port: DefaultPort}
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse web config: %w", err)
		}
	}
	if cfg.Disabled {
		return nil, nil
	}
	return NewWebChannel(cfg), nil
}

func init() {
	channels.RegisterChannel("web", &WebFactory{})
}
