package discord

import (
	"graddirector/pkg/channels"
	"graddirector/pkg/gateway"

	jsoniter "github.com/json-iterator/go"
)

// DiscordFactory builds the polling-relay channel from the connected relay
// in Deps. The raw entry itself is decoded by config.Config.Relay.
type DiscordFactory struct{}

// Create implements channels.ChannelFactory.
func (f *DiscordFactory) Create(_ jsoniter.RawMessage, deps channels.Deps) (gateway.Channel, error) {
	var r Relayer
	if deps.Relay != nil {
		r = deps.Relay
	}
	ch, err := NewDiscordChannel(r, deps.RelayChannels, OptionsFrom(deps.System))
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func init() {
	channels.RegisterChannel(ChannelID, &DiscordFactory{})
}
