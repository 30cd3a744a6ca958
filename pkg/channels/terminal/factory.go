package terminal

import (
	"graddirector/pkg/channels"
	"graddirector/pkg/gateway"

	jsoniter "github.com/json-iterator/go"
)

// TerminalFactory builds the terminal channel on stdin/stdout.
type TerminalFactory struct{}

// Create implements channels.ChannelFactory. The entry takes no options.
func (f *TerminalFactory) Create(_ jsoniter.RawMessage, _ channels.Deps) (gateway.Channel, error) {
	return NewTerminalChannel(nil, nil), nil
}

func init() {
	channels.RegisterChannel(ChannelID, &TerminalFactory{})
}
