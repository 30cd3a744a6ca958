package channels

import (
	"sort"

	"graddirector/pkg/config"
	"graddirector/pkg/gateway"
	"graddirector/pkg/relay"

	jsoniter "github.com/json-iterator/go"
)

// Deps are the shared resources a channel may need at construction time.
type Deps struct {
	System *config.SystemConfig
	// Relay is the connected channel relay, nil unless a relay channel is configured.
	Relay *relay.Relay
	// RelayChannels are the allowed relay channel ids.
	RelayChannels []string
}

// ChannelFactory builds one platform channel from its raw config entry.
type ChannelFactory interface {
	Create(rawConfig jsoniter.RawMessage, deps Deps) (gateway.Channel, error)
}

// FactoryFunc adapts a function to ChannelFactory.
type FactoryFunc func(rawConfig jsoniter.RawMessage, deps Deps) (gateway.Channel, error)

// Create implements ChannelFactory.
func (f FactoryFunc) Create(rawConfig jsoniter.RawMessage, deps Deps) (gateway.Channel, error) {
	return f(rawConfig, deps)
}

var channelRegistry = make(map[string]ChannelFactory)

// RegisterChannel adds a factory under name. It is called from init().
func RegisterChannel(name string, factory ChannelFactory) {
	channelRegistry[name] = factory
}

// GetChannelFactory retrieves a registered factory by name.
func GetChannelFactory(name string) (ChannelFactory, bool) {
	f, ok := channelRegistry[name]
	return f, ok
}

// Names lists the registered factory names.
func Names() []string {
	names := make([]string, 0, len(channelRegistry))
	for n := range channelRegistry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
