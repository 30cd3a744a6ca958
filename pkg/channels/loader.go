package channels

import (
	"fmt"
	"log/slog"
	"sort"

	"graddirector/pkg/gateway"

	jsoniter "github.com/json-iterator/go"
)

// Build creates a channel for every config entry with a registered factory,
// in name order. Unknown names are skipped with a warning; a factory error
// fails the whole build so misconfiguration is caught at startup.
func Build(configs map[string]jsoniter.RawMessage, deps Deps) ([]gateway.Channel, error) {
	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []gateway.Channel
	for _, name := range names {
		factory, ok := GetChannelFactory(name)
		if !ok {
			slog.Warn("Unknown channel type", "name", name, "known", Names())
			continue
		}
		channel, err := factory.Create(configs[name], deps)
		if err != nil {
			return nil, fmt.Errorf("channel %s: %w", name, err)
		}
		// A nil channel means the entry is present but disabled.
		if channel == nil {
			continue
		}
		out = append(out, channel)
		slog.Info("Channel created", "name", name)
	}
	return out, nil
}
