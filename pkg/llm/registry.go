package llm

import (
	"sort"

	"graddirector/pkg/config"
)

// ProviderGroupConfig describes one group of models served by one provider.
type ProviderGroupConfig struct {
	Type    string         `json:"type"`
	APIKeys []string       `json:"api_keys,omitempty"`
	Models  []string       `json:"models"`
	BaseURL string         `json:"base_url,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// Temperature returns options.temperature when set.
func (g ProviderGroupConfig) Temperature() (float64, bool) {
	switch v := g.Options["temperature"].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

// ProviderFactory builds clients for one provider type.
type ProviderFactory interface {
	// Create builds one client per api key and model combination.
	Create(groupConfig ProviderGroupConfig, systemConfig *config.SystemConfig) ([]LLMClient, error)
}

var providerRegistry = make(map[string]ProviderFactory)

// RegisterProvider registers a ProviderFactory under a provider type name.
func RegisterProvider(name string, factory ProviderFactory) {
	providerRegistry[name] = factory
}

// GetProviderFactory returns the factory registered for name.
func GetProviderFactory(name string) (ProviderFactory, bool) {
	f, ok := providerRegistry[name]
	return f, ok
}

// ProviderNames lists the registered provider types in sorted order.
func ProviderNames() []string {
	names := make([]string, 0, len(providerRegistry))
	for n := range providerRegistry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
