package openailm

import (
	"fmt"
	"log/slog"

	"graddirector/pkg/config"
	"graddirector/pkg/llm"
)

// OpenAIFactory handles creation of OpenAI Clients
type OpenAIFactory struct{}

// Create implements ProviderFactory. One client is built per key and model.
func (f *OpenAIFactory) Create(cfg llm.ProviderGroupConfig, sys *config.SystemConfig) ([]llm.LLMClient, error) {
	var clients []llm.LLMClient

	for _, apiKey := range cfg.APIKeys {
		for _, model := range cfg.Models {
			client, err := NewClient("openai", apiKey, model, cfg.BaseURL, cfg.Options)
			if err != nil {
				slog.Error("Failed to create OpenAI client", "model", model, "error", err)
				continue
			}
			if sys != nil {
				client.SetDebug(sys.DebugExchanges)
			}
			clients = append(clients, client)
		}
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("openai: %w", config.ErrMissingCredential)
	}
	return clients, nil
}

func init() {
	llm.RegisterProvider("openai", &OpenAIFactory{})
}
