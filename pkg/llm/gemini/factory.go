package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"graddirector/pkg/config"
	"graddirector/pkg/llm"
)

// GeminiFactory handles creation of Gemini Clients
type GeminiFactory struct{}

// Create implements ProviderFactory
func (f *GeminiFactory) Create(cfg llm.ProviderGroupConfig, sys *config.SystemConfig) ([]llm.LLMClient, error) {
	var clients []llm.LLMClient

	// Cartesian Product: Models x Keys (prioritize models)
	for _, model := range cfg.Models {
		for _, key := range cfg.APIKeys {
			client, err := NewGeminiClient(context.Background(), key, model, cfg.Options)
			if err != nil {
				slog.Error("Failed to create Gemini client", "model", model, "error", err)
				continue
			}
			if sys != nil {
				client.SetDebug(sys.DebugExchanges)
			}
			clients = append(clients, client)
		}
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("gemini: %w", config.ErrMissingCredential)
	}
	return clients, nil
}

func init() {
	llm.RegisterProvider("gemini", &GeminiFactory{})
}
