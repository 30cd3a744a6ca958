package llm

import (
	"fmt"
	"log/slog"
	"time"

	"graddirector/pkg/config"

	jsoniter "github.com/json-iterator/go"
)

// NewFromConfig builds the model client described by the raw "llm" config.
// Groups with an unknown type or that fail to build are skipped with a
// warning. Several resulting clients are wrapped in a FallbackClient.
func NewFromConfig(rawLLM jsoniter.RawMessage, system *config.SystemConfig) (LLMClient, error) {
	var allAtomicClients []LLMClient

	if len(rawLLM) == 0 {
		return nil, fmt.Errorf("%w: missing 'llm' config", config.ErrMissingCredential)
	}

	var groups []ProviderGroupConfig
	if err := json.Unmarshal(rawLLM, &groups); err != nil {
		return nil, fmt.Errorf("failed to parse 'llm' config: %w", err)
	}

	for _, group := range groups {
		slog.Info("Loading LLM group", "type", group.Type, "models", len(group.Models))

		factory, ok := GetProviderFactory(group.Type)
		if !ok {
			slog.Warn("Unknown provider type", "type", group.Type, "known", ProviderNames())
			continue
		}

		clients, err := factory.Create(group, system)
		if err != nil {
			slog.Warn("Failed to create clients", "type", group.Type, "error", err)
			continue
		}

		allAtomicClients = append(allAtomicClients, clients...)
	}

	if len(allAtomicClients) == 0 {
		return nil, ErrNoProviders
	}

	slog.Info("LLM clients initialized", "count", len(allAtomicClients))

	if len(allAtomicClients) == 1 {
		return allAtomicClients[0], nil
	}

	return &FallbackClient{
		Clients:    allAtomicClients,
		MaxRetries: system.MaxRetries,
		RetryDelay: time.Duration(system.RetryDelayMs) * time.Millisecond,
	}, nil
}

// WithTemperature returns a copy of the raw "llm" config with every group's
// temperature forced to t. The grader uses it to derive a deterministic
// client from the assistant providers.
func WithTemperature(rawLLM jsoniter.RawMessage, t float64) (jsoniter.RawMessage, error) {
	var groups []ProviderGroupConfig
	if err := json.Unmarshal(rawLLM, &groups); err != nil {
		return nil, fmt.Errorf("failed to parse 'llm' config: %w", err)
	}
	for i := range groups {
		if groups[i].Options == nil {
			groups[i].Options = make(map[string]any)
		}
		groups[i].Options["temperature"] = t
	}
	return json.Marshal(groups)
}
