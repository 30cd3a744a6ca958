package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// json is the package-wide codec, json-iterator in std-compatible mode.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNoProviders is returned when no model client could be built.
var ErrNoProviders = errors.New("no LLM clients could be initialized")

// LLMUsage is the provider-neutral token accounting for one invocation.
type LLMUsage struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	CachedTokens     int    `json:"cached_tokens,omitempty"`
	StopReason       string `json:"stop_reason,omitempty"`
}

// LogUsage emits the usage of one model invocation at debug level.
func LogUsage(ctx context.Context, model string, usage *LLMUsage) {
	if usage == nil {
		return
	}
	slog.DebugContext(ctx, "Model usage",
		"model", model,
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens,
		"total_tokens", usage.TotalTokens,
		"cached_tokens", usage.CachedTokens,
		"stop_reason", usage.StopReason,
	)
}

// LLMClient is the model invocation boundary.
type LLMClient interface {
	// Chat sends the full message list (system preamble first) and the tools
	// the model may call. A nil or empty tools slice disables tool calling.
	Chat(ctx context.Context, messages []Message, tools []ToolDefinition) (*Response, error)

	// IsTransientError reports whether err is temporary (503, rate limit).
	IsTransientError(err error) bool
}

// FallbackClient tries several clients in order.
// Each client gets MaxRetries attempts; only transient errors are retried.
// With MaxRetries <= 1 a failing client is never retried.
type FallbackClient struct {
	Clients    []LLMClient
	MaxRetries int
	RetryDelay time.Duration
}

func (f *FallbackClient) Chat(ctx context.Context, messages []Message, tools []ToolDefinition) (*Response, error) {
	var lastErr error
	for i, client := range f.Clients {
		if i > 0 {
			slog.WarnContext(ctx, "Previous provider failed, trying fallback provider", "provider", i+1)
		}

		maxRetries := f.MaxRetries
		if maxRetries <= 0 {
			maxRetries = 1
		}

		for retry := 1; retry <= maxRetries; retry++ {
			if retry > 1 {
				slog.InfoContext(ctx, "Retrying provider", "provider", i+1, "attempt", retry, "max", maxRetries)
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(time.Duration(retry-1) * f.RetryDelay):
				}
			}

			resp, err := client.Chat(ctx, messages, tools)
			if err == nil {
				return resp, nil
			}

			lastErr = err

			if client.IsTransientError(err) && retry < maxRetries {
				slog.WarnContext(ctx, "Provider failed with transient error", "provider", i+1, "error", err)
				continue
			}

			slog.ErrorContext(ctx, "Provider failed", "provider", i+1, "error", err)
			break
		}

		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("all fallback providers failed: %w", lastErr)
}

// IsTransientError always reports false: a FallbackClient error means every
// child already failed.
func (f *FallbackClient) IsTransientError(err error) bool {
	return false
}
