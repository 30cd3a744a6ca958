package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrMissingCredential is returned when a feature that requires a credential
// is enabled without one. It is a fail-fast startup condition.
var ErrMissingCredential = errors.New("missing required credential")

// Default values applied when neither config.json nor the environment set them.
const (
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultSchedulePath   = "VCU-CMSC-202610-FA2025.xlsx"
	DefaultEvalPath       = "GPD_chatbot_eval.xlsx"
	DefaultRelayCommand   = "docker run --rm -i saseq/discord-mcp:latest"
	DefaultRelaySendTool  = "send_message"
	DefaultRelayReadTool  = "read_messages"
	DefaultSearchURL      = "https://api.tavily.com"
	DefaultSearchMaxItems = 2
)

// Config defines the global application configuration structure.
// This structure maps directly to the config.json file and holds
// business-level settings like channel credentials and LLM provider choices.
type Config struct {
	// LLM holds the provider groups for the assistant model in raw JSON.
	// The loader in package llm decodes it into ProviderGroupConfig values.
	LLM jsoniter.RawMessage `json:"llm"`
	// Grader holds the provider groups used by the evaluation harness.
	// When empty the assistant providers are reused with temperature 0.
	Grader jsoniter.RawMessage `json:"grader,omitempty"`
	// SystemPrompt overrides the built-in assistant preamble when set.
	SystemPrompt string `json:"system_prompt,omitempty"`
	// Channels contains a map of front-end identifiers ("web", "telegram",
	// "terminal", "discord") to their configuration payloads.
	Channels map[string]jsoniter.RawMessage `json:"channels"`
	// Tools configures the optional tool adapters.
	Tools ToolsConfig `json:"tools"`
	// Eval points the evaluation harness at its dataset.
	Eval EvalConfig `json:"eval"`
}

// ToolsConfig groups per-adapter settings.
type ToolsConfig struct {
	WebSearch      WebSearchConfig      `json:"web_search"`
	CourseSchedule CourseScheduleConfig `json:"course_schedule"`
}

// WebSearchConfig configures the web-search adapter. The adapter is only
// registered when APIKey is non-empty.
type WebSearchConfig struct {
	APIKey     string `json:"api_key"`
	BaseURL    string `json:"base_url,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

// CourseScheduleConfig configures the course-schedule adapter. An empty
// Path disables the adapter.
type CourseScheduleConfig struct {
	Path    string `json:"path"`
	Sheet   string `json:"sheet,omitempty"`
	NoCache bool   `json:"no_cache,omitempty"`
}

// EvalConfig configures the offline evaluation dataset.
type EvalConfig struct {
	Path    string `json:"path"`
	MaxRows int    `json:"max_rows,omitempty"`
}

// RelayConfig is the payload of the "discord" channel entry.
type RelayConfig struct {
	Command         string   `json:"command"`
	AllowedChannels []string `json:"allowed_channels"`
	SendTool        string   `json:"send_tool"`
	ReadTool        string   `json:"read_tool"`
	DebugSchemas    bool     `json:"debug_schemas,omitempty"`
}

// providerGroup mirrors the fields of llm.ProviderGroupConfig that
// validation needs, to avoid an import cycle with package llm.
type providerGroup struct {
	Type    string   `json:"type"`
	APIKeys []string `json:"api_keys,omitempty"`
	Models  []string `json:"models"`
}

// Validate ensures the configuration structure contains all mandatory fields.
// It acts as a primary guard before the system proceeds to initialization.
func (c *Config) Validate() error {
	if len(c.LLM) == 0 {
		return fmt.Errorf("%w: OPENAI_API_KEY is required", ErrMissingCredential)
	}
	var groups []providerGroup
	if err := json.Unmarshal(c.LLM, &groups); err != nil {
		return fmt.Errorf("failed to parse 'llm' config: %w", err)
	}
	for _, g := range groups {
		if g.Type == "ollama" {
			return nil
		}
		for _, k := range g.APIKeys {
			if strings.TrimSpace(k) != "" {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: no model provider has an API key (set OPENAI_API_KEY)", ErrMissingCredential)
}

// Relay decodes the "discord" channel entry, filling unset fields from the
// environment and defaults. ok is false when the channel is not configured.
func (c *Config) Relay() (RelayConfig, bool, error) {
	raw, ok := c.Channels["discord"]
	if !ok {
		return RelayConfig{}, false, nil
	}
	var rc RelayConfig
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &rc); err != nil {
			return RelayConfig{}, true, fmt.Errorf("failed to parse discord config: %w", err)
		}
	}
	rc.applyEnv()
	return rc, true, nil
}

// RelayFromEnv builds a RelayConfig from the environment and defaults only.
func RelayFromEnv() RelayConfig {
	var rc RelayConfig
	rc.applyEnv()
	return rc
}

func (rc *RelayConfig) applyEnv() {
	if rc.Command == "" {
		rc.Command = envOr("DISCORD_MCP_CMD", DefaultRelayCommand)
	}
	if len(rc.AllowedChannels) == 0 {
		rc.AllowedChannels = SplitList(os.Getenv("DISCORD_ALLOWED_CHANNELS"))
	}
	if rc.SendTool == "" {
		rc.SendTool = envOr("DISCORD_SEND_TOOL", DefaultRelaySendTool)
	}
	if rc.ReadTool == "" {
		rc.ReadTool = envOr("DISCORD_READ_TOOL", DefaultRelayReadTool)
	}
	if !rc.DebugSchemas {
		rc.DebugSchemas = IsTruthy(os.Getenv("DEBUG_MCP_SCHEMAS"))
	}
}

// SystemConfig defines engine-level technical parameters.
// These settings are usually stored in system.json and control the
// performance, reliability, and technical behavior of the assistant.
type SystemConfig struct {
	// MaxToolRounds caps the model/tool round trips for a single user turn.
	// On breach the engine forces a final answer.
	MaxToolRounds int `json:"max_tool_rounds"`
	// MaxRetries is the number of attempts made per provider. The default of
	// 1 means model errors are surfaced immediately, never retried.
	MaxRetries int `json:"max_retries"`
	// RetryDelayMs is the duration to wait (in milliseconds) between
	// consecutive retry attempts when MaxRetries > 1.
	RetryDelayMs int `json:"retry_delay_ms"`
	// LLMTimeoutMs is the hard cutoff time (in milliseconds) for one model
	// invocation. The context will be cancelled if exceeded.
	LLMTimeoutMs int `json:"llm_timeout_ms"`
	// ToolTimeoutMs bounds a single tool invocation.
	ToolTimeoutMs int `json:"tool_timeout_ms"`
	// OllamaDefaultURL is the fallback endpoint used when connecting
	// to a local Ollama instance if no specific URL is provided.
	OllamaDefaultURL string `json:"ollama_default_url"`
	// RelayActivePollMs is the sleep after a polling cycle that found messages.
	RelayActivePollMs int `json:"relay_active_poll_ms"`
	// RelayIdlePollMs is the sleep after a polling cycle that found nothing.
	RelayIdlePollMs int `json:"relay_idle_poll_ms"`
	// RelayReadLimit is the row limit passed to the relay read operation.
	RelayReadLimit int `json:"relay_read_limit"`
	// RelayAnswerBacklog makes the first polling cycle answer messages that
	// were already in the channel at startup instead of marking them seen.
	RelayAnswerBacklog bool `json:"relay_answer_backlog"`
	// TelegramMessageLimit is the maximum character count for a single
	// Telegram message. Longer responses will be split into multiple chunks.
	TelegramMessageLimit int `json:"telegram_message_limit"`
	// EvalMaxRows bounds the number of dataset rows the harness replays.
	EvalMaxRows int `json:"eval_max_rows"`
	// DebugExchanges enables saving every raw model request/response pair
	// to the debug folder for inspection and troubleshooting purposes.
	DebugExchanges bool `json:"debug_exchanges"`
	// LogLevel sets the minimum severity for log output.
	// Accepted values: "debug", "info", "warn", "error". Default: "info".
	LogLevel string `json:"log_level"`
	// EnableTools globally toggles the tool calling functionality.
	// If false, the model is not offered any tools.
	EnableTools bool `json:"enable_tools"`
}

// DefaultSystemConfig returns a SystemConfig pointer initialized with hardcoded
// safe default values. This is used as a fallback when the system.json file
// is missing or corrupt, ensuring the engine can always start.
func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		MaxToolRounds:        5,
		MaxRetries:           1,
		RetryDelayMs:         500,
		LLMTimeoutMs:         60000,
		ToolTimeoutMs:        30000,
		OllamaDefaultURL:     "http://localhost:11434",
		RelayActivePollMs:    300,
		RelayIdlePollMs:      800,
		RelayReadLimit:       5,
		TelegramMessageLimit: 4000,
		EvalMaxRows:          50,
		LogLevel:             "info",
		EnableTools:          true,
	}
}

// Load reads config.json from path. A missing file is not an error: the
// configuration is then assembled from the environment alone. ${VAR}
// references in the file are expanded before parsing. The result has
// environment fallbacks applied but is not validated.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if err := json.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// environment only
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv fills what the file left unset from the process environment.
func (c *Config) applyEnv() error {
	if len(c.LLM) == 0 {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			groups := []map[string]any{{
				"type":     "openai",
				"api_keys": []string{key},
				"models":   []string{envOr("OPENAI_MODEL", DefaultOpenAIModel)},
				"options":  map[string]any{"temperature": 0.7},
			}}
			raw, err := json.Marshal(groups)
			if err != nil {
				return fmt.Errorf("failed to build default llm config: %w", err)
			}
			c.LLM = raw
		}
	}

	if c.Tools.WebSearch.APIKey == "" {
		c.Tools.WebSearch.APIKey = os.Getenv("TAVILY_API_KEY")
	}
	if c.Tools.WebSearch.BaseURL == "" {
		c.Tools.WebSearch.BaseURL = DefaultSearchURL
	}
	if c.Tools.WebSearch.MaxResults <= 0 {
		c.Tools.WebSearch.MaxResults = DefaultSearchMaxItems
	}
	if c.Tools.CourseSchedule.Path == "" {
		c.Tools.CourseSchedule.Path = envOr("COURSE_SCHEDULE_PATH", DefaultSchedulePath)
	}
	if c.Eval.Path == "" {
		c.Eval.Path = envOr("EVAL_DATASET_PATH", DefaultEvalPath)
	}
	return nil
}

// LoadSystemConfig attempts to load system settings, returns defaults if it fails
func LoadSystemConfig(path string) *SystemConfig {
	cfg := DefaultSystemConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		return cfg // File not found, use defaults
	}

	if err := json.Unmarshal(file, cfg); err != nil {
		return DefaultSystemConfig() // Parse failed, use defaults
	}

	return cfg
}

// SplitList splits a comma-separated list, trimming blanks and dropping
// empty entries and duplicates while keeping first-seen order.
func SplitList(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// IsTruthy reports whether s is one of 1/true/yes (case-insensitive).
func IsTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
