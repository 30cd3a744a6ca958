package ollama

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"graddirector/pkg/llm"
	"graddirector/pkg/utils"

	jsoniter "github.com/json-iterator/go"
	"github.com/ollama/ollama/api"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// OllamaClient Ollama API client
type OllamaClient struct {
	client       *api.Client
	model        string
	options      map[string]any
	debugEnabled bool
}

// SetDebug enables exchange dumps.
func (o *OllamaClient) SetDebug(enabled bool) {
	o.debugEnabled = enabled
}

// NewOllamaClient creates an Ollama client. An empty baseURL falls back to
// OLLAMA_HOST via api.ClientFromEnvironment.
func NewOllamaClient(model string, baseURL string, options map[string]any) (*OllamaClient, error) {
	var client *api.Client
	var err error

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	// Invocation deadlines come from the caller's context.
	customClient := &http.Client{
		Transport: &JSONFixingRoundTripper{Proxied: transport},
	}

	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL: %w", err)
		}
		client = api.NewClient(u, customClient)
	} else {
		client, err = api.ClientFromEnvironment()
	}

	if err != nil {
		return nil, err
	}

	slog.Info("Ollama client initialized", "model", model, "base_url", baseURL)

	return &OllamaClient{
		client:  client,
		model:   model,
		options: options,
	}, nil
}

func (o *OllamaClient) Provider() string {
	return "ollama"
}

// Chat implements llm.LLMClient with a single non-streamed exchange.
func (o *OllamaClient) Chat(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition) (*llm.Response, error) {
	ollamaTools, err := convertTools(tools)
	if err != nil {
		return nil, err
	}

	streamVal := false
	req := &api.ChatRequest{
		Model:    o.model,
		Messages: convertMessages(messages),
		Options:  o.options,
		Tools:    ollamaTools,
		Stream:   &streamVal,
	}

	debugger := llm.NewExchangeDebugger(ctx, o.Provider(), o.debugEnabled)
	defer debugger.Close()
	debugger.Dump("request", req)

	out := &llm.Response{}
	var text strings.Builder
	err = o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		debugger.Dump("response", resp)

		text.WriteString(resp.Message.Content)

		for _, tc := range resp.Message.ToolCalls {
			argsB, err := json.Marshal(tc.Function.Arguments)
			if err != nil {
				slog.WarnContext(ctx, "Failed to marshal tool call arguments", "provider", "ollama", "error", err)
				argsB = []byte("{}")
			}
			id := tc.ID
			if id == "" {
				id = utils.GenerateCallID()
			}
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				ID:        id,
				Name:      tc.Function.Name,
				Arguments: string(argsB),
			})
			slog.DebugContext(ctx, "Tool call", "provider", "ollama", "name", tc.Function.Name, "args", string(argsB), "id", id)
		}

		if resp.Done {
			stop := resp.DoneReason
			if len(out.ToolCalls) > 0 {
				stop = llm.StopReasonToolUse
			}
			out.Usage = &llm.LLMUsage{
				PromptTokens:     resp.PromptEvalCount,
				CompletionTokens: resp.EvalCount,
				TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
				StopReason:       stop,
			}
			if resp.DoneReason == llm.StopReasonLength {
				slog.WarnContext(ctx, "Response truncated due to length", "provider", "ollama")
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama %s: %w", o.model, err)
	}

	out.Text = text.String()
	llm.LogUsage(ctx, o.model, out.Usage)
	return out, nil
}

// convertTools goes through JSON so the SDK's own tool types do the decoding.
func convertTools(defs []llm.ToolDefinition) ([]api.Tool, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	raw := make([]map[string]any, 0, len(defs))
	for _, d := range defs {
		raw = append(raw, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        d.Name,
				"description": d.Description,
				"parameters":  d.Parameters,
			},
		})
	}
	rawB, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("ollama: failed to marshal tools: %w", err)
	}
	var tools []api.Tool
	if err := json.Unmarshal(rawB, &tools); err != nil {
		return nil, fmt.Errorf("ollama: failed to convert tools: %w", err)
	}
	return tools, nil
}

// convertMessages converts messages to Ollama API format
func convertMessages(messages []llm.Message) []api.Message {
	ollamaMsgs := make([]api.Message, 0, len(messages))

	for _, m := range messages {
		msg := api.Message{
			Role:    m.Role,
			Content: m.Content,
		}

		if m.Role == llm.RoleAssistant && len(m.ToolCalls) > 0 {
			var ollamaToolCalls []api.ToolCall
			for _, tc := range m.ToolCalls {
				args := tc.Arguments
				if strings.TrimSpace(args) == "" {
					args = "{}"
				}
				var apiArgs api.ToolCallFunctionArguments
				if err := json.Unmarshal([]byte(args), &apiArgs); err != nil {
					slog.Warn("Failed to unmarshal tool arguments for history", "provider", "ollama", "error", err)
				}

				ollamaToolCalls = append(ollamaToolCalls, api.ToolCall{
					ID: tc.ID,
					Function: api.ToolCallFunction{
						Name:      tc.Name,
						Arguments: apiArgs,
					},
				})
			}
			msg.ToolCalls = ollamaToolCalls
		}

		if m.Role == llm.RoleTool {
			msg.ToolCallID = m.ToolCallID
		}

		ollamaMsgs = append(ollamaMsgs, msg)
	}

	return ollamaMsgs
}

// IsTransientError implements the llm.LLMClient interface
func (o *OllamaClient) IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "connection reset") {
		return true
	}

	return strings.Contains(errMsg, "overloaded")
}

//----------------------------------------------------------------
// JSONFixingRoundTripper - Interceptor that fixes illegal JSON escapes
//----------------------------------------------------------------

// JSONFixingRoundTripper strips backslashes in front of characters that are
// not valid JSON escapes (local models sometimes emit \$ or \_).
type JSONFixingRoundTripper struct {
	Proxied http.RoundTripper
}

func (j *JSONFixingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := j.Proxied.RoundTrip(req)
	if err != nil {
		return resp, err
	}

	ct := resp.Header.Get("Content-Type")
	if strings.Contains(ct, "application/json") || strings.Contains(ct, "application/x-ndjson") {
		resp.Body = &jsonFixingReadCloser{body: resp.Body}
	}
	return resp, nil
}

type jsonFixingReadCloser struct {
	body io.ReadCloser
}

var illegalEscapeRegex = regexp.MustCompile(`\\([^\/\\bfnrtu"])`)

func (j *jsonFixingReadCloser) Read(p []byte) (n int, err error) {
	n, err = j.body.Read(p)
	if n > 0 {
		content := string(p[:n])
		fixed := illegalEscapeRegex.ReplaceAllString(content, "$1")
		if len(fixed) < len(content) {
			// Only backslashes are removed, so the fixed text fits in p.
			copy(p, fixed)
			n = len(fixed)
		}
	}
	return n, err
}

func (j *jsonFixingReadCloser) Close() error {
	return j.body.Close()
}
