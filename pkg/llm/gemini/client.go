package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"graddirector/pkg/llm"
	"graddirector/pkg/utils"

	jsoniter "github.com/json-iterator/go"
	"google.golang.org/genai"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// GeminiClient Google Gemini API client
type GeminiClient struct {
	client       *genai.Client
	model        string
	temperature  *float32
	debugEnabled bool
}

// SetDebug enables exchange dumps.
func (g *GeminiClient) SetDebug(enabled bool) {
	g.debugEnabled = enabled
}

// NewGeminiClient creates a Gemini client with a single model and API key.
func NewGeminiClient(ctx context.Context, apiKey string, model string, options map[string]any) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini: api key is empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}

	g := &GeminiClient{
		client: client,
		model:  model,
	}
	if t, ok := options["temperature"].(float64); ok {
		g.temperature = genai.Ptr(float32(t))
	}
	return g, nil
}

func (g *GeminiClient) Provider() string {
	return "gemini"
}

// Chat implements llm.LLMClient.
func (g *GeminiClient) Chat(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition) (*llm.Response, error) {
	contents, systemInstruction := convertMessages(messages)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction,
		Temperature:       g.temperature,
	}
	if decls := convertTools(tools); len(decls) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	debugger := llm.NewExchangeDebugger(ctx, g.Provider(), g.debugEnabled)
	defer debugger.Close()
	debugger.Dump("request", map[string]any{"contents": contents, "config": cfg})

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini %s: %w", g.model, err)
	}
	debugger.Dump("response", resp)

	out := &llm.Response{}
	var text strings.Builder
	stop := llm.StopReasonStop
	if len(resp.Candidates) > 0 {
		cand := resp.Candidates[0]
		if cand.FinishReason == genai.FinishReasonMaxTokens {
			stop = llm.StopReasonLength
		}
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if part.Text != "" && !part.Thought {
					text.WriteString(part.Text)
				}
				if part.FunctionCall != nil {
					argsB, _ := json.Marshal(part.FunctionCall.Args)
					id := part.FunctionCall.ID
					if id == "" {
						id = utils.GenerateCallID()
					}
					out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
						ID:        id,
						Name:      part.FunctionCall.Name,
						Arguments: string(argsB),
						// Original call is echoed back verbatim (keeps thought_signature).
						Meta: map[string]any{
							"gemini_function_call": part.FunctionCall,
						},
					})
					slog.DebugContext(ctx, "Gemini tool call", "name", part.FunctionCall.Name, "args", string(argsB))
				}
			}
		}
	}
	out.Text = text.String()
	if len(out.ToolCalls) > 0 {
		stop = llm.StopReasonToolUse
	}

	if u := resp.UsageMetadata; u != nil {
		out.Usage = &llm.LLMUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
			CachedTokens:     int(u.CachedContentTokenCount),
			StopReason:       stop,
		}
	}
	llm.LogUsage(ctx, g.model, out.Usage)

	return out, nil
}

// convertMessages converts message list to GenAI format
func convertMessages(messages []llm.Message) ([]*genai.Content, *genai.Content) {
	var genaiContents []*genai.Content
	var systemInstruction *genai.Content

	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			// Every system message joins the single SystemInstruction.
			if msg.Content == "" {
				continue
			}
			if systemInstruction == nil {
				systemInstruction = &genai.Content{}
			}
			systemInstruction.Parts = append(systemInstruction.Parts, &genai.Part{Text: msg.Content})

		case llm.RoleTool:
			// Tool results are part of user role in Gemini
			key := "result"
			if msg.IsError {
				key = "error"
			}
			genaiContents = append(genaiContents, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						ID:       msg.ToolCallID,
						Name:     msg.ToolName,
						Response: map[string]any{key: msg.Content},
					},
				}},
			})

		case llm.RoleAssistant:
			var parts []*genai.Part
			if msg.Content != "" {
				parts = append(parts, &genai.Part{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				if originalFC, ok := tc.Meta["gemini_function_call"].(*genai.FunctionCall); ok {
					parts = append(parts, &genai.Part{FunctionCall: originalFC})
					continue
				}
				var args map[string]any
				_ = json.Unmarshal([]byte(tc.Arguments), &args)
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   tc.ID,
						Name: tc.Name,
						Args: args,
					},
				})
			}
			if len(parts) > 0 {
				genaiContents = append(genaiContents, &genai.Content{Role: genai.RoleModel, Parts: parts})
			}

		default:
			if msg.Content == "" {
				continue
			}
			genaiContents = append(genaiContents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		}
	}

	return genaiContents, systemInstruction
}

func convertTools(defs []llm.ToolDefinition) []*genai.FunctionDeclaration {
	var fds []*genai.FunctionDeclaration
	for _, d := range defs {
		fds = append(fds, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  convertSchema(d.Parameters),
		})
	}
	return fds
}

// convertSchema maps a JSON schema object onto genai.Schema.
func convertSchema(m map[string]any) *genai.Schema {
	if m == nil {
		return nil
	}
	s := &genai.Schema{}
	if t, ok := m["type"].(string); ok {
		s.Type = schemaType(t)
	}
	if d, ok := m["description"].(string); ok {
		s.Description = d
	}
	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if pm, ok := raw.(map[string]any); ok {
				s.Properties[name] = convertSchema(pm)
			}
		}
	}
	switch req := m["required"].(type) {
	case []string:
		s.Required = append(s.Required, req...)
	case []any:
		for _, r := range req {
			if rs, ok := r.(string); ok {
				s.Required = append(s.Required, rs)
			}
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		s.Items = convertSchema(items)
	}
	return s
}

func schemaType(t string) genai.Type {
	switch strings.ToLower(t) {
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeObject
	}
}

// IsTransientError implements the llm.LLMClient interface
func (g *GeminiClient) IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())

	// 1. Google API common 503 Service Unavailable / Overloaded
	if strings.Contains(errMsg, "503") || strings.Contains(errMsg, "overloaded") {
		return true
	}

	// 2. 429 Too Many Requests (Rate Limit)
	if strings.Contains(errMsg, "429") || strings.Contains(errMsg, "resource exhausted") {
		return true
	}

	// 3. 500 Internal Error
	if strings.Contains(errMsg, "500") || strings.Contains(errMsg, "internal error") {
		return true
	}

	return false
}
