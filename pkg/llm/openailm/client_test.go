package openailm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"graddirector/pkg/llm"

	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const toolCallResponse = `{
  "id": "resp_1", "object": "response", "created_at": 0, "status": "completed", "model": "gpt-4o-mini",
  "output": [{
    "type": "function_call", "id": "fc_1", "call_id": "call_1", "status": "completed",
    "name": "query_course_schedule", "arguments": "{\"course\":\"CMSC 508\"}"
  }],
  "usage": {"input_tokens": 10, "output_tokens": 5, "total_tokens": 15,
    "input_tokens_details": {"cached_tokens": 0}, "output_tokens_details": {"reasoning_tokens": 0}}
}`

const textResponse = `{
  "id": "resp_2", "object": "response", "created_at": 0, "status": "completed", "model": "gpt-4o-mini",
  "output": [{
    "type": "message", "id": "msg_1", "role": "assistant", "status": "completed",
    "content": [{"type": "output_text", "text": "CMSC 508 is Database Theory.", "annotations": []}]
  }]
}`

func newTestClient(t *testing.T, status int, body string, seen *string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		if seen != nil {
			*seen = string(b)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient("openai", "sk-test", "gpt-4o-mini", srv.URL+"/", map[string]any{"temperature": 0.0}, option.WithMaxRetries(0))
	require.NoError(t, err)
	return c
}

func TestChatToolCall(t *testing.T) {
	var req string
	c := newTestClient(t, http.StatusOK, toolCallResponse, &req)

	msgs := []llm.Message{
		llm.NewSystemMessage("You are the Grad Director chatbot."),
		llm.NewUserMessage("What is CMSC 508?"),
	}
	defs := []llm.ToolDefinition{{
		Name:        "query_course_schedule",
		Description: "Look up the course schedule.",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
	}}

	resp, err := c.Chat(context.Background(), msgs, defs)
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "query_course_schedule", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"course":"CMSC 508"}`, resp.ToolCalls[0].Arguments)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, llm.StopReasonToolUse, resp.Usage.StopReason)
	assert.Equal(t, 15, resp.Usage.TotalTokens)

	assert.Contains(t, req, `"query_course_schedule"`)
	assert.Contains(t, req, `"temperature"`)
	assert.Contains(t, req, "What is CMSC 508?")
}

func TestChatText(t *testing.T) {
	c := newTestClient(t, http.StatusOK, textResponse, nil)
	resp, err := c.Chat(context.Background(), []llm.Message{llm.NewUserMessage("hi")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "CMSC 508 is Database Theory.", resp.Text)
	assert.False(t, resp.HasToolCalls())
}

func TestChatAuthErrorIsNotTransient(t *testing.T) {
	c := newTestClient(t, http.StatusUnauthorized, `{"error": {"message": "bad key", "type": "invalid_request_error"}}`, nil)
	_, err := c.Chat(context.Background(), []llm.Message{llm.NewUserMessage("hi")}, nil)
	require.Error(t, err)
	assert.False(t, c.IsTransientError(err))
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient("openai", " ", "m", "", nil)
	assert.Error(t, err)
	_, err = NewClient("openai", "k", "", "", nil)
	assert.Error(t, err)
}

func TestConvertMessagesKeepsToolLinks(t *testing.T) {
	c := &Client{}
	items := c.convertMessages([]llm.Message{
		llm.NewUserMessage("q"),
		llm.NewAssistantMessage("", llm.ToolCall{ID: "call_1", Name: "web_search", Arguments: `{"query":"x"}`}),
		llm.NewToolResultMessage("call_1", "web_search", "[]", false),
	})
	require.Len(t, items, 3)
	require.NotNil(t, items[1].OfFunctionCall)
	assert.Equal(t, "call_1", items[1].OfFunctionCall.CallID)
	require.NotNil(t, items[2].OfFunctionCallOutput)
	assert.Equal(t, "call_1", items[2].OfFunctionCallOutput.CallID)
}
