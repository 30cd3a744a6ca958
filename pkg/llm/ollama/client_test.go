package ollama

import (
	"testing"

	"graddirector/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertMessagesKeepsToolLinks(t *testing.T) {
	msgs := convertMessages([]llm.Message{
		llm.NewUserMessage("When is CMSC 508 offered?"),
		llm.NewAssistantMessage("", llm.ToolCall{ID: "call_1", Name: "query_course_schedule", Arguments: `{"course":"CMSC 508"}`}),
		llm.NewToolResultMessage("call_1", "query_course_schedule", "[]", false),
	})
	require.Len(t, msgs, 3)

	require.Len(t, msgs[1].ToolCalls, 1)
	tc := msgs[1].ToolCalls[0]
	assert.Equal(t, "call_1", tc.ID)
	assert.Equal(t, "query_course_schedule", tc.Function.Name)
	course, ok := tc.Function.Arguments.Get("course")
	require.True(t, ok)
	assert.Equal(t, "CMSC 508", course)

	assert.Equal(t, llm.RoleTool, msgs[2].Role)
	assert.Equal(t, "call_1", msgs[2].ToolCallID)
	assert.Equal(t, "[]", msgs[2].Content)
}

func TestConvertMessagesBlankArguments(t *testing.T) {
	msgs := convertMessages([]llm.Message{
		llm.NewAssistantMessage("", llm.ToolCall{ID: "call_2", Name: "web_search", Arguments: "  "}),
	})
	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].ToolCalls, 1)
	assert.Equal(t, 0, msgs[0].ToolCalls[0].Function.Arguments.Len())
}

func TestConvertToolsDecodesSchema(t *testing.T) {
	tools, err := convertTools([]llm.ToolDefinition{{
		Name:        "web_search",
		Description: "Search the web.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"query": map[string]any{"type": "string"}},
			"required":   []string{"query"},
		},
	}})
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "web_search", tools[0].Function.Name)
	assert.Equal(t, []string{"query"}, tools[0].Function.Parameters.Required)

	none, err := convertTools(nil)
	require.NoError(t, err)
	assert.Nil(t, none)
}
