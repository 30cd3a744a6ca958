package eval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"graddirector/pkg/llm"
	"graddirector/pkg/tools"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrUngradable is returned when the grader reply carries no usable grade.
var ErrUngradable = errors.New("grader reply has no grade")

// GradeToolName is the structured-output tool offered to the grader model.
const GradeToolName = "record_grade"

var gradeSchema = tools.ArgSchema{
	{Name: "justification", Type: tools.TypeString, Required: true, Description: "The justification for the grade, including specific examples from the response."},
	{Name: "grade", Type: tools.TypeBoolean, Required: true, Description: "Does the response meet the provided criteria?"},
}

// Grade is the grader's verdict on one answer.
type Grade struct {
	Pass          bool   `json:"grade"`
	Justification string `json:"justification"`
}

// Grader compares an answer with a reference answer through a model call.
type Grader struct {
	client llm.LLMClient
}

// NewGrader wraps client, which should be configured with temperature 0.
func NewGrader(client llm.LLMClient) *Grader {
	return &Grader{client: client}
}

// Grade asks the model whether answer covers the key points of reference.
func (g *Grader) Grade(ctx context.Context, reference, answer string) (*Grade, error) {
	msgs := []llm.Message{
		llm.NewSystemMessage(CriteriaPreamble),
		llm.NewUserMessage(fmt.Sprintf(gradeRequestFormat, reference, answer)),
	}
	defs := []llm.ToolDefinition{{
		Name:        GradeToolName,
		Description: "Score the response against the criteria.",
		Parameters:  gradeSchema.JSONSchema(),
	}}

	resp, err := g.client.Chat(ctx, msgs, defs)
	if err != nil {
		return nil, fmt.Errorf("grader: %w", err)
	}
	if resp == nil {
		return nil, ErrUngradable
	}

	for _, call := range resp.ToolCalls {
		if strings.TrimPrefix(call.Name, "functions.") != GradeToolName {
			continue
		}
		args, err := tools.ParseArguments(call.Arguments)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUngradable, err)
		}
		return gradeFrom(args)
	}
	return ParseGrade(resp.Text)
}

// ParseGrade extracts a grade from a free-text reply holding a JSON object,
// possibly wrapped in prose or a code fence.
func ParseGrade(text string) (*Grade, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, ErrUngradable
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUngradable, err)
	}
	return gradeFrom(args)
}

func gradeFrom(args map[string]any) (*Grade, error) {
	g := &Grade{}
	switch v := args["grade"].(type) {
	case bool:
		g.Pass = v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "pass", "yes":
			g.Pass = true
		case "false", "fail", "no":
		default:
			return nil, fmt.Errorf("%w: grade %q", ErrUngradable, v)
		}
	default:
		return nil, fmt.Errorf("%w: grade field missing", ErrUngradable)
	}
	if s, ok := args["justification"].(string); ok {
		g.Justification = strings.TrimSpace(s)
	}
	return g, nil
}
