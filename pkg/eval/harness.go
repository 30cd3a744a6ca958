// Package eval replays recorded question and answer pairs through the
// assistant and grades each answer against its reference with a model call.
package eval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Answerer is the assistant under test.
type Answerer interface {
	Reply(ctx context.Context, conversationID, text string) (string, error)
}

// Harness runs cases through an Answerer and grades the answers.
type Harness struct {
	answerer Answerer
	grader   *Grader

	// OnCase, when set, is called after every graded case.
	OnCase func(CaseResult)
	// NewConversationID yields the id of the fresh conversation each case
	// runs in. Defaults to a random uuid.
	NewConversationID func() string
}

// NewHarness wires a harness.
func NewHarness(answerer Answerer, grader *Grader) *Harness {
	return &Harness{answerer: answerer, grader: grader, NewConversationID: uuid.NewString}
}

// Run replays cases in order. Case failures are recorded in the report;
// only a cancelled ctx stops the run early.
func (h *Harness) Run(ctx context.Context, cases []Case) *Report {
	rep := &Report{Started: time.Now()}
	for _, c := range cases {
		if ctx.Err() != nil {
			break
		}
		res := h.runCase(ctx, c)
		rep.add(res)
		if h.OnCase != nil {
			h.OnCase(res)
		}
	}
	rep.Elapsed = time.Since(rep.Started)
	slog.InfoContext(ctx, "Evaluation finished", "cases", len(rep.Cases), "passed", rep.Passed, "failed", rep.Failed, "duration", rep.Elapsed)
	return rep
}

func (h *Harness) runCase(ctx context.Context, c Case) CaseResult {
	res := CaseResult{Row: c.Row, Question: c.Question, Reference: c.Reference}
	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	convID := h.NewConversationID()
	answer, err := h.answerer.Reply(ctx, convID, c.Question)
	res.Answer = answer
	if err != nil {
		res.Error = err.Error()
		slog.WarnContext(ctx, "Case errored", "row", c.Row, "error", err)
		return res
	}
	if strings.TrimSpace(answer) == "" {
		res.Error = "assistant produced no answer"
		return res
	}

	grade, err := h.grader.Grade(ctx, c.Reference, answer)
	if err != nil {
		res.Error = fmt.Sprintf("grading failed: %v", err)
		slog.WarnContext(ctx, "Case grading failed", "row", c.Row, "error", err)
		return res
	}
	res.Pass = grade.Pass
	res.Justification = grade.Justification
	slog.DebugContext(ctx, "Case graded", "row", c.Row, "pass", res.Pass)
	return res
}
