package eval

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// CaseResult is the outcome of one case. A case passes only when an answer
// was produced and the grader judged it true.
type CaseResult struct {
	Row           int           `json:"row"`
	Question      string        `json:"question"`
	Reference     string        `json:"reference"`
	Answer        string        `json:"answer"`
	Pass          bool          `json:"pass"`
	Justification string        `json:"justification,omitempty"`
	Error         string        `json:"error,omitempty"`
	Duration      time.Duration `json:"duration_ns"`
}

// Report collects the results of a run.
type Report struct {
	Started time.Time     `json:"started"`
	Elapsed time.Duration `json:"elapsed_ns"`
	Cases   []CaseResult  `json:"cases"`
	Passed  int           `json:"passed"`
	Failed  int           `json:"failed"`
}

func (r *Report) add(c CaseResult) {
	r.Cases = append(r.Cases, c)
	if c.Pass {
		r.Passed++
	} else {
		r.Failed++
	}
}

// OK reports whether every case passed.
func (r *Report) OK() bool { return r.Failed == 0 }

// WriteJSON writes the indented report.
func (r *Report) WriteJSON(w io.Writer) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

// Summary renders one line per failed case followed by the totals.
func (r *Report) Summary() string {
	var sb strings.Builder
	for _, c := range r.Cases {
		if c.Pass {
			continue
		}
		reason := c.Error
		if reason == "" {
			reason = c.Justification
		}
		fmt.Fprintf(&sb, "FAIL row %d: %s\n  %s\n", c.Row, oneLine(c.Question), oneLine(reason))
	}
	fmt.Fprintf(&sb, "%d passed, %d failed, %d total", r.Passed, r.Failed, len(r.Cases))
	return sb.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
