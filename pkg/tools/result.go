package tools

import "fmt"

// Result is the outcome of one tool invocation. OK results carry Data,
// failed ones carry a human-readable Reason.
type Result struct {
	CallID string `json:"call_id,omitempty"`
	Tool   string `json:"tool"`
	OK     bool   `json:"ok"`
	Data   any    `json:"data,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// OKResult builds a successful result.
func OKResult(tool string, data any) Result {
	return Result{Tool: tool, OK: true, Data: data}
}

// FailedResult builds a failed result.
func FailedResult(tool string, format string, args ...any) Result {
	return Result{Tool: tool, OK: false, Reason: fmt.Sprintf(format, args...)}
}

// Payload renders the result as the text fed back to the model.
// String data is passed through verbatim, other data is JSON encoded.
func (r Result) Payload() string {
	if !r.OK {
		return fmt.Sprintf(`{"error": %q}`, r.Reason)
	}
	switch v := r.Data.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	}
	b, err := json.Marshal(r.Data)
	if err != nil {
		return fmt.Sprintf("%v", r.Data)
	}
	return string(b)
}
