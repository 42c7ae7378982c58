package contract

import (
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/toon-format/toon-go"
)

type Decision struct {
	// Message is the raw assistant message, kept so it can be appended to
	// the history verbatim.
	Message      *schema.Message `json:"-"`
	ToolRequests []ToolRequest   `json:"tool_requests,omitempty"`
	Answer       string          `json:"answer,omitempty"`
}

func (d Decision) IsFinal() bool {
	return len(d.ToolRequests) == 0
}

type ToolRequest struct {
	CallID string `json:"call_id,omitempty"`
	Tool   string `json:"tool"`
	Input  string `json:"input"`
}

// ToolResult carries either Result or Error, never both.
type ToolResult struct {
	CallID string `json:"call_id,omitempty"`
	Tool   string `json:"tool"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (r ToolResult) Failed() bool {
	return r.Error != ""
}

// Content renders the result as text for the model. Structured payloads are
// encoded as TOON and fall back to JSON.
func (r ToolResult) Content() string {
	if r.Failed() {
		return "error: " + r.Error
	}

	switch v := r.Result.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}

	if out, err := toon.MarshalString(r.Result, toon.WithLengthMarkers(true)); err == nil {
		return out
	}
	b, err := json.Marshal(r.Result)
	if err != nil {
		return fmt.Sprintf("%v", r.Result)
	}
	return string(b)
}
