// Package hook defines the request/response protocol between the host agent
// runtime and the controller. Each lifecycle hook is a one-shot invocation:
// a JSON request on stdin, a JSON response on stdout.
package hook

import (
	"encoding/json"
	"fmt"
	"io"
)

// Event identifies a lifecycle hook point.
type Event string

const (
	// EventPrompt fires before each prompt is composed.
	EventPrompt Event = "prompt"
	// EventRead fires before each resource read.
	EventRead Event = "read"
	// EventEdit fires after each file mutation.
	EventEdit Event = "edit"
	// EventStop fires when the agent requests to stop.
	EventStop Event = "stop"
)

// Request is the structured hook input. Event-specific fields are populated
// per the firing hook.
type Request struct {
	Event         Event  `json:"event"`
	WorkspaceRoot string `json:"workspace_root"`

	// Read hook: the accessed resource and its content or size.
	ResourcePath string `json:"resource_path,omitempty"`
	Content      string `json:"content,omitempty"`
	ByteLength   int    `json:"byte_length,omitempty"`

	// Edit hook: the mutated file and the replaced spans.
	Path    string `json:"path,omitempty"`
	OldSpan string `json:"old_span,omitempty"`
	NewSpan string `json:"new_span,omitempty"`
}

// Delta returns the signed character delta of an edit request.
func (r *Request) Delta() int {
	return len(r.NewSpan) - len(r.OldSpan)
}

// Size returns the byte length of a read request, preferring explicit
// byte_length over content length.
func (r *Request) Size() int {
	if r.ByteLength > 0 {
		return r.ByteLength
	}
	return len(r.Content)
}

// Decision is the response verdict.
type Decision string

const (
	// DecisionContinue lets the triggering action proceed.
	DecisionContinue Decision = "continue"
	// DecisionBlock refuses a stop request; the agent keeps working.
	DecisionBlock Decision = "block"
	// DecisionStop allows the agent to stop.
	DecisionStop Decision = "stop"
)

// Response is the structured hook output.
type Response struct {
	Decision     Decision `json:"decision"`
	AgentMessage string   `json:"agent_message,omitempty"`
	HumanMessage string   `json:"human_message,omitempty"`
}

// ReadRequest decodes a hook request from r.
func ReadRequest(r io.Reader) (*Request, error) {
	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, fmt.Errorf("decode hook request: %w", err)
	}
	return &req, nil
}

// Write encodes the response to w.
func (resp *Response) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("encode hook response: %w", err)
	}
	return nil
}
