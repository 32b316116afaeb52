// Package state provides the typed, file-backed state store for a ralph
// workspace. Every record the controller persists flows through this package
// so that writes are atomic and reads tolerate missing or corrupt files.
package state

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status represents the lifecycle status of an iteration session.
type Status int

const (
	// StatusInitialized means the session exists but no iteration has run.
	StatusInitialized Status = iota
	// StatusActive means the loop is mid-flight.
	StatusActive
	// StatusComplete means the task finished and verification passed.
	StatusComplete
	// StatusMaxIterations means the iteration ceiling was hit.
	StatusMaxIterations
)

// String returns the persisted form of a status.
func (s Status) String() string {
	switch s {
	case StatusInitialized:
		return "initialized"
	case StatusActive:
		return "active"
	case StatusComplete:
		return "complete"
	case StatusMaxIterations:
		return "max_iterations_reached"
	default:
		return "unknown"
	}
}

// ParseStatus converts the persisted form back into a Status.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "initialized":
		return StatusInitialized, nil
	case "active":
		return StatusActive, nil
	case "complete":
		return StatusComplete, nil
	case "max_iterations_reached":
		return StatusMaxIterations, nil
	default:
		return StatusInitialized, fmt.Errorf("unknown status %q", s)
	}
}

// MarshalJSON persists the human-readable form.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON parses the human-readable form into the typed status.
// Raw status text is never branched on outside this method.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// IsTerminal returns true if no further iterations may run.
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusMaxIterations
}

// IterationState is the single live session record for a workspace. It is
// owned by the decision engine and overwritten atomically on each transition.
type IterationState struct {
	Iteration int       `json:"iteration"`
	Status    Status    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// NewIterationState returns a fresh session record.
func NewIterationState() *IterationState {
	return &IterationState{
		Iteration: 0,
		Status:    StatusInitialized,
		StartedAt: time.Now().UTC(),
	}
}

// TestOutcome is the last observed result of the task's test command. It is
// persisted for display in the next prompt only, not as authoritative history.
type TestOutcome struct {
	ExitCode  int       `json:"exit_code"`
	Output    string    `json:"captured_output"`
	TimedOut  bool      `json:"timed_out,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Passed reports whether the command exited cleanly.
func (o *TestOutcome) Passed() bool {
	return o != nil && o.ExitCode == 0 && !o.TimedOut
}
