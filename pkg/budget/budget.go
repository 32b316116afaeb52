// Package budget tracks a monotonic estimate of consumed context capacity.
// The estimate is a cheap proxy, not exact accounting: its only job is to
// force a context rotation before degradation sets in.
package budget

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/toddgeist/ralph-wiggum-cursor/pkg/state"
)

// Status classifies consumed capacity against the configured thresholds.
type Status int

const (
	// StatusHealthy means consumption is below the warning threshold.
	StatusHealthy Status = iota
	// StatusWarning means consumption is between warn and critical.
	StatusWarning
	// StatusCritical means consumption is at or above the critical threshold.
	// Reads are still permitted; the agent is told to wrap up.
	StatusCritical
)

// String returns the string representation of a budget status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusWarning:
		return "warning"
	case StatusCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Estimator converts an observed resource access into estimated token units.
// It is an interface so the byte heuristic can be swapped for an exact
// tokenizer without touching the decision engine.
type Estimator interface {
	Estimate(resourceID string, byteLength int) int
}

// ByteEstimator is the default heuristic: tokens ≈ bytes / 4.
type ByteEstimator struct{}

// Estimate implements Estimator.
func (ByteEstimator) Estimate(_ string, byteLength int) int {
	if byteLength <= 0 {
		return 0
	}
	return byteLength / 4
}

// Thresholds configures capacity and the warn/critical cut points as
// fractions of capacity.
type Thresholds struct {
	CapacityTokens   int
	WarnFraction     float64
	CriticalFraction float64
}

// DefaultThresholds returns the standard 80k capacity with 80%/95% cut points.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CapacityTokens:   80_000,
		WarnFraction:     0.80,
		CriticalFraction: 0.95,
	}
}

// WarnTokens returns the warning threshold in token units.
func (t Thresholds) WarnTokens() int {
	return int(float64(t.CapacityTokens) * t.WarnFraction)
}

// CriticalTokens returns the critical threshold in token units.
func (t Thresholds) CriticalTokens() int {
	return int(float64(t.CapacityTokens) * t.CriticalFraction)
}

// Access is one journaled resource-access record.
type Access struct {
	ResourceID      string    `json:"resource_id"`
	EstimatedTokens int       `json:"estimated_tokens"`
	Timestamp       time.Time `json:"timestamp"`
}

// Tracker maintains the running allocated-token total against an append-only
// access journal. The total is derived by summing the journal, so it survives
// process restarts and never decreases within a session; it resets only when
// the external session bootstrap clears the journal.
type Tracker struct {
	journalPath string
	thresholds  Thresholds
	estimator   Estimator

	allocated int
	loaded    bool
}

// NewTracker creates a tracker over the given journal file.
func NewTracker(journalPath string, thresholds Thresholds, estimator Estimator) *Tracker {
	if thresholds.CapacityTokens <= 0 {
		thresholds = DefaultThresholds()
	}
	if estimator == nil {
		estimator = ByteEstimator{}
	}
	return &Tracker{
		journalPath: journalPath,
		thresholds:  thresholds,
		estimator:   estimator,
	}
}

// load sums the existing journal into the in-memory total.
func (t *Tracker) load() error {
	if t.loaded {
		return nil
	}
	total := 0
	err := state.ReadJSONL(t.journalPath, func(line []byte) error {
		var a Access
		if err := json.Unmarshal(line, &a); err != nil {
			return nil // tolerate malformed records
		}
		if a.EstimatedTokens > 0 {
			total += a.EstimatedTokens
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("load access journal: %w", err)
	}
	t.allocated = total
	t.loaded = true
	return nil
}

// Record journals one resource access and returns the entry and the status
// after accounting for it. A Critical status never blocks the access; the
// caller relays a wrap-up warning instead.
func (t *Tracker) Record(resourceID string, byteLength int) (Access, Status, error) {
	if err := t.load(); err != nil {
		return Access{}, StatusHealthy, err
	}

	entry := Access{
		ResourceID:      resourceID,
		EstimatedTokens: t.estimator.Estimate(resourceID, byteLength),
		Timestamp:       time.Now().UTC(),
	}
	if err := state.AppendJSONL(t.journalPath, entry); err != nil {
		return Access{}, t.status(), fmt.Errorf("journal access: %w", err)
	}

	t.allocated += entry.EstimatedTokens
	return entry, t.status(), nil
}

// Allocated returns the running estimated-token total.
func (t *Tracker) Allocated() (int, error) {
	if err := t.load(); err != nil {
		return 0, err
	}
	return t.allocated, nil
}

// Status classifies the current total.
func (t *Tracker) Status() (Status, error) {
	if err := t.load(); err != nil {
		return StatusHealthy, err
	}
	return t.status(), nil
}

// Thresholds returns the configured thresholds.
func (t *Tracker) Thresholds() Thresholds {
	return t.thresholds
}

func (t *Tracker) status() Status {
	switch {
	case t.allocated >= t.thresholds.CriticalTokens():
		return StatusCritical
	case t.allocated >= t.thresholds.WarnTokens():
		return StatusWarning
	default:
		return StatusHealthy
	}
}
