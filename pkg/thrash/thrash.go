// Package thrash detects runaway repetition: the same file edited over and
// over, or the same command failing over and over. Detection is a pure
// counting heuristic over append-only journals; there is no semantic diffing.
package thrash

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/toddgeist/ralph-wiggum-cursor/pkg/state"
)

// Pattern identifies the kind of failure a record describes.
type Pattern string

const (
	// PatternFileThrashing means the same file was mutated past the repeat
	// threshold in one session.
	PatternFileThrashing Pattern = "file_thrashing"
	// PatternRepeatedCommandFailure means the task's test command keeps
	// failing after the criteria were all checked.
	PatternRepeatedCommandFailure Pattern = "repeated_command_failure"
)

// Risk is the derived gutter-risk scalar.
type Risk int

const (
	// RiskLow means iteration is still likely to make progress.
	RiskLow Risk = iota
	// RiskHigh means the session is stuck and needs rotation or a human.
	RiskHigh
)

// String returns the string representation of a risk level.
func (r Risk) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskHigh:
		return "high"
	default:
		return "unknown"
	}
}

// FailureRecord is one appended failure journal entry. Records are appended,
// never mutated in place.
type FailureRecord struct {
	Pattern         Pattern   `json:"pattern"`
	Subject         string    `json:"subject"`
	OccurrenceCount int       `json:"occurrence_count"`
	Iteration       int       `json:"iteration"`
	Timestamp       time.Time `json:"timestamp"`
}

// ProgressEntry is one appended edit-progress journal entry.
type ProgressEntry struct {
	Path      string    `json:"path"`
	Delta     int       `json:"delta"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// classifyDelta classifies a mutation by the sign of its character delta.
func classifyDelta(delta int) string {
	switch {
	case delta > 0:
		return "added"
	case delta < 0:
		return "removed"
	default:
		return "modified"
	}
}

// Config holds the counting thresholds.
type Config struct {
	// RepeatThreshold is the per-file edit count past which a thrashing
	// record is raised. Default 5: the record appears on the 6th edit.
	RepeatThreshold int
	// GutterThreshold is the number of distinct thrashing detections that
	// escalate gutter risk to high. Default 3.
	GutterThreshold int
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{RepeatThreshold: 5, GutterThreshold: 3}
}

// Detector observes file mutations and maintains the failure journal.
type Detector struct {
	progressPath string
	failurePath  string
	config       Config
}

// NewDetector creates a detector over the given journal files.
func NewDetector(progressPath, failurePath string, config Config) *Detector {
	if config.RepeatThreshold <= 0 {
		config.RepeatThreshold = DefaultConfig().RepeatThreshold
	}
	if config.GutterThreshold <= 0 {
		config.GutterThreshold = DefaultConfig().GutterThreshold
	}
	return &Detector{
		progressPath: progressPath,
		failurePath:  failurePath,
		config:       config,
	}
}

// RecordEdit journals one file mutation and returns a thrashing record if
// this mutation pushed the file past the repeat threshold. At most one
// thrashing record is raised per file per session: the detection fires on the
// transition, not on every subsequent edit.
func (d *Detector) RecordEdit(path string, delta, iteration int) (*FailureRecord, error) {
	prior, err := d.EditCount(path)
	if err != nil {
		return nil, err
	}

	entry := ProgressEntry{
		Path:      path,
		Delta:     delta,
		Kind:      classifyDelta(delta),
		Timestamp: time.Now().UTC(),
	}
	if err := state.AppendJSONL(d.progressPath, entry); err != nil {
		return nil, fmt.Errorf("journal progress: %w", err)
	}

	count := prior + 1
	if count <= d.config.RepeatThreshold {
		return nil, nil
	}

	already, err := d.hasThrashingRecord(path)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, nil
	}

	record := FailureRecord{
		Pattern:         PatternFileThrashing,
		Subject:         path,
		OccurrenceCount: count,
		Iteration:       iteration,
		Timestamp:       time.Now().UTC(),
	}
	if err := state.AppendJSONL(d.failurePath, record); err != nil {
		return nil, fmt.Errorf("journal failure: %w", err)
	}
	return &record, nil
}

// RecordCommandFailure journals a criteria-checked-but-tests-fail note for
// the given command. This is distinct from a thrashing record.
func (d *Detector) RecordCommandFailure(command string, iteration int) (*FailureRecord, error) {
	prior := 0
	err := d.eachFailure(func(r FailureRecord) {
		if r.Pattern == PatternRepeatedCommandFailure && r.Subject == command {
			prior++
		}
	})
	if err != nil {
		return nil, err
	}

	record := FailureRecord{
		Pattern:         PatternRepeatedCommandFailure,
		Subject:         command,
		OccurrenceCount: prior + 1,
		Iteration:       iteration,
		Timestamp:       time.Now().UTC(),
	}
	if err := state.AppendJSONL(d.failurePath, record); err != nil {
		return nil, fmt.Errorf("journal failure: %w", err)
	}
	return &record, nil
}

// EditCount returns how many times this exact path has been mutated in the
// session, by counting prior progress entries.
func (d *Detector) EditCount(path string) (int, error) {
	count := 0
	err := state.ReadJSONL(d.progressPath, func(line []byte) error {
		var e ProgressEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil
		}
		if e.Path == path {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("read progress journal: %w", err)
	}
	return count, nil
}

// Risk derives the gutter-risk scalar from the failure journal: high once the
// number of thrashing detections reaches the gutter threshold.
func (d *Detector) Risk() (Risk, error) {
	thrashing := 0
	err := d.eachFailure(func(r FailureRecord) {
		if r.Pattern == PatternFileThrashing {
			thrashing++
		}
	})
	if err != nil {
		return RiskLow, err
	}
	if thrashing >= d.config.GutterThreshold {
		return RiskHigh, nil
	}
	return RiskLow, nil
}

// Failures returns all journaled failure records in order.
func (d *Detector) Failures() ([]FailureRecord, error) {
	var records []FailureRecord
	err := d.eachFailure(func(r FailureRecord) {
		records = append(records, r)
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (d *Detector) hasThrashingRecord(path string) (bool, error) {
	found := false
	err := d.eachFailure(func(r FailureRecord) {
		if r.Pattern == PatternFileThrashing && r.Subject == path {
			found = true
		}
	})
	return found, err
}

func (d *Detector) eachFailure(fn func(FailureRecord)) error {
	err := state.ReadJSONL(d.failurePath, func(line []byte) error {
		var r FailureRecord
		if err := json.Unmarshal(line, &r); err != nil {
			return nil
		}
		fn(r)
		return nil
	})
	if err != nil {
		return fmt.Errorf("read failure journal: %w", err)
	}
	return nil
}
