package state

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store reads and writes all per-workspace state files. The state directory
// lives under the workspace root (default ".ralph").
type Store struct {
	dir string
}

// NewStore creates a store rooted at the given state directory.
func NewStore(stateDir string) *Store {
	return &Store{dir: stateDir}
}

// Dir returns the state directory path.
func (s *Store) Dir() string { return s.dir }

// StatePath returns the path of the current-iteration record.
func (s *Store) StatePath() string { return filepath.Join(s.dir, "state.json") }

// AccessLogPath returns the path of the resource-access journal.
func (s *Store) AccessLogPath() string { return filepath.Join(s.dir, "access.jsonl") }

// ProgressLogPath returns the path of the edit-progress journal.
func (s *Store) ProgressLogPath() string { return filepath.Join(s.dir, "progress.jsonl") }

// FailureLogPath returns the path of the failure journal.
func (s *Store) FailureLogPath() string { return filepath.Join(s.dir, "failures.jsonl") }

// GuardrailsPath returns the path of the guardrail rule file.
func (s *Store) GuardrailsPath() string { return filepath.Join(s.dir, "guardrails.yaml") }

// LastTestPath returns the path of the last observed test outcome.
func (s *Store) LastTestPath() string { return filepath.Join(s.dir, "last_test.json") }

// Load reads the current iteration state. A missing or corrupt file yields a
// fresh default record rather than an error: the controller favors
// availability, since state is re-derivable from the task file.
func (s *Store) Load() *IterationState {
	data, err := os.ReadFile(s.StatePath())
	if err != nil {
		return NewIterationState()
	}

	var st IterationState
	if err := json.Unmarshal(data, &st); err != nil {
		return NewIterationState()
	}
	if st.Iteration < 0 {
		return NewIterationState()
	}
	return &st
}

// Save atomically overwrites the iteration state record.
func (s *Store) Save(st *IterationState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return WriteAtomic(s.StatePath(), data)
}

// SaveLastTest persists the last observed test outcome.
func (s *Store) SaveLastTest(outcome *TestOutcome) error {
	data, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal test outcome: %w", err)
	}
	return WriteAtomic(s.LastTestPath(), data)
}

// LoadLastTest reads the last observed test outcome, or nil if none exists.
func (s *Store) LoadLastTest() *TestOutcome {
	data, err := os.ReadFile(s.LastTestPath())
	if err != nil {
		return nil
	}
	var outcome TestOutcome
	if err := json.Unmarshal(data, &outcome); err != nil {
		return nil
	}
	return &outcome
}

// WriteAtomic writes data to path via a temp file and rename so that readers
// never observe a partial write.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename state file: %w", err)
	}
	return nil
}

// AppendJSONL appends one JSON-encoded record as a line to an append-only
// journal, creating the journal and its directory on first use.
func AppendJSONL(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create journal directory: %w", err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal journal record: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append journal record: %w", err)
	}
	return nil
}

// ReadJSONL streams each line of a journal to decode. Malformed lines are
// skipped; a missing journal reads as empty.
func ReadJSONL(path string, decode func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			continue
		}
		if err := decode(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	return nil
}
