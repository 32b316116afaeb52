// Package guardrail persists the rule set injected into every iteration's
// instructions. The file is YAML so both the human and the agent can edit it;
// the core range is seeded once and never rewritten, the learned range only
// ever grows within a workspace's lifetime.
package guardrail

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/toddgeist/ralph-wiggum-cursor/pkg/state"
)

// Guardrail is one persisted rule: when trigger is observed, follow
// instruction. AddedAfter records the provenance of a learned rule.
type Guardrail struct {
	Trigger     string `yaml:"trigger"`
	Instruction string `yaml:"instruction"`
	AddedAfter  string `yaml:"added_after,omitempty"`
}

// Set is the full ordered rule set.
type Set struct {
	Core    []Guardrail `yaml:"core"`
	Learned []Guardrail `yaml:"learned"`
}

// All returns core followed by learned rules.
func (s *Set) All() []Guardrail {
	out := make([]Guardrail, 0, len(s.Core)+len(s.Learned))
	out = append(out, s.Core...)
	out = append(out, s.Learned...)
	return out
}

// Store reads and writes the guardrail file.
type Store struct {
	path string
}

// NewStore creates a store over the given guardrail file.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultCore returns the rules seeded at initialization.
func DefaultCore() []Guardrail {
	return []Guardrail{
		{
			Trigger:     "before marking a criterion checked",
			Instruction: "Run the task's test command first; a checked box without passing tests will be rejected.",
		},
		{
			Trigger:     "editing the same file repeatedly without progress",
			Instruction: "Stop and re-read the failing output before the next edit; state the hypothesis you are testing.",
		},
		{
			Trigger:     "context budget warning in the prompt",
			Instruction: "Prefer finishing the current criterion over starting a new one; avoid re-reading large files.",
		},
	}
}

// Seed writes the core rules if and only if no guardrail file exists yet.
// Core rules are never rewritten once seeded.
func (s *Store) Seed(core []Guardrail) error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	}
	return s.save(&Set{Core: core})
}

// Load reads the rule set. A missing or unparseable file reads as empty; the
// store favors availability over strict consistency.
func (s *Store) Load() *Set {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return &Set{}
	}
	var set Set
	if err := yaml.Unmarshal(data, &set); err != nil {
		return &Set{}
	}
	return &set
}

// Append adds one learned rule. Learned rules are never removed.
func (s *Store) Append(g Guardrail) error {
	set := s.Load()
	set.Learned = append(set.Learned, g)
	return s.save(set)
}

func (s *Store) save(set *Set) error {
	data, err := yaml.Marshal(set)
	if err != nil {
		return fmt.Errorf("marshal guardrails: %w", err)
	}
	return state.WriteAtomic(s.path, data)
}
