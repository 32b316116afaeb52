// Package task reads the task specification file: a TOML preamble fenced by
// "+++" lines followed by a Markdown checklist of completion criteria.
package task

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrMissingTask indicates the task file does not exist. Callers should
// treat this as a no-op passthrough, not a failure.
var ErrMissingTask = errors.New("task file not found")

// preambleFence delimits the TOML preamble at the top of the task file.
const preambleFence = "+++"

// uncheckedMarker is the single well-known token for an unchecked criterion.
// Any other rendering of the marker position counts as checked.
const uncheckedMarker = "- [ ]"

// Criterion is one checklist item in the task body.
type Criterion struct {
	Text    string
	Checked bool
}

// Spec is the parsed task specification. It is immutable per read; callers
// re-parse the file every iteration rather than caching, because the file is
// editable by both the agent and the human.
type Spec struct {
	TestCommand   string
	MaxIterations int
	Criteria      []Criterion
}

// preamble mirrors the TOML key-value block at the top of the task file.
type preamble struct {
	TestCommand   string `toml:"test_command"`
	MaxIterations int    `toml:"max_iterations"`
}

// Load reads and parses the task file at path.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrMissingTask
		}
		return nil, fmt.Errorf("read task file: %w", err)
	}
	return Parse(string(data))
}

// Parse parses task file content.
func Parse(content string) (*Spec, error) {
	front, body, err := splitPreamble(content)
	if err != nil {
		return nil, err
	}

	var p preamble
	if front != "" {
		if _, err := toml.Decode(front, &p); err != nil {
			return nil, fmt.Errorf("parse task preamble: %w", err)
		}
	}
	if p.MaxIterations < 0 {
		p.MaxIterations = 0
	}

	spec := &Spec{
		TestCommand:   strings.TrimSpace(p.TestCommand),
		MaxIterations: p.MaxIterations,
	}

	for _, line := range strings.Split(body, "\n") {
		crit, ok := parseCriterion(line)
		if ok {
			spec.Criteria = append(spec.Criteria, crit)
		}
	}

	return spec, nil
}

// splitPreamble separates the fenced TOML preamble from the checklist body.
// A file without a preamble is all body.
func splitPreamble(content string) (front, body string, err error) {
	trimmed := strings.TrimLeft(content, "\n\r \t")
	if !strings.HasPrefix(trimmed, preambleFence) {
		return "", content, nil
	}

	rest := trimmed[len(preambleFence):]
	end := strings.Index(rest, "\n"+preambleFence)
	if end < 0 {
		return "", "", fmt.Errorf("task preamble fence %q not closed", preambleFence)
	}

	front = rest[:end]
	body = rest[end+len(preambleFence)+1:]
	return front, body, nil
}

// parseCriterion recognizes a checklist line. The marker position is the
// single character between the brackets: a space means unchecked, anything
// else means checked.
func parseCriterion(line string) (Criterion, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "- [") {
		return Criterion{}, false
	}
	if len(trimmed) < len("- [x]") || trimmed[4] != ']' {
		return Criterion{}, false
	}

	marker := trimmed[:len(uncheckedMarker)]
	text := strings.TrimSpace(trimmed[len(uncheckedMarker):])
	return Criterion{
		Text:    text,
		Checked: marker != uncheckedMarker,
	}, true
}

// UncheckedCount returns the number of unchecked criteria. This count is the
// authoritative "work remaining" signal; criterion identity and order do not
// affect completion.
func (s *Spec) UncheckedCount() int {
	n := 0
	for _, c := range s.Criteria {
		if !c.Checked {
			n++
		}
	}
	return n
}

// Unbounded reports whether the task has no iteration ceiling.
func (s *Spec) Unbounded() bool {
	return s.MaxIterations == 0
}
