// Package prompt assembles the per-iteration instruction payload. Composition
// is pure data: no I/O, and byte-identical output for unchanged inputs.
package prompt

import (
	"fmt"
	"strings"

	"github.com/toddgeist/ralph-wiggum-cursor/pkg/budget"
	"github.com/toddgeist/ralph-wiggum-cursor/pkg/guardrail"
	"github.com/toddgeist/ralph-wiggum-cursor/pkg/state"
)

// DefaultMaxOutputLines bounds how much captured test output is replayed into
// the prompt, so the prompt does not re-inflate the budget it protects.
const DefaultMaxOutputLines = 20

// Inputs is everything the composer consumes. All fields are plain data read
// from durable state before composition.
type Inputs struct {
	// Iteration is the iteration about to start (state.iteration + 1).
	Iteration int

	// BudgetStatus and the token figures drive the context warning.
	BudgetStatus    budget.Status
	AllocatedTokens int
	CapacityTokens  int

	// TestCommand is the task's configured test command, if any.
	TestCommand string

	// LastTest is the last observed test outcome, if any.
	LastTest *state.TestOutcome

	// RemainingCriteria is the current unchecked-criteria count.
	RemainingCriteria int

	// Guardrails are the rules injected into every iteration.
	Guardrails []guardrail.Guardrail
}

// Composer builds instruction payloads.
type Composer struct {
	// MaxOutputLines bounds replayed test output. Zero means the default.
	MaxOutputLines int
}

// Compose builds the instruction payload for the next iteration. Calling it
// twice with unchanged inputs yields identical text.
func (c Composer) Compose(in Inputs) string {
	maxLines := c.MaxOutputLines
	if maxLines <= 0 {
		maxLines = DefaultMaxOutputLines
	}

	var b strings.Builder

	fmt.Fprintf(&b, "# Iteration %d\n\n", in.Iteration)
	fmt.Fprintf(&b, "Re-read the task file. %d criteria remain unchecked.\n", in.RemainingCriteria)

	if in.BudgetStatus >= budget.StatusWarning {
		b.WriteString("\n## Context budget\n")
		fmt.Fprintf(&b, "Estimated context use: %d of %d token units (%s).\n",
			in.AllocatedTokens, in.CapacityTokens, in.BudgetStatus)
		if in.BudgetStatus == budget.StatusCritical {
			b.WriteString("Context is nearly exhausted. Wrap up the current change and update the task file; a fresh session will resume from durable state.\n")
		} else {
			b.WriteString("Be economical: avoid re-reading large files and finish the criterion in progress before starting another.\n")
		}
	}

	if in.TestCommand != "" {
		b.WriteString("\n## Verification\n")
		fmt.Fprintf(&b, "Completion is verified by running: %s\n", in.TestCommand)
		if in.LastTest != nil && !in.LastTest.Passed() {
			if in.LastTest.TimedOut {
				b.WriteString("The last run timed out.\n")
			} else {
				fmt.Fprintf(&b, "The last run failed (exit %d):\n", in.LastTest.ExitCode)
			}
			b.WriteString("```\n")
			b.WriteString(TruncateLines(in.LastTest.Output, maxLines))
			b.WriteString("\n```\n")
		}
	}

	if len(in.Guardrails) > 0 {
		b.WriteString("\n## Guardrails\n")
		for _, g := range in.Guardrails {
			fmt.Fprintf(&b, "- When %s: %s\n", g.Trigger, g.Instruction)
		}
	}

	return b.String()
}

// TruncateLines keeps at most max lines of s, annotating how many were cut.
func TruncateLines(s string, max int) string {
	s = strings.TrimRight(s, "\n")
	lines := strings.Split(s, "\n")
	if len(lines) <= max {
		return s
	}
	kept := lines[:max]
	return strings.Join(kept, "\n") + fmt.Sprintf("\n... (%d more lines truncated)", len(lines)-max)
}
