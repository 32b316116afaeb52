// Package engine implements the completion verifier and decision engine: the
// state machine evaluated on every stop request. It is the sole owner of the
// iteration state record.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/toddgeist/ralph-wiggum-cursor/pkg/budget"
	"github.com/toddgeist/ralph-wiggum-cursor/pkg/prompt"
	"github.com/toddgeist/ralph-wiggum-cursor/pkg/state"
	"github.com/toddgeist/ralph-wiggum-cursor/pkg/task"
	"github.com/toddgeist/ralph-wiggum-cursor/pkg/thrash"
)

// Outcome is the engine's transition result for one stop request.
type Outcome int

const (
	// OutcomePassthrough means no task file exists; the stop proceeds
	// untouched.
	OutcomePassthrough Outcome = iota
	// OutcomeComplete means all criteria are checked and verification
	// passed (or no test command is configured).
	OutcomeComplete
	// OutcomeContinueFixing means criteria are all checked but the test
	// command failed; the agent keeps working.
	OutcomeContinueFixing
	// OutcomeMaxedOut means the iteration ceiling was reached. Terminal.
	OutcomeMaxedOut
	// OutcomeHandoff means context or gutter exhaustion triggered an
	// external handoff to a fresh session.
	OutcomeHandoff
	// OutcomeAwaitingHuman means exhaustion was detected but no handoff is
	// available; a human must resume in a fresh session.
	OutcomeAwaitingHuman
	// OutcomeContinuing means work remains and the loop re-enters.
	OutcomeContinuing
)

// String returns the string representation of an outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomePassthrough:
		return "passthrough"
	case OutcomeComplete:
		return "complete"
	case OutcomeContinueFixing:
		return "continue_fixing"
	case OutcomeMaxedOut:
		return "maxed_out"
	case OutcomeHandoff:
		return "handoff"
	case OutcomeAwaitingHuman:
		return "awaiting_human"
	case OutcomeContinuing:
		return "continuing"
	default:
		return "unknown"
	}
}

// Decision is the engine's answer to one stop request. Stop=false means the
// stop is blocked and the agent continues with AgentMessage as instructions.
type Decision struct {
	Outcome      Outcome
	Stop         bool
	AgentMessage string
	HumanMessage string
	// Unverified flags a completion that had no test command to confirm it.
	Unverified bool
}

// Handoff is the external escalation boundary. Implementations rotate the
// session to a fresh context; failure to escalate is non-fatal.
type Handoff interface {
	Trigger(ctx context.Context, iteration int, reason string) error
}

// ErrHandoffUnavailable is returned by Handoff implementations that are not
// configured.
var ErrHandoffUnavailable = errors.New("handoff not configured")

// Engine evaluates stop requests against all persisted state.
type Engine struct {
	taskPath string
	store    *state.Store
	tracker  *budget.Tracker
	detector *thrash.Detector
	runner   CommandRunner
	handoff  Handoff

	// MaxOutputLines bounds failure output replayed to the agent.
	MaxOutputLines int
}

// New creates an engine over the given collaborators. runner may be nil, in
// which case a ShellRunner with the default timeout is used; handoff may be
// nil when no escalation target is configured.
func New(taskPath string, store *state.Store, tracker *budget.Tracker, detector *thrash.Detector, runner CommandRunner, handoff Handoff) *Engine {
	if runner == nil {
		runner = ShellRunner{}
	}
	return &Engine{
		taskPath:       taskPath,
		store:          store,
		tracker:        tracker,
		detector:       detector,
		runner:         runner,
		handoff:        handoff,
		MaxOutputLines: prompt.DefaultMaxOutputLines,
	}
}

// EvaluateStop runs the transition algorithm in fixed priority order:
// completion first, then the iteration ceiling, then context/gutter
// exhaustion, then normal continuation. Completion before exhaustion means a
// finished task is never needlessly rotated; the ceiling before exhaustion
// means a capped task stops deterministically instead of handing off forever.
func (e *Engine) EvaluateStop(ctx context.Context, workspaceRoot string) (Decision, error) {
	spec, err := task.Load(e.taskPath)
	if err != nil {
		if errors.Is(err, task.ErrMissingTask) {
			return Decision{Outcome: OutcomePassthrough, Stop: true}, nil
		}
		return Decision{}, fmt.Errorf("load task spec: %w", err)
	}

	st := e.store.Load()

	// 1. Completion check.
	if spec.UncheckedCount() == 0 {
		return e.verifyCompletion(ctx, workspaceRoot, spec, st)
	}

	// 2. Iteration ceiling.
	if spec.MaxIterations > 0 && st.Iteration >= spec.MaxIterations {
		st.Status = state.StatusMaxIterations
		if err := e.store.Save(st); err != nil {
			return Decision{}, fmt.Errorf("persist state: %w", err)
		}
		return Decision{
			Outcome: OutcomeMaxedOut,
			Stop:    true,
			HumanMessage: fmt.Sprintf("Reached max iterations (%d) with %d criteria unchecked. Raise max_iterations in the task file to continue.",
				spec.MaxIterations, spec.UncheckedCount()),
		}, nil
	}

	// 3. Context/gutter exhaustion.
	exhausted, reason, err := e.exhausted()
	if err != nil {
		return Decision{}, err
	}
	if exhausted {
		return e.escalate(ctx, st, reason)
	}

	// 4. Normal continuation.
	st.Iteration++
	st.Status = state.StatusActive
	if err := e.store.Save(st); err != nil {
		return Decision{}, fmt.Errorf("persist state: %w", err)
	}

	msg := fmt.Sprintf("%d criteria remain unchecked. Keep working; update the task file as criteria are finished.", spec.UncheckedCount())
	if spec.TestCommand != "" {
		msg += fmt.Sprintf(" Verify with: %s", spec.TestCommand)
	}
	return Decision{
		Outcome:      OutcomeContinuing,
		Stop:         false,
		AgentMessage: msg,
	}, nil
}

// verifyCompletion handles the zero-unchecked branch.
func (e *Engine) verifyCompletion(ctx context.Context, workspaceRoot string, spec *task.Spec, st *state.IterationState) (Decision, error) {
	if spec.TestCommand == "" {
		st.Status = state.StatusComplete
		if err := e.store.Save(st); err != nil {
			return Decision{}, fmt.Errorf("persist state: %w", err)
		}
		return Decision{
			Outcome:      OutcomeComplete,
			Stop:         true,
			Unverified:   true,
			HumanMessage: "All criteria checked. No test command configured, so completion is unverified.",
		}, nil
	}

	outcome := e.runner.Run(ctx, workspaceRoot, spec.TestCommand)
	if err := e.store.SaveLastTest(&outcome); err != nil {
		return Decision{}, fmt.Errorf("persist test outcome: %w", err)
	}

	if outcome.Passed() {
		st.Status = state.StatusComplete
		if err := e.store.Save(st); err != nil {
			return Decision{}, fmt.Errorf("persist state: %w", err)
		}
		return Decision{
			Outcome:      OutcomeComplete,
			Stop:         true,
			HumanMessage: fmt.Sprintf("All criteria checked and %q passed. Task complete after %d iterations.", spec.TestCommand, st.Iteration),
		}, nil
	}

	// Checked boxes with failing tests: a distinct failure note, not a
	// thrashing record.
	if _, err := e.detector.RecordCommandFailure(spec.TestCommand, st.Iteration); err != nil {
		return Decision{}, err
	}

	st.Iteration++
	st.Status = state.StatusActive
	if err := e.store.Save(st); err != nil {
		return Decision{}, fmt.Errorf("persist state: %w", err)
	}

	failure := "failed"
	if outcome.TimedOut {
		failure = "timed out"
	}
	msg := fmt.Sprintf("All criteria are checked but the test command %s (exit %d). Checkboxes alone do not constitute completion; make the tests pass.\n\n%s",
		failure, outcome.ExitCode, prompt.TruncateLines(outcome.Output, e.MaxOutputLines))
	return Decision{
		Outcome:      OutcomeContinueFixing,
		Stop:         false,
		AgentMessage: msg,
	}, nil
}

// exhausted reports whether the budget is critical or gutter risk is high.
func (e *Engine) exhausted() (bool, string, error) {
	status, err := e.tracker.Status()
	if err != nil {
		return false, "", fmt.Errorf("budget status: %w", err)
	}
	if status == budget.StatusCritical {
		return true, "context budget critical", nil
	}

	risk, err := e.detector.Risk()
	if err != nil {
		return false, "", fmt.Errorf("gutter risk: %w", err)
	}
	if risk == thrash.RiskHigh {
		return true, "gutter risk high", nil
	}
	return false, "", nil
}

// escalate attempts the external handoff, degrading to a human-actionable
// stop when it is unavailable or rejects.
func (e *Engine) escalate(ctx context.Context, st *state.IterationState, reason string) (Decision, error) {
	if e.handoff != nil {
		if err := e.handoff.Trigger(ctx, st.Iteration, reason); err == nil {
			return Decision{
				Outcome:      OutcomeHandoff,
				Stop:         true,
				HumanMessage: fmt.Sprintf("Session rotated (%s) at iteration %d. Durable state is preserved; a fresh session resumes automatically.", reason, st.Iteration),
			}, nil
		}
	}
	return Decision{
		Outcome: OutcomeAwaitingHuman,
		Stop:    true,
		HumanMessage: fmt.Sprintf("Stopping (%s) at iteration %d. Start a fresh session against this workspace to resume from durable state.",
			reason, st.Iteration),
	}, nil
}
