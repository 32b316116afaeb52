package engine

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/toddgeist/ralph-wiggum-cursor/pkg/state"
)

// CommandRunner executes the task's test command against a workspace and
// reports the outcome. Launch failures and timeouts are outcomes, not errors:
// the engine treats them the same as a non-zero exit.
type CommandRunner interface {
	Run(ctx context.Context, dir, command string) state.TestOutcome
}

// ShellRunner runs commands through the shell with a hard timeout.
type ShellRunner struct {
	// Timeout bounds a single run. Zero means DefaultTestTimeout.
	Timeout time.Duration
}

// DefaultTestTimeout bounds test-command runs when no timeout is configured.
// A hung test command must not hang the controller.
const DefaultTestTimeout = 5 * time.Minute

// Run implements CommandRunner.
func (r ShellRunner) Run(ctx context.Context, dir, command string) state.TestOutcome {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTestTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = dir

	output, err := cmd.CombinedOutput()
	outcome := state.TestOutcome{
		Output:    strings.TrimSpace(string(output)),
		Timestamp: time.Now().UTC(),
	}

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		outcome.TimedOut = true
		outcome.ExitCode = -1
		outcome.Output = strings.TrimSpace(outcome.Output + "\n(test command timed out after " + timeout.String() + ")")
	case err != nil:
		if exitErr, ok := err.(*exec.ExitError); ok {
			outcome.ExitCode = exitErr.ExitCode()
		} else {
			// Launch failure (e.g. command not found).
			outcome.ExitCode = -1
			outcome.Output = strings.TrimSpace(outcome.Output + "\n" + err.Error())
		}
	default:
		outcome.ExitCode = 0
	}

	return outcome
}
