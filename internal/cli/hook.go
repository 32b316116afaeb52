package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/toddgeist/ralph-wiggum-cursor/internal/handoff"
	"github.com/toddgeist/ralph-wiggum-cursor/internal/logger"
	"github.com/toddgeist/ralph-wiggum-cursor/pkg/budget"
	"github.com/toddgeist/ralph-wiggum-cursor/pkg/engine"
	"github.com/toddgeist/ralph-wiggum-cursor/pkg/hook"
	"github.com/toddgeist/ralph-wiggum-cursor/pkg/prompt"
	"github.com/toddgeist/ralph-wiggum-cursor/pkg/task"
)

var hookCmd = &cobra.Command{
	Use:   "hook <event>",
	Short: "Run one lifecycle hook (reads JSON on stdin, answers on stdout)",
	Long: `Executes a single lifecycle hook invocation. The host agent runtime
pipes a JSON request on stdin; the decision is written as JSON on stdout.
Each invocation is one-shot: it loads durable state, decides, persists,
and exits.`,
}

func init() {
	hookCmd.AddCommand(
		&cobra.Command{Use: "prompt", Short: "Compose the next iteration's instruction payload", RunE: runHook(hook.EventPrompt)},
		&cobra.Command{Use: "read", Short: "Record a resource read against the context budget", RunE: runHook(hook.EventRead)},
		&cobra.Command{Use: "edit", Short: "Record a file edit for thrash detection", RunE: runHook(hook.EventEdit)},
		&cobra.Command{Use: "stop", Short: "Evaluate a stop request against the decision engine", RunE: runHook(hook.EventStop)},
	)
	rootCmd.AddCommand(hookCmd)
}

// runHook builds the RunE for one hook event. Hooks fail open: an internal
// error is logged and answered with the permissive decision rather than
// wedging the agent.
func runHook(event hook.Event) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		req, err := hook.ReadRequest(os.Stdin)
		if err != nil {
			// Malformed input: nothing to decide on, let the action proceed.
			resp := failOpen(event)
			return resp.Write(os.Stdout)
		}
		req.Event = event

		d, err := openWorkspace(req.WorkspaceRoot)
		if err != nil {
			resp := failOpen(event)
			return resp.Write(os.Stdout)
		}

		// stdout carries the JSON response, so logs are file-only.
		log := logger.SetupLogger(d.cfg, d.root, false)
		defer logger.Stop()

		resp, err := dispatch(cmd, d, req)
		if err != nil {
			log.Warn().Err(err).Str("event", string(event)).Msg("hook failed open")
			resp = failOpen(event)
		} else {
			log.Debug().Str("event", string(event)).Str("decision", string(resp.Decision)).Msg("hook decided")
		}
		return resp.Write(os.Stdout)
	}
}

// failOpen is the permissive decision per event: stops are allowed, all
// other actions proceed.
func failOpen(event hook.Event) *hook.Response {
	if event == hook.EventStop {
		return &hook.Response{Decision: hook.DecisionStop}
	}
	return &hook.Response{Decision: hook.DecisionContinue}
}

func dispatch(cmd *cobra.Command, d *deps, req *hook.Request) (*hook.Response, error) {
	switch req.Event {
	case hook.EventPrompt:
		return handlePrompt(d)
	case hook.EventRead:
		return handleRead(d, req)
	case hook.EventEdit:
		return handleEdit(d, req)
	case hook.EventStop:
		return handleStop(cmd, d)
	default:
		return nil, fmt.Errorf("unknown hook event %q", req.Event)
	}
}

// handlePrompt composes the instruction payload for the iteration about to
// start. The payload is pure function of durable state.
func handlePrompt(d *deps) (*hook.Response, error) {
	st := d.store.Load()

	allocated, err := d.tracker.Allocated()
	if err != nil {
		return nil, err
	}
	status, err := d.tracker.Status()
	if err != nil {
		return nil, err
	}

	in := prompt.Inputs{
		Iteration:       st.Iteration + 1,
		BudgetStatus:    status,
		AllocatedTokens: allocated,
		CapacityTokens:  d.tracker.Thresholds().CapacityTokens,
		LastTest:        d.store.LoadLastTest(),
		Guardrails:      d.guardrails.Load().All(),
	}
	if spec, err := task.Load(d.cfg.TaskPath(d.root)); err == nil {
		in.TestCommand = spec.TestCommand
		in.RemainingCriteria = spec.UncheckedCount()
	}

	composer := prompt.Composer{MaxOutputLines: d.cfg.Test.MaxOutputLines}
	return &hook.Response{
		Decision:     hook.DecisionContinue,
		AgentMessage: composer.Compose(in),
	}, nil
}

// handleRead charges the read against the context budget. Reads are never
// blocked, even at critical: refusing information would only deepen a
// struggling session.
func handleRead(d *deps, req *hook.Request) (*hook.Response, error) {
	_, status, err := d.tracker.Record(req.ResourcePath, req.Size())
	if err != nil {
		return nil, err
	}

	resp := &hook.Response{Decision: hook.DecisionContinue}
	if status >= budget.StatusWarning {
		allocated, err := d.tracker.Allocated()
		if err != nil {
			return nil, err
		}
		t := d.tracker.Thresholds()
		resp.AgentMessage = fmt.Sprintf("Context budget %s: ~%d of %d token units used. Avoid re-reading large files.",
			status, allocated, t.CapacityTokens)
	}
	return resp, nil
}

// handleEdit journals the edit and surfaces a thrashing warning when this
// edit crosses the repeat threshold for its file.
func handleEdit(d *deps, req *hook.Request) (*hook.Response, error) {
	st := d.store.Load()

	record, err := d.detector.RecordEdit(req.Path, req.Delta(), st.Iteration)
	if err != nil {
		return nil, err
	}

	resp := &hook.Response{Decision: hook.DecisionContinue}
	if record != nil {
		resp.AgentMessage = fmt.Sprintf("You have edited %s %d times this session. Step back and reconsider the approach instead of patching again.",
			record.Subject, record.OccurrenceCount)
	}
	return resp, nil
}

// handleStop runs the decision engine and maps its verdict onto the hook
// protocol: Stop=true allows the stop, Stop=false blocks it with fresh
// instructions.
func handleStop(cmd *cobra.Command, d *deps) (*hook.Response, error) {
	var h engine.Handoff
	if n := handoff.New(d.cfg.Handoff.URL, d.cfg.Handoff.Token); n != nil {
		h = n
	}

	runner := engine.ShellRunner{Timeout: time.Duration(d.cfg.Test.TimeoutSeconds) * time.Second}
	eng := engine.New(d.cfg.TaskPath(d.root), d.store, d.tracker, d.detector, runner, h)
	eng.MaxOutputLines = d.cfg.Test.MaxOutputLines

	decision, err := eng.EvaluateStop(cmd.Context(), d.root)
	if err != nil {
		return nil, err
	}

	verdict := hook.DecisionBlock
	if decision.Stop {
		verdict = hook.DecisionStop
	}
	return &hook.Response{
		Decision:     verdict,
		AgentMessage: decision.AgentMessage,
		HumanMessage: decision.HumanMessage,
	}, nil
}
