package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/toddgeist/ralph-wiggum-cursor/pkg/task"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session status",
	Long: `Shows the iteration session for the current workspace: iteration count,
lifecycle status, task progress, context budget, and gutter risk.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	d, err := openWorkspace("")
	if err != nil {
		return err
	}

	st := d.store.Load()
	fmt.Printf("Iteration: %d\n", st.Iteration)
	fmt.Printf("Status:    %s\n", st.Status)
	fmt.Printf("Started:   %s\n", st.StartedAt.Format("2006-01-02 15:04:05"))

	spec, err := task.Load(d.cfg.TaskPath(d.root))
	switch {
	case errors.Is(err, task.ErrMissingTask):
		fmt.Printf("Task:      no task file (%s)\n", d.cfg.Task.File)
	case err != nil:
		fmt.Printf("Task:      unreadable (%v)\n", err)
	default:
		checked := len(spec.Criteria) - spec.UncheckedCount()
		fmt.Printf("Task:      %d/%d criteria checked\n", checked, len(spec.Criteria))
		if spec.TestCommand != "" {
			fmt.Printf("Verify:    %s\n", spec.TestCommand)
		}
		if !spec.Unbounded() {
			fmt.Printf("Ceiling:   %d iterations\n", spec.MaxIterations)
		}
	}

	allocated, err := d.tracker.Allocated()
	if err != nil {
		return err
	}
	budgetStatus, err := d.tracker.Status()
	if err != nil {
		return err
	}
	t := d.tracker.Thresholds()
	fmt.Printf("Budget:    %d/%d token units (%s)\n", allocated, t.CapacityTokens, budgetStatus)

	risk, err := d.detector.Risk()
	if err != nil {
		return err
	}
	fmt.Printf("Gutter:    %s\n", risk)

	if last := d.store.LoadLastTest(); last != nil {
		result := "passed"
		if last.TimedOut {
			result = "timed out"
		} else if !last.Passed() {
			result = fmt.Sprintf("failed (exit %d)", last.ExitCode)
		}
		fmt.Printf("Last test: %s at %s\n", result, last.Timestamp.Format("2006-01-02 15:04:05"))
	}

	return nil
}
