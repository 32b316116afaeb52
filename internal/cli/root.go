// Package cli implements the ralph command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/toddgeist/ralph-wiggum-cursor/internal/config"
	"github.com/toddgeist/ralph-wiggum-cursor/pkg/budget"
	"github.com/toddgeist/ralph-wiggum-cursor/pkg/guardrail"
	"github.com/toddgeist/ralph-wiggum-cursor/pkg/state"
	"github.com/toddgeist/ralph-wiggum-cursor/pkg/thrash"
)

// Version is set at build time via ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "ralph",
	Short: "Hook-driven iteration controller for autonomous coding agents",
	Long: `Ralph keeps an autonomous coding agent looping on a task until its
completion criteria are verifiably done. It runs as one-shot lifecycle
hooks (prompt, read, edit, stop) that read a JSON request on stdin and
answer on stdout, persisting all state under the workspace's .ralph/
directory so any invocation can crash without losing the session.`,
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("ralph version {{.Version}}\n")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// deps bundles the per-workspace collaborators most commands need.
type deps struct {
	cfg        *config.Config
	root       string
	store      *state.Store
	tracker    *budget.Tracker
	detector   *thrash.Detector
	guardrails *guardrail.Store
}

// openWorkspace loads config and state stores for a workspace root. An empty
// root means the current directory.
func openWorkspace(root string) (*deps, error) {
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		root = cwd
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	store := state.NewStore(config.StateDir(root))
	tracker := budget.NewTracker(store.AccessLogPath(), budget.Thresholds{
		CapacityTokens:   cfg.Budget.CapacityTokens,
		WarnFraction:     cfg.Budget.WarnFraction,
		CriticalFraction: cfg.Budget.CriticalFraction,
	}, budget.ByteEstimator{})
	detector := thrash.NewDetector(store.ProgressLogPath(), store.FailureLogPath(), thrash.Config{
		RepeatThreshold: cfg.Thrash.RepeatThreshold,
		GutterThreshold: cfg.Thrash.GutterThreshold,
	})

	return &deps{
		cfg:        cfg,
		root:       root,
		store:      store,
		tracker:    tracker,
		detector:   detector,
		guardrails: guardrail.NewStore(store.GuardrailsPath()),
	}, nil
}
