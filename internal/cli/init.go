package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/toddgeist/ralph-wiggum-cursor/internal/config"
	"github.com/toddgeist/ralph-wiggum-cursor/pkg/guardrail"
)

var initForce bool

// taskTemplate is written when no task file exists yet.
const taskTemplate = `+++
test_command = ""
max_iterations = 0
+++

# Task

Describe the goal here, then list the completion criteria.

- [ ] First criterion
- [ ] Second criterion
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the .ralph/ state directory",
	Long: `Creates the .ralph/ directory in the current workspace with default
configuration, seeds the core guardrails, and writes a task file template
if none exists.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "rewrite config.yaml even if it exists")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}

	stateDir := config.StateDir(cwd)
	if err := os.MkdirAll(filepath.Join(stateDir, "logs"), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	cfgPath := config.ConfigPath(cwd)
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) || initForce {
		if err := config.DefaultConfig().Save(cwd); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", cfgPath)
	} else {
		fmt.Printf("Keeping existing %s\n", cfgPath)
	}

	d, err := openWorkspace(cwd)
	if err != nil {
		return err
	}
	if err := d.guardrails.Seed(guardrail.DefaultCore()); err != nil {
		return fmt.Errorf("seed guardrails: %w", err)
	}

	taskPath := d.cfg.TaskPath(cwd)
	if _, err := os.Stat(taskPath); os.IsNotExist(err) {
		if err := os.WriteFile(taskPath, []byte(taskTemplate), 0o644); err != nil {
			return fmt.Errorf("write task template: %w", err)
		}
		fmt.Printf("Wrote %s\n", taskPath)
	}

	fmt.Println("Workspace initialized. Point your agent's lifecycle hooks at `ralph hook <event>`.")
	return nil
}
