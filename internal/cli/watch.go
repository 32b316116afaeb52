package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/toddgeist/ralph-wiggum-cursor/internal/config"
	"github.com/toddgeist/ralph-wiggum-cursor/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Tail state-file changes for the current workspace",
	Long: `Watches the .ralph/ state directory and prints each state-file change
as it lands. Useful for following a running session from a second
terminal.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}

	stateDir := config.StateDir(cwd)
	if _, err := os.Stat(stateDir); os.IsNotExist(err) {
		return fmt.Errorf("no %s directory here; run `ralph init` first", config.StateDirName)
	}

	watcher, err := watch.NewWatcher(stateDir, func(e watch.Event) {
		fmt.Printf("%s  %-8s %s\n", e.At.Format("15:04:05.000"), e.Op, e.Name)
	})
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		return err
	}
	defer watcher.Stop()

	fmt.Printf("Watching %s (ctrl-c to stop)\n", stateDir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-cmd.Context().Done():
	}
	return nil
}
