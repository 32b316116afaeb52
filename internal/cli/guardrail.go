package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/toddgeist/ralph-wiggum-cursor/pkg/guardrail"
)

var guardrailAddedAfter string

var guardrailCmd = &cobra.Command{
	Use:   "guardrail",
	Short: "Manage the guardrail rules injected into every iteration",
}

var guardrailListCmd = &cobra.Command{
	Use:   "list",
	Short: "List core and learned guardrails",
	RunE:  runGuardrailList,
}

var guardrailAddCmd = &cobra.Command{
	Use:   "add <trigger> <instruction>",
	Short: "Append a learned guardrail",
	Long: `Appends a learned guardrail. Learned guardrails accumulate across the
session and are never removed; every future iteration sees them.`,
	Args: cobra.ExactArgs(2),
	RunE: runGuardrailAdd,
}

func init() {
	guardrailAddCmd.Flags().StringVar(&guardrailAddedAfter, "after", "", "provenance note: the failure this rule was learned from")
	guardrailCmd.AddCommand(guardrailListCmd, guardrailAddCmd)
	rootCmd.AddCommand(guardrailCmd)
}

func runGuardrailList(cmd *cobra.Command, args []string) error {
	d, err := openWorkspace("")
	if err != nil {
		return err
	}

	set := d.guardrails.Load()
	if len(set.Core) == 0 && len(set.Learned) == 0 {
		fmt.Println("No guardrails. Run `ralph init` to seed the core set.")
		return nil
	}

	if len(set.Core) > 0 {
		fmt.Println("Core:")
		for _, g := range set.Core {
			fmt.Printf("  - When %s: %s\n", g.Trigger, g.Instruction)
		}
	}
	if len(set.Learned) > 0 {
		fmt.Println("Learned:")
		for _, g := range set.Learned {
			fmt.Printf("  - When %s: %s", g.Trigger, g.Instruction)
			if g.AddedAfter != "" {
				fmt.Printf(" (after: %s)", g.AddedAfter)
			}
			fmt.Println()
		}
	}
	return nil
}

func runGuardrailAdd(cmd *cobra.Command, args []string) error {
	d, err := openWorkspace("")
	if err != nil {
		return err
	}

	g := guardrail.Guardrail{
		Trigger:     args[0],
		Instruction: args[1],
		AddedAfter:  guardrailAddedAfter,
	}
	if err := d.guardrails.Append(g); err != nil {
		return err
	}
	fmt.Printf("Added: when %s: %s\n", g.Trigger, g.Instruction)
	return nil
}
