package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seiggy/apm/pkg/apm"
)

var pruneDryRun bool

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove packages the lockfile no longer references",
	Long: `Compares the modules directory against the lockfile and removes
directories no lockfile entry claims, such as packages dropped from the
manifest after their last install. Use --dry-run to see what would be
removed without acting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		result, err := client.Prune(cmd.Context(), apm.PruneOptions{DryRun: pruneDryRun})
		if err != nil {
			return err
		}

		if len(result.Removed) == 0 {
			printInfo("Nothing to prune.")
			return nil
		}

		action := "removed"
		if pruneDryRun {
			printInfo("Dry run — nothing was removed.")
			action = "would remove"
		}
		for _, rel := range result.Removed {
			printInfo("  %-12s %s", action, rel)
		}
		if !pruneDryRun {
			printInfo("\nPruned %d package(s).", len(result.Removed))
		}

		if len(result.Errors) > 0 {
			for _, e := range result.Errors {
				printError("%s: %v", e.Package, e.Err)
			}
			return fmt.Errorf("%d error(s) during prune", len(result.Errors))
		}
		return nil
	},
}

func init() {
	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "show what would be removed without acting")
	rootCmd.AddCommand(pruneCmd)
}
