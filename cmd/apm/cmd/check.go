package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify installed packages against the lockfile",
	Long: `Compares every lockfile entry against the modules directory. Reports
packages that are missing and working copies whose HEAD moved off the
locked commit. Exit 0 if everything matches; exit non-zero on drift.
Suitable for CI pipelines.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		result, err := client.Check(cmd.Context())
		if err != nil {
			return err
		}

		if result.Clean {
			printSuccess("All installed packages match the lockfile.")
			return nil
		}

		for _, d := range result.Drifted {
			printInfo("  drifted   %s", d.Package)
			printDetail("expected: %s", shortCommit(d.Expected))
			printDetail("actual:   %s", shortCommit(d.Actual))
		}
		for _, m := range result.Missing {
			printInfo("  missing   %s", m)
		}
		for _, e := range result.Errors {
			printError("%s: %v", e.Package, e.Err)
		}

		total := len(result.Drifted) + len(result.Missing) + len(result.Errors)
		return fmt.Errorf("check failed: %d package(s) out of sync", total)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
