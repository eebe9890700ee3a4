package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var outdatedCmd = &cobra.Command{
	Use:   "outdated",
	Short: "Check locked packages against their upstream refs",
	Long: `Queries each locked branch and tag for the commit its remote currently
serves and reports packages whose upstream moved. Commit pins never go
stale and are skipped. Does NOT modify the lockfile or the modules
directory. Exit 0 if everything is current; exit non-zero if updates
are available.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		result, err := client.Outdated(cmd.Context())
		if err != nil {
			return err
		}

		for _, key := range result.UpToDate {
			printInfo("  ✓ %-44s  up to date", key)
		}
		for _, o := range result.Outdated {
			printInfo("  ✗ %-44s  %s: %s → %s", o.Package, o.Ref, shortCommit(o.Current), shortCommit(o.Latest))
		}
		for _, s := range result.Skipped {
			printDetail("skipped %s: %s", s.Package, s.Reason)
		}
		for _, e := range result.Errors {
			printError("%s: %v", e.Package, e.Err)
		}

		if len(result.Outdated) > 0 || len(result.Errors) > 0 {
			return fmt.Errorf("%d package(s) have upstream changes", len(result.Outdated)+len(result.Errors))
		}

		if len(result.UpToDate) == 0 {
			printInfo("Nothing to compare. Install packages first.")
			return nil
		}
		printInfo("\nAll packages match upstream.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(outdatedCmd)
}
