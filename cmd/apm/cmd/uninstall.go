package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seiggy/apm/pkg/apm"
)

var uninstallDryRun bool

var uninstallCmd = &cobra.Command{
	Use:     "uninstall <reference...>",
	Aliases: []string{"remove"},
	Short:   "Remove dependencies and delete their installed files",
	Long: `Removes the named dependencies from the manifest, deletes their
installed files under the modules directory, and drops their lockfile
records. A dependency may be named by its declared reference, its alias,
its display name, or its unique key.

Only direct dependencies can be removed. Transitive dependencies of a
removed package disappear from the lockfile at the next install; prune
then deletes their files.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newProjectClient(cmd)
		if err != nil {
			return err
		}

		result, err := client.Uninstall(cmd.Context(), apm.UninstallOptions{
			Refs:   args,
			DryRun: uninstallDryRun,
		})
		if err != nil {
			return err
		}

		action := "removed"
		if uninstallDryRun {
			printInfo("Dry run — nothing was removed.")
			action = "would remove"
		}
		for _, key := range result.Removed {
			printInfo("  %-12s %s", action, key)
		}
		for _, key := range result.NotLocked {
			printDetail("%s was not installed; only its declaration went", key)
		}
		for _, e := range result.Errors {
			printError("%s: %v", e.Package, e.Err)
		}

		if len(result.Errors) > 0 {
			return fmt.Errorf("%d error(s) during uninstall", len(result.Errors))
		}
		if !uninstallDryRun {
			printSuccess("Uninstalled %d package(s).", len(result.Removed)+len(result.NotLocked))
		}
		return nil
	},
}

func init() {
	uninstallCmd.Flags().BoolVar(&uninstallDryRun, "dry-run", false, "show what would be removed without acting")
	rootCmd.AddCommand(uninstallCmd)
}
