package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/seiggy/apm/pkg/apm"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show installed packages and their lockfile state",
	Long: `Shows every package the lockfile tracks (installed or missing) plus any
directories under the modules directory that no lockfile entry claims
(untracked).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		entries, err := client.List(cmd.Context())
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			printInfo("No packages installed.")
			return nil
		}

		// Print table header.
		fmt.Printf("%-44s %-10s %-24s %-10s %s\n", "PACKAGE", "STATE", "REF", "COMMIT", "DEPTH")
		for _, e := range entries {
			ref, commit, depth := e.Ref, shortCommit(e.Commit), strconv.Itoa(e.Depth)
			if e.State == apm.StateUntracked {
				ref, commit, depth = "-", "-", "-"
			}
			if ref == "" {
				ref = "-"
			}
			fmt.Printf("%-44s %-10s %-24s %-10s %s\n", e.Key, e.State, ref, commit, depth)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
