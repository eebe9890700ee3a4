package cmd

import (
	"github.com/spf13/cobra"

	"github.com/seiggy/apm/pkg/apm"
)

var updateDryRun bool

var updateCmd = &cobra.Command{
	Use:   "update [reference...]",
	Short: "Re-resolve dependencies and refresh the lockfile",
	Long: `Re-resolves dependencies against their hosts instead of reusing
already-installed pinned packages, then rewrites apm.lock. With references
as arguments, only the named packages are re-resolved; everything else
keeps its installed version.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newProjectClient(cmd)
		if err != nil {
			return err
		}

		progress, finish := resolutionProgress()
		result, err := client.Update(cmd.Context(), apm.UpdateOptions{
			Only:     args,
			DryRun:   updateDryRun,
			Progress: progress,
		})
		finish()
		if err != nil {
			return err
		}

		return reportInstall(result, updateDryRun)
	},
}

func init() {
	updateCmd.Flags().BoolVar(&updateDryRun, "dry-run", false, "show what would happen without downloading or writing anything")
	rootCmd.AddCommand(updateCmd)
}
