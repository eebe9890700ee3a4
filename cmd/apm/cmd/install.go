package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/seiggy/apm/internal/config"
	"github.com/seiggy/apm/pkg/apm"
)

var installDryRun bool

var installCmd = &cobra.Command{
	Use:   "install [reference...]",
	Short: "Install the manifest's dependencies",
	Long: `Resolves the dependency graph declared in apm.yml, downloads every
package not already installed at its pinned version, and writes apm.lock.
References given as arguments are added to the manifest first, preserving
declaration order.

Conflicting declarations of the same package resolve to the first one
encountered (shallowest depth, then declaration order); the rest are
reported. A cyclic graph fails the whole resolution and installs nothing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			if err := addToManifest(cmd, args); err != nil {
				return err
			}
		}

		client, err := newProjectClient(cmd)
		if err != nil {
			return err
		}

		progress, finish := resolutionProgress()
		result, err := client.Install(cmd.Context(), apm.InstallOptions{
			DryRun:   installDryRun,
			Progress: progress,
		})
		finish()
		if err != nil {
			return err
		}

		return reportInstall(result, installDryRun)
	},
}

// addToManifest appends new dependency references to the manifest before
// installing. Already-declared references are left alone.
func addToManifest(cmd *cobra.Command, raws []string) error {
	path := manifestPath
	if !cmd.Flags().Changed("manifest") {
		found, _, err := config.FindManifest(".")
		if err != nil {
			return err
		}
		path = found
	}

	parser := newParser()
	m, err := config.Load(path, parser)
	if err != nil {
		return err
	}

	changed := false
	for _, raw := range raws {
		switch err := config.AddDependency(m, raw, parser); {
		case err == nil:
			changed = true
			printInfo("Added %s to %s", raw, filepath.Base(path))
		case errors.Is(err, config.ErrAlreadyDeclared):
			printDetail("%v", err)
		default:
			return err
		}
	}

	if !changed {
		return nil
	}
	return config.Save(path, m)
}

// reportInstall renders an install or update result and decides the exit
// status: cycles and per-package failures are errors, conflicts and
// warnings are not.
func reportInstall(result *apm.InstallResult, dryRun bool) error {
	for _, w := range result.Warnings {
		printWarning("%s", w)
	}

	if len(result.Cycles) > 0 {
		for _, c := range result.Cycles {
			printError("dependency cycle: %s", c.String())
		}
		return fmt.Errorf("%d dependency cycle(s) detected — nothing was installed", len(result.Cycles))
	}

	for _, c := range result.Conflicts {
		printWarning("%s", c.Reason)
		for _, loser := range c.Losers {
			printDetail("ignored declaration: %s", loser.String())
		}
	}

	for _, p := range result.Installed {
		printSuccess("%s %s", p.Name, p.Resolved.DisplayRef())
	}
	for _, p := range result.Reused {
		printDetail("%s %s (already installed)", p.Name, p.Resolved.DisplayRef())
	}
	for _, f := range result.Failed {
		printError("%s: %v", f.Package, f.Err)
	}

	if dryRun {
		printInfo("Dry run — nothing was downloaded and the lockfile was not written.")
	}

	switch {
	case len(result.Installed)+len(result.Reused)+len(result.Failed) == 0:
		printInfo("Nothing to install.")
	case dryRun:
		printInfo("Would install %d package(s), reuse %d.", len(result.Installed), len(result.Reused))
	default:
		printInfo("Installed %d package(s), reused %d, %d failed.",
			len(result.Installed), len(result.Reused), len(result.Failed))
	}

	if len(result.Failed) > 0 {
		return fmt.Errorf("%d package(s) failed to install", len(result.Failed))
	}
	return nil
}

func init() {
	installCmd.Flags().BoolVar(&installDryRun, "dry-run", false, "show what would happen without downloading or writing anything")
	rootCmd.AddCommand(installCmd)
}
