package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var initForce bool

// initTemplate is the default apm.yml scaffold. It includes a commented
// example for every reference form the parser accepts.
const initTemplate = `# apm manifest
name: %s
version: 0.1.0
description: ""

dependencies:
  apm:
    # Whole repository at its default branch:
    # - your-org/prompt-library

    # Pinned to a tag or commit:
    # - your-org/prompt-library#v1.2.0
    # - your-org/prompt-library#8f14e45fceea167a5a36dedd4bea2543bb3f1c9d

    # A single file or collection from inside a repository:
    # - your-org/prompt-library/prompts/code-review.prompt.md#v1.2.0

    # GitHub Enterprise or Azure DevOps:
    # - corp.ghe.com/your-org/prompt-library
    # - dev.azure.com/organization/project/repository
  mcp: []
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter apm.yml manifest",
	Long: `Creates an apm.yml file in the current directory with a commented
template showing every supported dependency reference form.

Use --force to overwrite an existing manifest.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath, err := filepath.Abs(manifestPath)
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		if !initForce {
			if _, err := os.Stat(outPath); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", outPath)
			}
		}

		name := "my-project"
		if wd, err := os.Getwd(); err == nil {
			name = strings.ReplaceAll(filepath.Base(wd), " ", "-")
		}

		if err := os.WriteFile(outPath, []byte(fmt.Sprintf(initTemplate, name)), 0o644); err != nil {
			return fmt.Errorf("writing manifest: %w", err)
		}

		printSuccess("Created %s", outPath)
		printInfo("Next steps:")
		printInfo("  1. Declare dependencies under dependencies.apm")
		printInfo("  2. Run 'apm install' to resolve and lock them")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing manifest")
	rootCmd.AddCommand(initCmd)
}
