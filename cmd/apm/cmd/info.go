package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seiggy/apm/internal/cache"
)

var infoCmd = &cobra.Command{
	Use:   "info [reference]",
	Short: "Show project paths or details about one dependency",
	Long: `Without arguments, displays the apm version, the manifest and lockfile in
use, and the cache location and size. With a reference, displays what is
known about that dependency: its manifest metadata when the package is
installed, the lockfile record when one exists, and the path it installs
to. The reference uses the same syntax as apm install.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		if len(args) == 0 {
			return printOverview(client.ManifestPath(), client.LockfilePath(), client.ModulesDir())
		}

		result, err := client.Info(args[0])
		if err != nil {
			return err
		}

		fmt.Println(result.Name)
		printKeyValue("key", result.Key)
		if result.Version != "" {
			printKeyValue("version", result.Version)
		}
		if result.Description != "" {
			printKeyValue("description", result.Description)
		}
		state := "not installed"
		if result.Installed {
			state = "installed"
		}
		printKeyValue("state", state)
		printKeyValue("path", result.InstallPath)

		if result.Locked != nil {
			printKeyValue("locked ref", result.Locked.ResolvedRef)
			printKeyValue("locked commit", shortCommit(result.Locked.ResolvedCommit))
		}
		if len(result.Dependencies) > 0 {
			printKeyValue("dependencies", strings.Join(result.Dependencies, ", "))
		}

		return nil
	},
}

// printOverview shows the tool version and the paths a command run here
// would use.
func printOverview(manifest, lockfile, modules string) error {
	fmt.Printf("apm %s\n", version)

	if _, err := os.Stat(manifest); err != nil {
		manifest += " (not found)"
	}
	printKeyValue("manifest", manifest)
	printKeyValue("lockfile", lockfile)
	printKeyValue("modules dir", modules)

	c, err := cache.New(cache.DefaultDir())
	if err != nil {
		return err
	}
	printKeyValue("cache dir", c.Path())
	size, err := c.Size()
	if err != nil {
		return err
	}
	printKeyValue("cache size", humanSize(size))
	return nil
}

func humanSize(bytes int64) string {
	if bytes == 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB"}
	size := float64(bytes)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d B", bytes)
	}
	return fmt.Sprintf("%.1f %s", size, units[i])
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
