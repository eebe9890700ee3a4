package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/seiggy/apm/internal/auth"
)

// Build-time variables set via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	manifestPath string
	lockfilePath string
	modulesDir   string
	verbose      bool
	quiet        bool
	noColor      bool
)

// credentialEnv is the process environment snapshotted once at startup,
// after .env loading. Commands never read os.Getenv for credentials.
var credentialEnv auth.Env

var rootCmd = &cobra.Command{
	Use:   "apm",
	Short: "Package manager for reusable agent content",
	Long: `apm installs prompts, instructions, chat modes, and skills from git
repositories. Dependencies are declared in apm.yml, resolved as a graph with
conflict and cycle detection, installed under apm_modules/, and pinned in
apm.lock for reproducible installs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		colorEnabled = !noColor && os.Getenv("NO_COLOR") == ""
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("apm %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&manifestPath, "manifest", "apm.yml", "path to the manifest")
	rootCmd.PersistentFlags().StringVar(&lockfilePath, "lockfile", "apm.lock", "path to the lockfile, relative to the project root")
	rootCmd.PersistentFlags().StringVar(&modulesDir, "modules-dir", "apm_modules", "installation directory, relative to the project root")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "detailed output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "minimal output (errors only)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command. Credentials come from the environment,
// with .env values layered in first; the snapshot happens exactly once,
// before any command logic.
func Execute() error {
	_ = godotenv.Load()
	credentialEnv = auth.SnapshotEnv()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
