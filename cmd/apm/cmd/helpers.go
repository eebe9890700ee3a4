package cmd

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/seiggy/apm/internal/auth"
	"github.com/seiggy/apm/internal/config"
	"github.com/seiggy/apm/internal/hosts"
	"github.com/seiggy/apm/internal/refs"
	"github.com/seiggy/apm/pkg/apm"
)

// clientOptions builds library options from the global flags. When the
// --manifest flag was left at its default, the project root is discovered by
// walking up from the working directory, the way package managers locate
// their manifest.
func clientOptions(cmd *cobra.Command) apm.Options {
	opts := apm.Options{
		ManifestPath: manifestPath,
		LockfilePath: lockfilePath,
		ModulesDir:   modulesDir,
		Env:          credentialEnv,
		Version:      version,
		Logger:       newLogger(),
	}
	if !cmd.Flags().Changed("manifest") {
		if found, root, err := config.FindManifest("."); err == nil {
			opts.ManifestPath = found
			opts.ProjectRoot = root
		}
	}
	return opts
}

// newClient builds a library client. A missing manifest is fine for
// commands that only read the lockfile and install root.
func newClient(cmd *cobra.Command) (*apm.Client, error) {
	return apm.New(clientOptions(cmd))
}

// newProjectClient builds a client for commands that need the manifest;
// when none can be found the discovery error names the fix.
func newProjectClient(cmd *cobra.Command) (*apm.Client, error) {
	if !cmd.Flags().Changed("manifest") {
		if _, _, err := config.FindManifest("."); err != nil {
			return nil, err
		}
	}
	return newClient(cmd)
}

// newParser builds a reference parser carrying the same host policy the
// client uses, including the APM_GITHUB_HOST override from the credential
// snapshot.
func newParser() *refs.Parser {
	return &refs.Parser{Policy: hosts.NewPolicy(credentialEnv.Get(auth.EnvGitHubHost))}
}

// newLogger returns a debug logger on stderr in verbose mode and a
// discarding one otherwise.
func newLogger() *log.Logger {
	if !verbose {
		return log.NewWithOptions(io.Discard, log.Options{})
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           log.DebugLevel,
	})
}

// shortCommit abbreviates a full hash for display. Sentinel values like
// "cached" pass through; empty becomes "-".
func shortCommit(commit string) string {
	if commit == "" {
		return "-"
	}
	if len(commit) > 8 {
		return commit[:8]
	}
	return commit
}

// resolutionProgress wires a spinner into the installer when stderr is a
// terminal and output modes allow it. The returned finish func is safe to
// call unconditionally.
func resolutionProgress() (progress func(string), finish func()) {
	if quiet || verbose || !isTerminal(os.Stderr) {
		return nil, func() {}
	}
	s := newSpinner("resolving dependencies")
	s.start()
	return func(name string) { s.setMessage("resolving " + name) }, s.stop
}
