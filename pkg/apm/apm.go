// Package apm provides the public Go library API for apm.
//
// apm is a package manager for reusable agent content: prompts,
// instructions, chat modes, and skills distributed through git
// repositories. This package exposes a Client for embedding apm in other
// Go programs.
//
// # Basic Usage
//
//	client, err := apm.New(apm.Options{
//	    ProjectRoot: "/path/to/project",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Resolve the manifest and install everything it names.
//	result, err := client.Install(ctx, apm.InstallOptions{})
//
//	// Compare installed clones against the lockfile.
//	checkResult, err := client.Check(ctx)
package apm

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/seiggy/apm/internal/auth"
	"github.com/seiggy/apm/internal/cache"
	"github.com/seiggy/apm/internal/config"
	"github.com/seiggy/apm/internal/content"
	"github.com/seiggy/apm/internal/download"
	"github.com/seiggy/apm/internal/engine"
	"github.com/seiggy/apm/internal/hosts"
	"github.com/seiggy/apm/internal/lock"
	"github.com/seiggy/apm/internal/refs"
)

// InstallOptions configures an install operation.
type InstallOptions struct {
	// DryRun reports what would happen without downloading or writing
	// anything.
	DryRun bool

	// Progress, when set, receives each package's display name as
	// resolution reaches it.
	Progress func(name string)
}

// UpdateOptions configures an update operation.
type UpdateOptions struct {
	// Only limits re-resolution to the named references; everything else
	// keeps the standard reuse rule. Empty updates everything.
	Only []string

	DryRun   bool
	Progress func(name string)
}

// PruneOptions configures a prune operation.
type PruneOptions struct {
	DryRun bool
}

// UninstallOptions configures an uninstall operation.
type UninstallOptions struct {
	// Refs names the dependencies to remove. Each may be the declared
	// string, its alias, its display name, or its unique key.
	Refs []string

	DryRun bool
}

// Options configures an apm Client. Relative paths are resolved against
// ProjectRoot when it is set.
type Options struct {
	// ProjectRoot is the directory containing apm.yml. If empty, it
	// defaults to the directory containing ManifestPath.
	ProjectRoot string

	// ManifestPath is the path to the manifest. Default: "apm.yml".
	ManifestPath string

	// LockfilePath is the path to the lockfile. Default: "apm.lock".
	LockfilePath string

	// ModulesDir is the installation root. Default: "apm_modules" under
	// the project root.
	ModulesDir string

	// CacheDir is the virtual-file cache directory. If empty, uses the
	// default (~/.cache/apm).
	CacheDir string

	// Env is the credential snapshot. If nil, the process environment is
	// snapshotted once at construction.
	Env auth.Env

	// Version is recorded in lockfile headers.
	Version string

	// Logger receives debug-level acquisition detail. Nil discards it.
	Logger *log.Logger
}

// Client is the main entry point for the apm library.
type Client struct {
	downloader   *download.Downloader
	parser       *refs.Parser
	projectRoot  string
	manifestPath string
	lockfilePath string
	modulesDir   string
	version      string
}

// New creates a new apm Client.
func New(opts Options) (*Client, error) {
	if opts.ManifestPath == "" {
		opts.ManifestPath = content.ManifestName
	}
	if opts.LockfilePath == "" {
		opts.LockfilePath = content.LockName
	}

	manifestPath := resolveAgainst(opts.ProjectRoot, opts.ManifestPath)
	root := opts.ProjectRoot
	if root == "" {
		abs, err := filepath.Abs(manifestPath)
		if err != nil {
			return nil, fmt.Errorf("resolving manifest path: %w", err)
		}
		root = filepath.Dir(abs)
	}

	modulesDir := resolveAgainst(root, opts.ModulesDir)
	if modulesDir == "" {
		modulesDir = filepath.Join(root, content.ModulesDirName)
	}

	env := opts.Env
	if env == nil {
		env = auth.SnapshotEnv()
	}

	cacheDir := opts.CacheDir
	if cacheDir == "" {
		cacheDir = cache.DefaultDir()
	}
	c, err := cache.New(cacheDir)
	if err != nil {
		return nil, fmt.Errorf("initializing cache: %w", err)
	}

	policy := hosts.NewPolicy(env.Get(auth.EnvGitHubHost))
	d := download.New(policy, env)
	d.Cache = c
	if opts.Logger != nil {
		d.Logger = opts.Logger
	}

	return &Client{
		downloader:   d,
		parser:       &refs.Parser{Policy: policy},
		projectRoot:  root,
		manifestPath: manifestPath,
		lockfilePath: resolveAgainst(root, opts.LockfilePath),
		modulesDir:   modulesDir,
		version:      opts.Version,
	}, nil
}

func resolveAgainst(root, path string) string {
	if root == "" || path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// ManifestPath returns the manifest path the client operates on.
func (c *Client) ManifestPath() string { return c.manifestPath }

// LockfilePath returns the lockfile path the client reads and writes.
func (c *Client) LockfilePath() string { return c.lockfilePath }

// ModulesDir returns the directory packages install into.
func (c *Client) ModulesDir() string { return c.modulesDir }

func (c *Client) loadManifest() (*config.Manifest, error) {
	return config.Load(c.manifestPath, c.parser)
}

// Install resolves the manifest's dependency graph, installs every resolved
// package under the modules directory, and writes the lockfile. Pinned
// packages already on disk are reused.
func (c *Client) Install(ctx context.Context, opts InstallOptions) (*InstallResult, error) {
	return c.run(ctx, engine.InstallOptions{DryRun: opts.DryRun}, opts.Progress)
}

// Update re-resolves dependencies against their hosts and refreshes the
// lockfile. With opts.Only set, only the named references skip the reuse
// rule.
func (c *Client) Update(ctx context.Context, opts UpdateOptions) (*InstallResult, error) {
	engineOpts := engine.InstallOptions{
		Update: len(opts.Only) == 0,
		DryRun: opts.DryRun,
	}
	for _, raw := range opts.Only {
		ref, err := c.parser.Parse(raw)
		if err != nil {
			return nil, err
		}
		engineOpts.UpdateOnly = append(engineOpts.UpdateOnly, ref.UniqueKey())
	}
	return c.run(ctx, engineOpts, opts.Progress)
}

func (c *Client) run(ctx context.Context, opts engine.InstallOptions, progress func(string)) (*InstallResult, error) {
	manifest, err := c.loadManifest()
	if err != nil {
		return nil, err
	}

	eng := &engine.InstallEngine{
		Downloader:  c.downloader,
		InstallRoot: c.modulesDir,
		Version:     c.version,
		Parser:      c.parser,
		Progress:    progress,
	}

	result, err := eng.Install(ctx, manifest, lock.Read(c.lockfilePath), opts)
	if err != nil {
		return nil, err
	}

	if result.Lockfile != nil {
		if err := lock.Save(c.lockfilePath, result.Lockfile); err != nil {
			return nil, fmt.Errorf("saving lockfile: %w", err)
		}
	}
	return result, nil
}

// List reports the state of every locked dependency and any untracked
// directories under the modules directory.
func (c *Client) List(ctx context.Context) ([]ListEntry, error) {
	eng := &engine.ListEngine{InstallRoot: c.modulesDir}
	return eng.List(ctx, lock.Read(c.lockfilePath))
}

// Check compares installed clones against the lockfile's recorded commits.
func (c *Client) Check(ctx context.Context) (*CheckResult, error) {
	eng := &engine.CheckEngine{InstallRoot: c.modulesDir}
	return eng.Check(ctx, lock.Read(c.lockfilePath))
}

// Outdated asks each locked dependency's host whether its branch or tag
// has moved past the recorded commit.
func (c *Client) Outdated(ctx context.Context) (*OutdatedResult, error) {
	eng := &engine.OutdatedEngine{Downloader: c.downloader, Parser: c.parser}
	return eng.Outdated(ctx, lock.Read(c.lockfilePath))
}

// Prune removes modules-directory entries the lockfile no longer references.
func (c *Client) Prune(ctx context.Context, opts PruneOptions) (*PruneResult, error) {
	eng := &engine.PruneEngine{InstallRoot: c.modulesDir}
	return eng.Prune(ctx, lock.Read(c.lockfilePath), engine.PruneOptions{DryRun: opts.DryRun})
}

// Uninstall removes dependencies from the manifest, deletes their installed
// files, and drops their lockfile records. An unmatched reference fails the
// whole operation before anything is touched. Transitive dependencies of the
// removed packages stay until the next install rewrites the lockfile.
func (c *Client) Uninstall(ctx context.Context, opts UninstallOptions) (*UninstallResult, error) {
	manifest, err := c.loadManifest()
	if err != nil {
		return nil, err
	}
	currentLock := lock.Read(c.lockfilePath)

	var keys []string
	for _, needle := range opts.Refs {
		removed, err := config.RemoveDependency(manifest, needle, c.parser)
		if err != nil {
			return nil, c.explainUnmatched(needle, currentLock, err)
		}
		ref, err := c.parser.Parse(removed)
		if err != nil {
			return nil, fmt.Errorf("removing '%s': %w", needle, err)
		}
		keys = append(keys, ref.UniqueKey())
	}

	eng := &engine.UninstallEngine{InstallRoot: c.modulesDir}
	result, err := eng.Uninstall(ctx, currentLock, keys, engine.UninstallOptions{DryRun: opts.DryRun})
	if err != nil {
		return nil, err
	}
	if opts.DryRun {
		return result, nil
	}

	if err := config.Save(c.manifestPath, manifest); err != nil {
		return nil, fmt.Errorf("saving manifest: %w", err)
	}
	if result.Lockfile != nil {
		if err := lock.Save(c.lockfilePath, result.Lockfile); err != nil {
			return nil, fmt.Errorf("saving lockfile: %w", err)
		}
	}
	return result, nil
}

// explainUnmatched upgrades a no-match removal error when the reference
// names a transitive dependency, which has no manifest declaration to
// remove.
func (c *Client) explainUnmatched(needle string, currentLock *lock.LockFile, err error) error {
	ref, perr := c.parser.Parse(needle)
	if perr != nil {
		return err
	}
	if d, ok := currentLock.Get(ref.UniqueKey()); ok && d.EffectiveDepth() > 1 {
		return fmt.Errorf("'%s' is a transitive dependency (depth %d); remove the package that depends on it", needle, d.EffectiveDepth())
	}
	return err
}

// Info gathers what is known about one dependency reference from the
// modules directory and the lockfile.
func (c *Client) Info(raw string) (*InfoResult, error) {
	ref, err := c.parser.Parse(raw)
	if err != nil {
		return nil, err
	}
	return engine.Info(ref, c.modulesDir, lock.Read(c.lockfilePath))
}
