package engine

import (
	"context"
	"os"
	"path/filepath"

	"github.com/seiggy/apm/internal/config"
	"github.com/seiggy/apm/internal/content"
	"github.com/seiggy/apm/internal/download"
	"github.com/seiggy/apm/internal/graph"
	"github.com/seiggy/apm/internal/lock"
	"github.com/seiggy/apm/internal/refs"
)

// Downloader acquires the package a reference names into the install root.
// *download.Downloader is the production implementation.
type Downloader interface {
	DownloadPackage(ctx context.Context, ref *refs.DependencyReference, installRoot string) (*download.PackageInfo, error)
}

// InstallEngine resolves a project's dependency graph and materializes every
// resolved package under the install root.
type InstallEngine struct {
	Downloader  Downloader
	InstallRoot string
	Version     string // recorded in the lockfile header
	MaxDepth    int    // 0 uses the resolver default
	Parser      *refs.Parser

	// Progress, when set, receives each package's display name as the
	// resolver reaches it.
	Progress func(name string)
}

// InstallOptions configures an install operation.
type InstallOptions struct {
	// Update re-resolves every dependency, ignoring the lockfile reuse rule.
	Update bool

	// UpdateOnly lists unique keys that skip the reuse rule even without
	// Update. Packages not named keep the standard rule.
	UpdateOnly []string

	// DryRun reports what would happen without downloading or writing
	// anything. Transitive dependencies of packages not yet on disk are not
	// discovered in a dry run.
	DryRun bool
}

// acquisition records what the loader did for one unique dependency key.
type acquisition struct {
	resolved download.ResolvedReference
	reused   bool
	pending  bool // dry run: would be downloaded
	err      error
}

// Install builds the dependency graph, downloading or reusing each package
// as resolution reaches it, and assembles the lockfile to persist. Cycles
// make the whole resolution invalid: the result carries them and nothing is
// recorded. Per-package failures are recorded and do not stop siblings.
func (e *InstallEngine) Install(ctx context.Context, manifest *config.Manifest, currentLock *lock.LockFile, opts InstallOptions) (*InstallResult, error) {
	result := &InstallResult{}
	acquired := make(map[string]*acquisition)

	builder := &graph.Builder{
		InstallRoot: e.InstallRoot,
		MaxDepth:    e.MaxDepth,
		Parser:      e.Parser,
		Loader:      e.loader(currentLock, opts, acquired),
	}
	res, err := builder.Build(ctx, manifest)
	if err != nil {
		return nil, err
	}

	result.Warnings = res.Warnings
	result.Cycles = res.Cycles
	if !res.Valid() {
		return result, nil
	}
	result.Conflicts = res.Flat.Conflicts

	lf := lock.New(e.Version)
	for _, node := range res.Flat.Nodes() {
		act := acquired[node.Key()]
		if act == nil {
			continue
		}
		switch {
		case act.err != nil:
			result.Failed = append(result.Failed, PackageError{Package: node.Ref.DisplayName(), Err: act.err})
		case act.pending:
			result.Installed = append(result.Installed, installedPackage(node, act))
		case node.LoadErr != nil:
			result.Failed = append(result.Failed, PackageError{Package: node.Ref.DisplayName(), Err: node.LoadErr})
		case act.reused:
			lf.Set(node.Key(), lockEntry(node, act))
			result.Reused = append(result.Reused, installedPackage(node, act))
		default:
			lf.Set(node.Key(), lockEntry(node, act))
			result.Installed = append(result.Installed, installedPackage(node, act))
		}
	}

	if opts.DryRun {
		return result, nil
	}
	if len(result.Installed)+len(result.Reused) > 0 {
		result.Lockfile = lf
	}
	return result, nil
}

// loader adapts the downloader into the resolver's acquisition callback,
// applying the lockfile reuse rule before going to the network. Failures are
// recorded per key; resolution continues past them.
func (e *InstallEngine) loader(currentLock *lock.LockFile, opts InstallOptions, acquired map[string]*acquisition) graph.Loader {
	updateSet := make(map[string]bool, len(opts.UpdateOnly))
	for _, key := range opts.UpdateOnly {
		updateSet[key] = true
	}

	return func(ctx context.Context, ref *refs.DependencyReference, installRoot string) (string, error) {
		if e.Progress != nil {
			e.Progress(ref.DisplayName())
		}
		key := ref.UniqueKey()

		if !opts.Update && !updateSet[key] {
			// Reuse asks for an exact pin match: a manifest whose tag or
			// commit moved since the lock was written re-resolves.
			if locked, ok := currentLock.Get(key); ok && locked.Reusable() && locked.ResolvedRef == ref.Ref {
				path := ref.InstallPath(installRoot)
				if artifactPresent(path, ref.VirtualPath) {
					acquired[key] = &acquisition{
						reused: true,
						resolved: download.ResolvedReference{
							Ref:       locked.ResolvedRef,
							RefType:   refs.DetectRefType(locked.ResolvedRef),
							FromCache: true,
						},
					}
					return path, nil
				}
			}
		}

		if opts.DryRun {
			acquired[key] = &acquisition{
				pending:  true,
				resolved: download.ResolvedReference{Ref: ref.Ref, RefType: ref.RefType},
			}
			path := ref.InstallPath(installRoot)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
			return "", nil
		}

		info, err := e.Downloader.DownloadPackage(ctx, ref, installRoot)
		if err != nil {
			acquired[key] = &acquisition{err: err}
			return "", err
		}
		acquired[key] = &acquisition{resolved: info.Resolved}
		return info.InstallPath, nil
	}
}

// lockEntry renders one resolved node as its lockfile record. Reused and
// cache-served packages get the "cached" commit sentinel: their commit was
// not re-resolved this run.
func lockEntry(node *graph.Node, act *acquisition) *lock.LockedDependency {
	ref := node.Ref
	d := &lock.LockedDependency{
		RepoURL:        ref.RepoURL,
		Host:           ref.Host,
		ResolvedRef:    act.resolved.Ref,
		ResolvedCommit: act.resolved.ResolvedCommit,
		VirtualPath:    ref.VirtualPath,
		IsVirtual:      ref.IsVirtual(),
		Depth:          node.Depth,
	}
	if act.resolved.FromCache {
		d.ResolvedCommit = lock.CachedCommit
	}
	if node.Parent != nil {
		d.ResolvedBy = node.Parent.Ref.RepoURL
	}
	if node.Package != nil {
		d.Version = node.Package.Version
	}
	return d
}

func installedPackage(node *graph.Node, act *acquisition) InstalledPackage {
	return InstalledPackage{
		Key:      node.Key(),
		Name:     node.Ref.DisplayName(),
		Path:     node.InstallPath,
		Depth:    node.Depth,
		Resolved: act.resolved,
	}
}

// artifactPresent reports whether the artifact a dependency installs is on
// disk: the repository directory for plain packages; the realized file,
// collection, or subdirectory for virtual ones. Extension-less virtual paths
// were classified at install time, so any realized form counts.
func artifactPresent(installPath, virtualPath string) bool {
	if virtualPath == "" {
		info, err := os.Stat(installPath)
		return err == nil && info.IsDir()
	}
	base := filepath.Join(installPath, filepath.FromSlash(virtualPath))
	if content.HasRecognizedExtension(virtualPath) {
		_, err := os.Stat(base)
		return err == nil
	}
	for _, realized := range []string{base + content.CollectionSuffix, base + content.DefaultPromptSuffix, base} {
		if _, err := os.Stat(realized); err == nil {
			return true
		}
	}
	return false
}
