package engine

import (
	"context"
	"os"
	"path/filepath"

	"github.com/seiggy/apm/internal/content"
	"github.com/seiggy/apm/internal/download"
	"github.com/seiggy/apm/internal/lock"
	"github.com/seiggy/apm/internal/sandbox"
)

// UninstallEngine removes named packages from the install root and the
// lockfile.
type UninstallEngine struct {
	InstallRoot string
}

// UninstallOptions configures an uninstall operation.
type UninstallOptions struct {
	DryRun bool
}

// Uninstall deletes each key's installed artifact and lockfile record.
// Virtual packages lose only their realized files; a repository directory
// another lockfile record still claims stays on disk. With DryRun the result
// lists what would go without touching anything.
func (e *UninstallEngine) Uninstall(ctx context.Context, currentLock *lock.LockFile, keys []string, opts UninstallOptions) (*UninstallResult, error) {
	result := &UninstallResult{}

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d, ok := currentLock.Get(key)
		if !ok {
			result.NotLocked = append(result.NotLocked, key)
			continue
		}
		if opts.DryRun {
			result.Removed = append(result.Removed, key)
			continue
		}
		if err := e.removeArtifact(key, d, currentLock); err != nil {
			result.Errors = append(result.Errors, PackageError{Package: key, Err: err})
			continue
		}
		delete(currentLock.Dependencies, key)
		result.Removed = append(result.Removed, key)
	}

	if !opts.DryRun && len(result.Removed) > 0 {
		result.Lockfile = currentLock
	}
	return result, nil
}

// removeArtifact deletes what one record put on disk. Plain packages lose
// their clone directory unless a virtual sibling still claims it; virtual
// packages lose the realized file, collection, or subtree under the shared
// repository directory.
func (e *UninstallEngine) removeArtifact(key string, d *lock.LockedDependency, currentLock *lock.LockFile) error {
	if d.VirtualPath == "" {
		if repoStillClaimed(currentLock, key, d.RepoURL) {
			return nil
		}
		if err := sandbox.SafeRemoveAll(e.InstallRoot, d.RepoURL); err != nil {
			return err
		}
		removeEmptyParents(e.InstallRoot, d.RepoURL)
		return nil
	}

	base := filepath.Join(filepath.FromSlash(d.RepoURL), filepath.FromSlash(d.VirtualPath))
	if err := e.removeCollection(d, base+content.CollectionSuffix); err != nil {
		return err
	}
	for _, rel := range []string{base + content.DefaultPromptSuffix, base} {
		info, err := os.Stat(filepath.Join(e.InstallRoot, rel))
		if err != nil {
			continue
		}
		remove := sandbox.SafeRemove
		if info.IsDir() {
			remove = sandbox.SafeRemoveAll
		}
		if err := remove(e.InstallRoot, rel); err != nil {
			return err
		}
	}
	removeEmptyParents(e.InstallRoot, base)
	return nil
}

// removeCollection deletes a realized collection: every listed item at its
// repository-relative install path, then the collection manifest itself.
// Item paths go through the sandbox, so a tampered manifest cannot direct
// deletions outside the install root.
func (e *UninstallEngine) removeCollection(d *lock.LockedDependency, rel string) error {
	data, err := os.ReadFile(filepath.Join(e.InstallRoot, rel))
	if err != nil {
		return nil
	}

	if manifest, err := download.ParseCollection(data); err == nil {
		repoDir := filepath.FromSlash(d.RepoURL)
		for _, item := range manifest.Items {
			itemRel := filepath.Join(repoDir, filepath.FromSlash(item.Path))
			if err := sandbox.SafeRemove(e.InstallRoot, itemRel); err != nil && !os.IsNotExist(err) {
				return err
			}
			removeEmptyParents(e.InstallRoot, itemRel)
		}
	}
	return sandbox.SafeRemove(e.InstallRoot, rel)
}

// repoStillClaimed reports whether any record other than key installs into
// the same repository directory.
func repoStillClaimed(lf *lock.LockFile, key, repoURL string) bool {
	for other, d := range lf.Dependencies {
		if other != key && d.RepoURL == repoURL {
			return true
		}
	}
	return false
}
