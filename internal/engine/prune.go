package engine

import (
	"context"
	"os"
	"path/filepath"

	"github.com/seiggy/apm/internal/lock"
	"github.com/seiggy/apm/internal/sandbox"
)

// PruneEngine removes install-root entries the lockfile no longer references.
type PruneEngine struct {
	InstallRoot string
}

// PruneOptions configures a prune operation.
type PruneOptions struct {
	DryRun bool
}

// Prune removes untracked directories under the install root. With DryRun
// the result lists what would go without touching the tree.
func (e *PruneEngine) Prune(ctx context.Context, currentLock *lock.LockFile, opts PruneOptions) (*PruneResult, error) {
	result := &PruneResult{}

	claimed := make(map[string]bool)
	if currentLock != nil {
		for _, d := range currentLock.Dependencies {
			claimed[d.RepoURL] = true
		}
	}

	stray, err := untrackedDirs(e.InstallRoot, claimed)
	if err != nil {
		return nil, err
	}

	for _, rel := range stray {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if opts.DryRun {
			result.Removed = append(result.Removed, rel)
			continue
		}
		if err := sandbox.SafeRemoveAll(e.InstallRoot, rel); err != nil {
			result.Errors = append(result.Errors, PackageError{Package: rel, Err: err})
			continue
		}
		result.Removed = append(result.Removed, rel)
		removeEmptyParents(e.InstallRoot, rel)
	}

	return result, nil
}

// removeEmptyParents deletes now-empty owner and organization directories
// left behind by a removal. os.Remove refuses non-empty directories, which
// ends the walk.
func removeEmptyParents(root, rel string) {
	for dir := filepath.Dir(rel); dir != "." && dir != string(filepath.Separator); dir = filepath.Dir(dir) {
		if os.Remove(filepath.Join(root, dir)) != nil {
			return
		}
	}
}
