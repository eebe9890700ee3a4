package engine

import (
	"context"
	"fmt"
	"sort"

	git "github.com/go-git/go-git/v5"

	"github.com/seiggy/apm/internal/lock"
)

// CheckEngine verifies the install root against the lockfile.
type CheckEngine struct {
	InstallRoot string
}

// Check verifies that every locked dependency is present and, for plain
// packages with a recorded commit, that the working copy still sits on it.
// Returns Clean=true if everything matches.
func (e *CheckEngine) Check(ctx context.Context, currentLock *lock.LockFile) (*CheckResult, error) {
	result := &CheckResult{Clean: true}
	if currentLock == nil {
		return result, nil
	}

	keys := make([]string, 0, len(currentLock.Dependencies))
	for key := range currentLock.Dependencies {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d := currentLock.Dependencies[key]
		path := lockedInstallPath(e.InstallRoot, d)

		if !artifactPresent(path, d.VirtualPath) {
			result.Missing = append(result.Missing, key)
			result.Clean = false
			continue
		}

		// Virtual content is not its own clone; presence is all there is to
		// verify. The same goes for records without a re-comparable commit.
		if d.VirtualPath != "" || d.ResolvedCommit == "" || d.ResolvedCommit == lock.CachedCommit {
			continue
		}

		head, err := headCommit(path)
		if err != nil {
			result.Errors = append(result.Errors, PackageError{Package: key, Err: err})
			result.Clean = false
			continue
		}
		if head != d.ResolvedCommit {
			result.Drifted = append(result.Drifted, DriftEntry{Package: key, Expected: d.ResolvedCommit, Actual: head})
			result.Clean = false
		}
	}

	return result, nil
}

// headCommit reads the HEAD commit of an installed package's working copy.
func headCommit(path string) (string, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("reading HEAD of %s: %w", path, err)
	}
	return head.Hash().String(), nil
}
