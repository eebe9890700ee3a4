package engine

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/seiggy/apm/internal/content"
	"github.com/seiggy/apm/internal/lock"
)

// ListEngine reports the state of everything under the install root against
// the lockfile.
type ListEngine struct {
	InstallRoot string
}

// List merges the lockfile with an install-root scan. Locked dependencies
// report installed or missing; directories no lockfile record claims report
// untracked.
func (e *ListEngine) List(ctx context.Context, currentLock *lock.LockFile) ([]ListEntry, error) {
	var entries []ListEntry
	claimed := make(map[string]bool)

	if currentLock != nil {
		keys := make([]string, 0, len(currentLock.Dependencies))
		for key := range currentLock.Dependencies {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			d := currentLock.Dependencies[key]
			claimed[d.RepoURL] = true
			state := StateMissing
			if artifactPresent(lockedInstallPath(e.InstallRoot, d), d.VirtualPath) {
				state = StateInstalled
			}
			entries = append(entries, ListEntry{
				Key:    key,
				State:  state,
				Ref:    d.ResolvedRef,
				Commit: d.ResolvedCommit,
				Depth:  d.EffectiveDepth(),
			})
		}
	}

	stray, err := untrackedDirs(e.InstallRoot, claimed)
	if err != nil {
		return nil, err
	}
	for _, rel := range stray {
		entries = append(entries, ListEntry{Key: rel, State: StateUntracked})
	}
	return entries, nil
}

// untrackedDirs finds directories under the install root no lockfile record
// claims. Azure DevOps installs nest one level deeper than the github-style
// owner/repo layout, so a directory whose children are themselves claimed or
// marked packages is treated as an organization container and reported per
// child.
func untrackedDirs(installRoot string, claimed map[string]bool) ([]string, error) {
	owners, err := os.ReadDir(installRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var stray []string
	for _, owner := range owners {
		if !owner.IsDir() {
			continue
		}
		repos, err := os.ReadDir(filepath.Join(installRoot, owner.Name()))
		if err != nil {
			return nil, err
		}
		for _, repo := range repos {
			if !repo.IsDir() {
				continue
			}
			rel := owner.Name() + "/" + repo.Name()
			if claimed[rel] {
				continue
			}
			abs := filepath.Join(installRoot, owner.Name(), repo.Name())
			if children, container := containerChildren(abs, rel, claimed); container {
				stray = append(stray, children...)
				continue
			}
			stray = append(stray, rel)
		}
	}
	sort.Strings(stray)
	return stray, nil
}

// containerChildren decides whether dir is an org/project container rather
// than a package itself. It is one when at least one third-level child is
// claimed by the lockfile or carries a package marker; the unclaimed
// children are then the untracked entries.
func containerChildren(abs, rel string, claimed map[string]bool) ([]string, bool) {
	if isPackageRoot(abs) {
		return nil, false
	}
	subs, err := os.ReadDir(abs)
	if err != nil {
		return nil, false
	}

	var unclaimed []string
	container := false
	for _, sub := range subs {
		if !sub.IsDir() {
			// Loose files mean package content, not a container.
			return nil, false
		}
		srel := rel + "/" + sub.Name()
		if claimed[srel] {
			container = true
			continue
		}
		if isPackageRoot(filepath.Join(abs, sub.Name())) {
			container = true
		}
		unclaimed = append(unclaimed, srel)
	}
	if !container {
		return nil, false
	}
	return unclaimed, true
}

// isPackageRoot reports whether dir looks like an installed package: a git
// clone, a manifest, or a skill marker at its top level.
func isPackageRoot(dir string) bool {
	for _, marker := range []string{".git", content.ManifestName, content.SkillMarker} {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

// lockedInstallPath maps a lockfile record to its install directory.
func lockedInstallPath(root string, d *lock.LockedDependency) string {
	parts := append([]string{root}, strings.Split(d.RepoURL, "/")...)
	return filepath.Join(parts...)
}
