package engine

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/seiggy/apm/internal/config"
	"github.com/seiggy/apm/internal/content"
	"github.com/seiggy/apm/internal/lock"
	"github.com/seiggy/apm/internal/refs"
)

// InfoResult describes one dependency for display.
type InfoResult struct {
	Key          string
	Name         string
	Description  string
	Version      string
	InstallPath  string
	Installed    bool
	Locked       *lock.LockedDependency
	Manifest     *config.Manifest
	Dependencies []string
}

// Info gathers what is known about a dependency from the install root and
// the lockfile. Packages without a manifest are content-only; everything
// reported about them comes from the lockfile record.
func Info(ref *refs.DependencyReference, installRoot string, currentLock *lock.LockFile) (*InfoResult, error) {
	installPath := ref.InstallPath(installRoot)
	r := &InfoResult{
		Key:         ref.UniqueKey(),
		Name:        ref.DisplayName(),
		InstallPath: installPath,
		Installed:   artifactPresent(installPath, ref.VirtualPath),
	}

	if locked, ok := currentLock.Get(r.Key); ok {
		r.Locked = locked
		r.Version = locked.Version
	}

	manifest, err := config.Read(filepath.Join(installPath, content.ManifestName))
	switch {
	case err == nil:
		r.Manifest = manifest
		r.Description = manifest.Description
		if manifest.Version != "" {
			r.Version = manifest.Version
		}
		r.Dependencies = manifest.Dependencies.APM
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	return r, nil
}
