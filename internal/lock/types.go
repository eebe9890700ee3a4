package lock

import (
	"time"

	"github.com/seiggy/apm/internal/hosts"
	"github.com/seiggy/apm/internal/refs"
)

// CurrentVersion is the lockfile format version this build writes.
const CurrentVersion = 1

// CachedCommit is the sentinel recorded when a previously downloaded
// artifact was reused without re-resolving its commit.
const CachedCommit = "cached"

// LockFile represents the apm.lock file: one record per installed unique
// dependency key.
type LockFile struct {
	LockfileVersion int                          `yaml:"lockfile_version"`
	GeneratedAt     time.Time                    `yaml:"generated_at"`
	APMVersion      string                       `yaml:"apm_version,omitempty"`
	Dependencies    map[string]*LockedDependency `yaml:"dependencies"`
}

// LockedDependency records exactly what was resolved for one dependency.
type LockedDependency struct {
	RepoURL        string `yaml:"repo_url"`
	Host           string `yaml:"host,omitempty"`
	ResolvedCommit string `yaml:"resolved_commit,omitempty"`
	ResolvedRef    string `yaml:"resolved_ref"`
	Version        string `yaml:"version,omitempty"`
	VirtualPath    string `yaml:"virtual_path,omitempty"`
	IsVirtual      bool   `yaml:"is_virtual,omitempty"`
	Depth          int    `yaml:"depth,omitempty"`
	ResolvedBy     string `yaml:"resolved_by,omitempty"`
}

// New creates an empty lockfile stamped with the current format version and
// the apm build version.
func New(apmVersion string) *LockFile {
	return &LockFile{
		LockfileVersion: CurrentVersion,
		GeneratedAt:     time.Now().UTC(),
		APMVersion:      apmVersion,
		Dependencies:    make(map[string]*LockedDependency),
	}
}

// Get returns the locked record for a unique dependency key.
func (lf *LockFile) Get(key string) (*LockedDependency, bool) {
	if lf == nil || lf.Dependencies == nil {
		return nil, false
	}
	d, ok := lf.Dependencies[key]
	return d, ok
}

// Set records a dependency under its unique key.
func (lf *LockFile) Set(key string, d *LockedDependency) {
	if lf.Dependencies == nil {
		lf.Dependencies = make(map[string]*LockedDependency)
	}
	lf.Dependencies[key] = d
}

// Reusable reports whether an installed copy of this dependency may be kept
// without re-resolving. Only tag and commit pins qualify; branch refs float
// and are always re-resolved.
func (d *LockedDependency) Reusable() bool {
	return refs.DetectRefType(d.ResolvedRef) != refs.RefBranch
}

// EffectiveHost returns the record's host, defaulting when the field was
// omitted from the file.
func (d *LockedDependency) EffectiveHost() string {
	if d.Host == "" {
		return hosts.DefaultHost
	}
	return d.Host
}

// EffectiveDepth returns the record's depth, defaulting to 1 when the field
// was omitted from the file.
func (d *LockedDependency) EffectiveDepth() int {
	if d.Depth == 0 {
		return 1
	}
	return d.Depth
}
