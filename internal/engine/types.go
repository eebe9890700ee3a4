package engine

import (
	"github.com/seiggy/apm/internal/download"
	"github.com/seiggy/apm/internal/graph"
	"github.com/seiggy/apm/internal/lock"
)

// PackageError represents an error associated with a specific dependency.
type PackageError struct {
	Package string
	Err     error
}

func (e PackageError) Error() string {
	return e.Package + ": " + e.Err.Error()
}

func (e PackageError) Unwrap() error {
	return e.Err
}

// InstalledPackage records one dependency the install walk materialized or
// kept.
type InstalledPackage struct {
	Key      string
	Name     string
	Path     string
	Depth    int
	Resolved download.ResolvedReference
}

// InstallResult holds the outcome of an install operation.
type InstallResult struct {
	Installed []InstalledPackage
	Reused    []InstalledPackage
	Failed    []PackageError
	Conflicts []graph.ConflictInfo
	Cycles    []graph.CircularRef
	Warnings  []string

	// Lockfile is the record to persist. It is nil for dry runs, when the
	// resolution found cycles, and when nothing was installed or reused.
	Lockfile *lock.LockFile
}

// Package states reported by List.
const (
	StateInstalled = "installed"
	StateMissing   = "missing"
	StateUntracked = "untracked"
)

// ListEntry describes one package under the install root, or one lockfile
// record whose package is gone.
type ListEntry struct {
	Key    string
	State  string // "installed", "missing", "untracked"
	Ref    string
	Commit string
	Depth  int
}

// DriftEntry represents an installed package whose working copy no longer
// sits at the locked commit.
type DriftEntry struct {
	Package  string
	Expected string
	Actual   string
}

// CheckResult holds the outcome of a check operation.
type CheckResult struct {
	Clean   bool
	Drifted []DriftEntry
	Missing []string
	Errors  []PackageError
}

// OutdatedEntry represents a dependency whose upstream ref has moved past
// the locked commit.
type OutdatedEntry struct {
	Package string
	Ref     string
	Current string
	Latest  string
}

// SkippedPackage names a dependency the outdated scan could not compare,
// with the reason.
type SkippedPackage struct {
	Package string
	Reason  string
}

// OutdatedResult holds the outcome of an outdated scan.
type OutdatedResult struct {
	UpToDate []string
	Outdated []OutdatedEntry
	Skipped  []SkippedPackage
	Errors   []PackageError
}

// PruneResult holds the outcome of a prune operation. Removed paths are
// relative to the install root.
type PruneResult struct {
	Removed []string
	Errors  []PackageError
}

// UninstallResult holds the outcome of an uninstall operation. NotLocked
// names dependencies that had no lockfile record, so only their manifest
// declaration went.
type UninstallResult struct {
	Removed   []string
	NotLocked []string
	Errors    []PackageError

	// Lockfile is the record to persist after the removals. It is nil for
	// dry runs and when nothing was removed.
	Lockfile *lock.LockFile
}
