package apm

import (
	"github.com/seiggy/apm/internal/download"
	"github.com/seiggy/apm/internal/engine"
	"github.com/seiggy/apm/internal/graph"
	"github.com/seiggy/apm/internal/lock"
)

// Type aliases re-export internal result types as the public API. Users
// import "github.com/seiggy/apm/pkg/apm" and use apm.InstallResult,
// apm.ListEntry, and so on.

type PackageInfo = download.PackageInfo
type ResolvedReference = download.ResolvedReference

type InstallResult = engine.InstallResult
type InstalledPackage = engine.InstalledPackage
type PackageError = engine.PackageError
type ListEntry = engine.ListEntry
type CheckResult = engine.CheckResult
type DriftEntry = engine.DriftEntry
type OutdatedResult = engine.OutdatedResult
type OutdatedEntry = engine.OutdatedEntry
type SkippedPackage = engine.SkippedPackage
type PruneResult = engine.PruneResult
type UninstallResult = engine.UninstallResult
type InfoResult = engine.InfoResult

type ConflictInfo = graph.ConflictInfo
type CircularRef = graph.CircularRef

type LockFile = lock.LockFile
type LockedDependency = lock.LockedDependency

// Install-state values reported by ListEntry.State.
const (
	StateInstalled = engine.StateInstalled
	StateMissing   = engine.StateMissing
	StateUntracked = engine.StateUntracked
)
