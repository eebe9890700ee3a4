package engine

import (
	"context"
	"sort"

	"github.com/seiggy/apm/internal/hosts"
	"github.com/seiggy/apm/internal/lock"
	"github.com/seiggy/apm/internal/refs"
)

// RemoteLister answers which commit a remote currently serves for a ref.
// *download.Downloader is the production implementation.
type RemoteLister interface {
	RemoteTip(ctx context.Context, ref *refs.DependencyReference) (string, error)
}

// OutdatedEngine compares locked commits against the refs their remotes
// currently serve.
type OutdatedEngine struct {
	Downloader RemoteLister
	Parser     *refs.Parser
}

// Outdated queries every locked branch and tag dependency for its upstream
// tip. Commit pins and records without a comparable commit are skipped with
// a reason rather than guessed at.
func (e *OutdatedEngine) Outdated(ctx context.Context, currentLock *lock.LockFile) (*OutdatedResult, error) {
	result := &OutdatedResult{}
	if currentLock == nil {
		return result, nil
	}

	parser := e.Parser
	if parser == nil {
		parser = &refs.Parser{}
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

		if refs.DetectRefType(d.ResolvedRef) == refs.RefCommit {
			result.Skipped = append(result.Skipped, SkippedPackage{Package: key, Reason: "pinned to a commit"})
			continue
		}
		if d.ResolvedCommit == "" || d.ResolvedCommit == lock.CachedCommit {
			result.Skipped = append(result.Skipped, SkippedPackage{Package: key, Reason: "no commit recorded; reinstall with --update to compare"})
			continue
		}

		ref, err := lockedReference(parser, d)
		if err != nil {
			result.Errors = append(result.Errors, PackageError{Package: key, Err: err})
			continue
		}

		tip, err := e.Downloader.RemoteTip(ctx, ref)
		if err != nil {
			result.Errors = append(result.Errors, PackageError{Package: key, Err: err})
			continue
		}

		if tip == d.ResolvedCommit {
			result.UpToDate = append(result.UpToDate, key)
		} else {
			result.Outdated = append(result.Outdated, OutdatedEntry{
				Package: key,
				Ref:     d.ResolvedRef,
				Current: d.ResolvedCommit,
				Latest:  tip,
			})
		}
	}

	return result, nil
}

// lockedReference rebuilds a parseable reference from a lockfile record so
// host policy and transport selection work the same way they did at install
// time.
func lockedReference(parser *refs.Parser, d *lock.LockedDependency) (*refs.DependencyReference, error) {
	raw := d.RepoURL
	if host := d.EffectiveHost(); host != hosts.DefaultHost {
		raw = host + "/" + raw
	}
	if d.ResolvedRef != "" {
		raw += "#" + d.ResolvedRef
	}
	return parser.Parse(raw)
}
