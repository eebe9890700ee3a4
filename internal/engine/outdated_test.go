package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seiggy/apm/internal/lock"
	"github.com/seiggy/apm/internal/refs"
)

// fakeRemote answers tip queries from a canned map and records the parsed
// references it was handed.
type fakeRemote struct {
	tips map[string]string
	seen []*refs.DependencyReference
	err  error
}

func (f *fakeRemote) RemoteTip(ctx context.Context, ref *refs.DependencyReference) (string, error) {
	f.seen = append(f.seen, ref)
	if f.err != nil {
		return "", f.err
	}
	return f.tips[ref.UniqueKey()], nil
}

func TestOutdatedComparesTips(t *testing.T) {
	current := strings.Repeat("a", 40)
	latest := strings.Repeat("b", 40)
	same := strings.Repeat("c", 40)

	lf := lock.New("0.9.0")
	lf.Set("a/lib", &lock.LockedDependency{RepoURL: "a/lib", ResolvedRef: "v1.0.0", ResolvedCommit: current})
	lf.Set("b/util", &lock.LockedDependency{RepoURL: "b/util", ResolvedRef: "main", ResolvedCommit: same})

	fake := &fakeRemote{tips: map[string]string{"a/lib": latest, "b/util": same}}
	eng := &OutdatedEngine{Downloader: fake}

	res, err := eng.Outdated(context.Background(), lf)
	require.NoError(t, err)

	require.Len(t, res.Outdated, 1)
	assert.Equal(t, OutdatedEntry{Package: "a/lib", Ref: "v1.0.0", Current: current, Latest: latest}, res.Outdated[0])
	assert.Equal(t, []string{"b/util"}, res.UpToDate)
	assert.Empty(t, res.Skipped)
	assert.Empty(t, res.Errors)
}

func TestOutdatedSkipsCommitPins(t *testing.T) {
	pin := strings.Repeat("a", 40)

	lf := lock.New("0.9.0")
	lf.Set("a/lib", &lock.LockedDependency{RepoURL: "a/lib", ResolvedRef: pin, ResolvedCommit: pin})

	fake := &fakeRemote{}
	eng := &OutdatedEngine{Downloader: fake}

	res, err := eng.Outdated(context.Background(), lf)
	require.NoError(t, err)

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "a/lib", res.Skipped[0].Package)
	assert.Contains(t, res.Skipped[0].Reason, "pinned to a commit")
	assert.Empty(t, fake.seen)
}

func TestOutdatedSkipsEntriesWithoutCommits(t *testing.T) {
	lf := lock.New("0.9.0")
	lf.Set("a/lib", &lock.LockedDependency{RepoURL: "a/lib", ResolvedRef: "v1.0.0", ResolvedCommit: lock.CachedCommit})
	lf.Set("b/util", &lock.LockedDependency{RepoURL: "b/util", ResolvedRef: "main"})

	fake := &fakeRemote{}
	eng := &OutdatedEngine{Downloader: fake}

	res, err := eng.Outdated(context.Background(), lf)
	require.NoError(t, err)

	require.Len(t, res.Skipped, 2)
	assert.Contains(t, res.Skipped[0].Reason, "no commit recorded")
	assert.Empty(t, fake.seen)
}

func TestOutdatedCollectsRemoteErrors(t *testing.T) {
	lf := lock.New("0.9.0")
	lf.Set("a/lib", &lock.LockedDependency{RepoURL: "a/lib", ResolvedRef: "v1.0.0", ResolvedCommit: strings.Repeat("a", 40)})

	fake := &fakeRemote{err: errors.New("dial tcp: timeout")}
	eng := &OutdatedEngine{Downloader: fake}

	res, err := eng.Outdated(context.Background(), lf)
	require.NoError(t, err)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "a/lib", res.Errors[0].Package)
	assert.ErrorContains(t, res.Errors[0].Err, "timeout")
}

func TestOutdatedNilLockfile(t *testing.T) {
	eng := &OutdatedEngine{Downloader: &fakeRemote{}}
	res, err := eng.Outdated(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Outdated)
	assert.Empty(t, res.UpToDate)
}

func TestOutdatedRebuildsLockedCoordinates(t *testing.T) {
	commit := strings.Repeat("a", 40)

	lf := lock.New("0.9.0")
	lf.Set("a/lib", &lock.LockedDependency{
		RepoURL:        "a/lib",
		Host:           "corp.ghe.com",
		ResolvedRef:    "release",
		ResolvedCommit: commit,
	})
	lf.Set("org/project/repo", &lock.LockedDependency{
		RepoURL:        "org/project/repo",
		Host:           "dev.azure.com",
		ResolvedRef:    "main",
		ResolvedCommit: commit,
	})

	fake := &fakeRemote{tips: map[string]string{"a/lib": commit, "org/project/repo": commit}}
	eng := &OutdatedEngine{Downloader: fake}

	res, err := eng.Outdated(context.Background(), lf)
	require.NoError(t, err)
	require.Len(t, res.UpToDate, 2)

	require.Len(t, fake.seen, 2)
	ghe := fake.seen[0]
	assert.Equal(t, "corp.ghe.com", ghe.Host)
	assert.Equal(t, "a/lib", ghe.RepoURL)
	assert.Equal(t, "release", ghe.Ref)
	assert.Equal(t, refs.RefBranch, ghe.RefType)

	ado := fake.seen[1]
	assert.Equal(t, "dev.azure.com", ado.Host)
	assert.Equal(t, "org/project/repo", ado.RepoURL)
	assert.Equal(t, "org", ado.ADOOrganization)
	assert.Equal(t, "project", ado.ADOProject)
	assert.Equal(t, "repo", ado.ADORepo)
}
