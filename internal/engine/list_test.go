package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seiggy/apm/internal/lock"
)

func writePackageDir(t *testing.T, root string, parts ...string) string {
	t.Helper()
	dir := filepath.Join(append([]string{root}, parts...)...)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "apm.yml"), []byte("name: pkg\nversion: 1.0.0\n"), 0o644))
	return dir
}

func TestListMergesLockAndDisk(t *testing.T) {
	root := t.TempDir()
	writePackageDir(t, root, "a", "lib")
	writePackageDir(t, root, "c", "stray")

	lf := lock.New("0.9.0")
	lf.Set("a/lib", &lock.LockedDependency{
		RepoURL:        "a/lib",
		ResolvedRef:    "v1.0.0",
		ResolvedCommit: strings.Repeat("a", 40),
		Depth:          2,
	})
	lf.Set("b/util", &lock.LockedDependency{RepoURL: "b/util", ResolvedRef: "main"})

	eng := &ListEngine{InstallRoot: root}
	entries, err := eng.List(context.Background(), lf)
	require.NoError(t, err)

	require.Len(t, entries, 3)
	assert.Equal(t, ListEntry{
		Key:    "a/lib",
		State:  StateInstalled,
		Ref:    "v1.0.0",
		Commit: strings.Repeat("a", 40),
		Depth:  2,
	}, entries[0])
	assert.Equal(t, "b/util", entries[1].Key)
	assert.Equal(t, StateMissing, entries[1].State)
	assert.Equal(t, 1, entries[1].Depth)
	assert.Equal(t, "c/stray", entries[2].Key)
	assert.Equal(t, StateUntracked, entries[2].State)
}

func TestListVirtualEntry(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "a", "lib", "prompts", "review.prompt.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))
	require.NoError(t, os.WriteFile(file, []byte("# review\n"), 0o644))

	lf := lock.New("0.9.0")
	lf.Set("a/lib/prompts/review.prompt.md", &lock.LockedDependency{
		RepoURL:     "a/lib",
		VirtualPath: "prompts/review.prompt.md",
		IsVirtual:   true,
		ResolvedRef: "v1.0.0",
	})

	eng := &ListEngine{InstallRoot: root}
	entries, err := eng.List(context.Background(), lf)
	require.NoError(t, err)

	// The containing repo directory belongs to the virtual entry and is not
	// reported as untracked.
	require.Len(t, entries, 1)
	assert.Equal(t, "a/lib/prompts/review.prompt.md", entries[0].Key)
	assert.Equal(t, StateInstalled, entries[0].State)
}

func TestListAzureContainerChildren(t *testing.T) {
	root := t.TempDir()
	writePackageDir(t, root, "org", "project", "repo1")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "org", "project", "repo2"), 0o755))

	lf := lock.New("0.9.0")
	lf.Set("org/project/repo1", &lock.LockedDependency{
		RepoURL:     "org/project/repo1",
		Host:        "dev.azure.com",
		ResolvedRef: "v1.0.0",
	})

	eng := &ListEngine{InstallRoot: root}
	entries, err := eng.List(context.Background(), lf)
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, "org/project/repo1", entries[0].Key)
	assert.Equal(t, StateInstalled, entries[0].State)
	assert.Equal(t, "org/project/repo2", entries[1].Key)
	assert.Equal(t, StateUntracked, entries[1].State)
}

func TestListReportsRepoWhenChildrenAreContent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "lib", "prompts"), 0o755))

	eng := &ListEngine{InstallRoot: root}
	entries, err := eng.List(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, "a/lib", entries[0].Key)
	assert.Equal(t, StateUntracked, entries[0].State)
}

func TestListMissingRoot(t *testing.T) {
	eng := &ListEngine{InstallRoot: filepath.Join(t.TempDir(), "absent")}
	entries, err := eng.List(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
