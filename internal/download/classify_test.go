package download

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seiggy/apm/internal/auth"
	"github.com/seiggy/apm/internal/refs"
)

const reviewPackCollection = `name: review-pack
description: Review helpers
items:
  - path: prompts/a.prompt.md
    kind: prompt
  - path: instructions/b.instructions.md
`

func TestInstallVirtualPathCollection(t *testing.T) {
	client := &fakeHTTPClient{respond: func(req *http.Request) *http.Response {
		switch {
		case strings.Contains(req.URL.Path, "review-pack.collection.yml"):
			return httpResponse(200, reviewPackCollection)
		case strings.Contains(req.URL.Path, "prompts/a.prompt.md"):
			return httpResponse(200, "A")
		case strings.Contains(req.URL.Path, "instructions/b.instructions.md"):
			return httpResponse(200, "B")
		default:
			return httpResponse(404, "")
		}
	}}
	d := fetchDownloader(auth.Env{}, client)
	root := t.TempDir()

	ref := repoRef("dev/tool", "main", refs.RefBranch)
	ref.VirtualPath = "library/review-pack"

	resolved, err := d.installVirtualPath(context.Background(), ref, root)
	require.NoError(t, err)
	assert.Equal(t, "main", resolved.Ref)

	repoDir := filepath.Join(root, "dev", "tool")
	for path, want := range map[string]string{
		"library/review-pack.collection.yml": reviewPackCollection,
		"prompts/a.prompt.md":                "A",
		"instructions/b.instructions.md":     "B",
	} {
		data, err := os.ReadFile(filepath.Join(repoDir, filepath.FromSlash(path)))
		require.NoError(t, err, path)
		assert.Equal(t, want, string(data), path)
	}
	assert.Len(t, client.requests, 3)
}

func TestInstallVirtualPathInvalidCollectionFails(t *testing.T) {
	client := &fakeHTTPClient{respond: func(req *http.Request) *http.Response {
		if strings.Contains(req.URL.Path, ".collection.yml") {
			return httpResponse(200, "name: ''\n")
		}
		return httpResponse(404, "")
	}}
	d := fetchDownloader(auth.Env{}, client)

	ref := repoRef("dev/tool", "main", refs.RefBranch)
	ref.VirtualPath = "library/broken"

	_, err := d.installVirtualPath(context.Background(), ref, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing 'name'")
	assert.Len(t, client.requests, 1, "an invalid collection must not fall through to the next probe")
}

func TestInstallVirtualPathPromptFallback(t *testing.T) {
	client := &fakeHTTPClient{respond: func(req *http.Request) *http.Response {
		if strings.Contains(req.URL.Path, "quick.prompt.md") {
			return httpResponse(200, "quick prompt")
		}
		return httpResponse(404, "")
	}}
	d := fetchDownloader(auth.Env{}, client)
	root := t.TempDir()

	ref := repoRef("dev/tool", "main", refs.RefBranch)
	ref.VirtualPath = "library/quick"

	resolved, err := d.installVirtualPath(context.Background(), ref, root)
	require.NoError(t, err)
	assert.Equal(t, "main", resolved.Ref)

	data, err := os.ReadFile(filepath.Join(root, "dev", "tool", "library", "quick.prompt.md"))
	require.NoError(t, err)
	assert.Equal(t, "quick prompt", string(data))
	assert.Len(t, client.requests, 3, "collection probe on both default branches, then the prompt hit")
}

func TestInstallVirtualPathSubdirectoryFallback(t *testing.T) {
	f := newFixtureRepo(t, "main")
	commit := f.commit(t, "initial", map[string]string{"skills/review/SKILL.md": "# Review"})

	client := &fakeHTTPClient{respond: alwaysRespond(404, "")}
	d := fetchDownloader(auth.Env{}, client)
	d.attemptsFn = func(*refs.DependencyReference) ([]cloneAttempt, error) {
		return []cloneAttempt{{name: "local", url: f.path}}, nil
	}
	root := t.TempDir()

	ref := repoRef("dev/tool", "main", refs.RefBranch)
	ref.VirtualPath = "skills/review"

	resolved, err := d.installVirtualPath(context.Background(), ref, root)
	require.NoError(t, err)

	assert.Equal(t, commit, resolved.ResolvedCommit)
	assert.Len(t, client.requests, 4, "collection and prompt probes on both default branches")
	_, err = os.Stat(filepath.Join(root, "dev", "tool", "skills", "review", "SKILL.md"))
	assert.NoError(t, err)
}

func TestInstallVirtualPathAuthErrorStopsProbing(t *testing.T) {
	client := &fakeHTTPClient{respond: alwaysRespond(401, "")}
	d := fetchDownloader(auth.Env{}, client)

	ref := repoRef("dev/tool", "main", refs.RefBranch)
	ref.VirtualPath = "library/anything"

	_, err := d.installVirtualPath(context.Background(), ref, t.TempDir())
	require.Error(t, err)

	var authErr *AuthError
	assert.ErrorAs(t, err, &authErr)
	assert.Len(t, client.requests, 1)
}

func TestDownloadPackageClassifiesExtensionless(t *testing.T) {
	client := &fakeHTTPClient{respond: func(req *http.Request) *http.Response {
		if strings.Contains(req.URL.Path, "x.prompt.md") {
			return httpResponse(200, "body")
		}
		return httpResponse(404, "")
	}}
	d := fetchDownloader(auth.Env{}, client)
	root := t.TempDir()

	ref := repoRef("dev/tool", "main", refs.RefBranch)
	ref.VirtualPath = "prompts/x"
	require.False(t, ref.IsVirtualFile())

	info, err := d.DownloadPackage(context.Background(), ref, root)
	require.NoError(t, err)

	assert.Equal(t, "main", info.Resolved.Ref)
	_, err = os.Stat(filepath.Join(root, "dev", "tool", "prompts", "x.prompt.md"))
	assert.NoError(t, err)
}
