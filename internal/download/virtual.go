package download

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/seiggy/apm/internal/auth"
	"github.com/seiggy/apm/internal/cache"
	"github.com/seiggy/apm/internal/hosts"
	"github.com/seiggy/apm/internal/refs"
	"github.com/seiggy/apm/internal/sandbox"
)

// fetchedContent is a raw-content payload plus the git ref that actually
// served it.
type fetchedContent struct {
	data []byte
	ref  string
}

// installVirtualFile fetches one content file over the host's raw-content
// API and writes it under the repository's install path. Tag- and
// commit-pinned fetches go through the cache; branch refs always hit the
// network because branches float.
func (d *Downloader) installVirtualFile(ctx context.Context, ref *refs.DependencyReference, installRoot, filePath string) (ResolvedReference, error) {
	relPath := filepath.Join(filepath.FromSlash(ref.RepoURL), filepath.FromSlash(filePath))
	pinned := ref.RefType != refs.RefBranch

	var key string
	if pinned && d.Cache != nil {
		key = cache.Key(ref.RepoURL, ref.Ref, filePath)
		if data, ok, err := d.Cache.Get(key); err == nil && ok {
			if err := sandbox.SafeWrite(installRoot, relPath, data, 0o644); err != nil {
				return ResolvedReference{}, err
			}
			d.logger().Debug("virtual file served from cache", "repo", ref.RepoURL, "path", filePath, "ref", ref.Ref)
			return ResolvedReference{Ref: ref.Ref, RefType: ref.RefType, FromCache: true}, nil
		}
	}

	fetched, err := d.fetchFile(ctx, ref, filePath)
	if err != nil {
		return ResolvedReference{}, err
	}
	if err := sandbox.SafeWrite(installRoot, relPath, fetched.data, 0o644); err != nil {
		return ResolvedReference{}, err
	}

	if pinned && d.Cache != nil {
		if err := d.Cache.Put(key, fetched.data); err != nil {
			d.logger().Debug("caching virtual file failed", "key", key, "error", err)
		}
	}
	return ResolvedReference{Ref: fetched.ref, RefType: ref.RefType}, nil
}

// fetchFile fetches one file at the reference's ref. A 404 on one of the two
// common default branch names is retried once on the other, so "main"
// references still resolve against repositories whose default branch is
// "master". Only a 404 triggers the retry; auth failures surface directly.
func (d *Downloader) fetchFile(ctx context.Context, ref *refs.DependencyReference, filePath string) (*fetchedContent, error) {
	data, err := d.fetchFileAt(ctx, ref, filePath, ref.Ref)
	if err == nil {
		return &fetchedContent{data: data, ref: ref.Ref}, nil
	}

	if sibling := siblingDefaultBranch(ref.Ref); sibling != "" && ref.RefType == refs.RefBranch && isNotFound(err) {
		d.logger().Debug("retrying on sibling default branch", "repo", ref.RepoURL, "path", filePath, "ref", sibling)
		if data, retryErr := d.fetchFileAt(ctx, ref, filePath, sibling); retryErr == nil {
			return &fetchedContent{data: data, ref: sibling}, nil
		}
	}
	return nil, err
}

// fetchFileAt performs one raw-content request for filePath at gitRef.
func (d *Downloader) fetchFileAt(ctx context.Context, ref *refs.DependencyReference, filePath, gitRef string) ([]byte, error) {
	policy := d.policy()
	kind := policy.Classify(ref.Host)
	url, err := policy.RawContentURL(ref.Host, ref.RepoURL, filePath, gitRef, string(ref.RefType))
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building content request: %w", err)
	}
	req.Header.Set("User-Agent", "apm")

	purpose, hasPurpose := auth.PurposeForHostKind(kind)
	var tok auth.Token
	var hasToken bool
	if hasPurpose {
		tok, hasToken = auth.Resolve(purpose, d.Env)
	}

	if kind == hosts.KindAzureDevOps {
		req.Header.Set("Accept", "application/json")
		if hasToken {
			req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(":"+tok.Value)))
		}
	} else {
		req.Header.Set("Accept", "application/vnd.github.v3.raw")
		if hasToken {
			req.Header.Set("Authorization", "Bearer "+tok.Value)
		}
	}

	resp, err := d.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", filePath, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, &NotFoundError{Resource: fmt.Sprintf("%s in %s", filePath, ref.RepoURL), Ref: gitRef}
	case http.StatusUnauthorized, http.StatusForbidden:
		guidance := ""
		if hasPurpose {
			guidance = auth.Guidance(purpose, d.Env)
		}
		return nil, &AuthError{Host: ref.Host, Guidance: guidance, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	default:
		return nil, fmt.Errorf("fetching %s from %s: HTTP %d", filePath, ref.RepoURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading content response: %w", err)
	}

	// The Azure DevOps items API wraps file content in a JSON envelope.
	if kind == hosts.KindAzureDevOps {
		var item struct {
			Content string `json:"content"`
		}
		if err := json.Unmarshal(body, &item); err != nil {
			return nil, fmt.Errorf("parsing items response for %s: %w", filePath, err)
		}
		return []byte(item.Content), nil
	}
	return body, nil
}

// siblingDefaultBranch maps between the two common default branch names.
// Other branches have no sibling.
func siblingDefaultBranch(ref string) string {
	switch ref {
	case "main":
		return "master"
	case "master":
		return "main"
	}
	return ""
}
