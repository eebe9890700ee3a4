// Package download acquires packages from supported Git hosts. Whole
// repositories are cloned with go-git, trying credentialed transports before
// anonymous ones. Virtual paths are fetched over each host's raw-content API
// and classified at acquisition time when the reference does not make their
// shape explicit. Errors leaving this package are scrubbed of credential
// material.
package download

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/seiggy/apm/internal/auth"
	"github.com/seiggy/apm/internal/cache"
	"github.com/seiggy/apm/internal/config"
	"github.com/seiggy/apm/internal/content"
	"github.com/seiggy/apm/internal/hosts"
	"github.com/seiggy/apm/internal/refs"
)

// HTTPClient abstracts HTTP operations for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultHTTPClient performs requests with http.DefaultClient.
type DefaultHTTPClient struct{}

func (DefaultHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return http.DefaultClient.Do(req)
}

// ResolvedReference records the exact git state an acquisition resolved to.
type ResolvedReference struct {
	// Ref is the git ref that was requested, or the one actually served
	// when the host substituted its default branch.
	Ref string

	// RefType classifies Ref as a branch, tag, or commit.
	RefType refs.RefType

	// ResolvedCommit is the full commit SHA the ref resolved to, when the
	// acquisition learned it. Raw-content fetches do not.
	ResolvedCommit string

	// FromCache reports that the payload came from the local cache instead
	// of the network.
	FromCache bool
}

// DisplayRef renders the resolved state for human output: the ref name plus
// the short commit when both are known.
func (r ResolvedReference) DisplayRef() string {
	short := r.ResolvedCommit
	if len(short) > 8 {
		short = short[:8]
	}
	switch {
	case r.Ref == "":
		return short
	case short == "" || r.RefType == refs.RefCommit:
		return r.Ref
	default:
		return r.Ref + "@" + short
	}
}

// PackageInfo describes one acquired package.
type PackageInfo struct {
	// Manifest is the package's parsed apm.yml. Nil for content-only
	// packages, which ship none.
	Manifest *config.Manifest

	// InstallPath is the directory the package landed in.
	InstallPath string

	// Resolved pins the git state the install came from.
	Resolved ResolvedReference

	// InstalledAt records when the acquisition finished.
	InstalledAt time.Time
}

// Downloader acquires packages into an install root. Fields may be replaced
// before first use; construct with New for working defaults. Methods are safe
// for concurrent use, and acquisitions of the same package are serialized.
type Downloader struct {
	// Policy is the host allowlist used to build clone and content URLs.
	Policy *hosts.Policy

	// Env is the credential snapshot taken at startup.
	Env auth.Env

	// HTTPClient performs raw-content requests.
	HTTPClient HTTPClient

	// Cache, when set, stores tag- and commit-pinned virtual files so
	// repeat installs skip the network.
	Cache *cache.Cache

	// Logger receives debug-level acquisition detail.
	Logger *log.Logger

	// attemptsFn overrides the clone transport chain in tests, pointing it
	// at local fixture repositories.
	attemptsFn func(*refs.DependencyReference) ([]cloneAttempt, error)

	mu       sync.Mutex
	keyLocks map[string]*sync.Mutex
}

// New creates a Downloader with the given host policy and credential
// snapshot.
func New(policy *hosts.Policy, env auth.Env) *Downloader {
	return &Downloader{
		Policy:     policy,
		Env:        env,
		HTTPClient: DefaultHTTPClient{},
		Logger:     log.NewWithOptions(io.Discard, log.Options{}),
	}
}

// DownloadPackage acquires the package a reference names into installRoot and
// reports where it landed and what it resolved to. Whole repositories are
// cloned; virtual paths are fetched file-wise or, for subdirectories, cloned
// and copied out.
func (d *Downloader) DownloadPackage(ctx context.Context, ref *refs.DependencyReference, installRoot string) (*PackageInfo, error) {
	unlock := d.lockKey(ref.UniqueKey())
	defer unlock()

	var (
		resolved ResolvedReference
		err      error
	)
	switch {
	case !ref.IsVirtual():
		resolved, err = d.installRepository(ctx, ref, installRoot)
	case ref.IsVirtualFile():
		resolved, err = d.installVirtualFile(ctx, ref, installRoot, ref.VirtualPath)
	default:
		resolved, err = d.installVirtualPath(ctx, ref, installRoot)
	}
	if err != nil {
		return nil, SanitizeError(err)
	}

	info := &PackageInfo{
		InstallPath: ref.InstallPath(installRoot),
		Resolved:    resolved,
		InstalledAt: time.Now(),
	}
	if manifest, err := config.Read(filepath.Join(info.InstallPath, content.ManifestName)); err == nil {
		info.Manifest = manifest
	}
	return info, nil
}

// lockKey serializes acquisitions of one package key. Concurrent installs of
// different packages proceed in parallel; two of the same package would race
// on the shared install directory.
func (d *Downloader) lockKey(key string) func() {
	d.mu.Lock()
	if d.keyLocks == nil {
		d.keyLocks = make(map[string]*sync.Mutex)
	}
	l, ok := d.keyLocks[key]
	if !ok {
		l = &sync.Mutex{}
		d.keyLocks[key] = l
	}
	d.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (d *Downloader) policy() *hosts.Policy {
	if d.Policy != nil {
		return d.Policy
	}
	return hosts.NewPolicy()
}

func (d *Downloader) httpClient() HTTPClient {
	if d.HTTPClient != nil {
		return d.HTTPClient
	}
	return DefaultHTTPClient{}
}

func (d *Downloader) logger() *log.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return log.NewWithOptions(io.Discard, log.Options{})
}
