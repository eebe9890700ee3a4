// Package refs parses dependency reference strings into structured,
// immutable references. A reference names a Git repository, optionally a
// virtual sub-path inside it, a git ref, and an alias:
//
//	[host/]owner/repo[/virtualPath][#ref][@alias]
//
// HTTPS, SSH, and Azure DevOps URL forms are accepted and normalized to the
// same structure. Parsing is pure and fails closed: anything ambiguous or
// host-spoofed is rejected with a specific error.
package refs

import (
	"path/filepath"
	"strings"

	"github.com/seiggy/apm/internal/content"
	"github.com/seiggy/apm/internal/hosts"
)

// DependencyReference is the parsed form of a dependency string. Constructed
// once by Parse and never mutated afterward.
type DependencyReference struct {
	// Host is the effective Git host, never empty. References that name no
	// host get hosts.DefaultHost.
	Host string

	// RepoURL is the normalized repository path: "owner/repo", or
	// "organization/project/repo" for Azure DevOps. No leading or trailing
	// slashes, no .git suffix.
	RepoURL string

	// Ref is the git ref to resolve. Defaults to DefaultRef when the
	// reference names none.
	Ref string

	// RefType classifies Ref as a branch, tag, or commit.
	RefType RefType

	// Alias is an optional human-facing name overriding the derived one.
	Alias string

	// VirtualPath addresses a file, collection, or subdirectory inside the
	// repository. Empty for whole-repository packages.
	VirtualPath string

	// Azure DevOps coordinates, populated only for Azure DevOps hosts.
	ADOOrganization string
	ADOProject      string
	ADORepo         string
}

// IsAzureDevOps reports whether the reference targets an Azure DevOps host.
func (r *DependencyReference) IsAzureDevOps() bool {
	return r.ADOOrganization != ""
}

// IsVirtual reports whether the reference addresses content inside the
// repository rather than the whole repository.
func (r *DependencyReference) IsVirtual() bool {
	return r.VirtualPath != ""
}

// IsVirtualFile reports whether the virtual path names a single content file
// with a recognized extension. Extension-less virtual paths are classified
// later, at acquisition time.
func (r *DependencyReference) IsVirtualFile() bool {
	return r.VirtualPath != "" && content.HasRecognizedExtension(r.VirtualPath)
}

// UniqueKey is the identity used for graph deduplication and lockfile
// lookups. Two virtual packages from the same repository have distinct keys.
func (r *DependencyReference) UniqueKey() string {
	if r.VirtualPath == "" {
		return r.RepoURL
	}
	return r.RepoURL + "/" + r.VirtualPath
}

// DisplayName returns the alias when set, a "{repo}-{stem}" name for virtual
// packages, and the bare repository path otherwise.
func (r *DependencyReference) DisplayName() string {
	if r.Alias != "" {
		return r.Alias
	}
	if r.VirtualPath != "" {
		return r.repoName() + "-" + content.Stem(r.VirtualPath)
	}
	return r.RepoURL
}

// InstallPath returns the directory a package installs into under root:
// root/owner/repo, or root/org/project/repo for Azure DevOps. Virtual
// packages share the install directory of their repository.
func (r *DependencyReference) InstallPath(root string) string {
	parts := append([]string{root}, strings.Split(r.RepoURL, "/")...)
	return filepath.Join(parts...)
}

// String renders the reference in canonical grammar form. Parsing the result
// reproduces an equal reference.
func (r *DependencyReference) String() string {
	var b strings.Builder
	if r.Host != "" && r.Host != hosts.DefaultHost {
		b.WriteString(r.Host)
		b.WriteString("/")
	}
	b.WriteString(r.RepoURL)
	if r.VirtualPath != "" {
		b.WriteString("/")
		b.WriteString(r.VirtualPath)
	}
	if r.Ref != "" {
		b.WriteString("#")
		b.WriteString(r.Ref)
	}
	if r.Alias != "" {
		b.WriteString("@")
		b.WriteString(r.Alias)
	}
	return b.String()
}

func (r *DependencyReference) repoName() string {
	if idx := strings.LastIndex(r.RepoURL, "/"); idx >= 0 {
		return r.RepoURL[idx+1:]
	}
	return r.RepoURL
}
