// Package hosts classifies Git hosts against the supported allowlist and
// builds clone and raw-content URLs for them. Matching is exact or
// dot-suffix only, so look-alike hosts such as "fakegithub.com" or
// "github.com.evil.com" never pass.
package hosts

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultHost is assumed when a dependency reference names no host.
const DefaultHost = "github.com"

// Kind identifies the family a host belongs to, which determines clone URL
// shape, raw-content API, and credential purpose.
type Kind int

const (
	KindUnsupported Kind = iota
	KindGitHub
	KindAzureDevOps
)

func (k Kind) String() string {
	switch k {
	case KindGitHub:
		return "github"
	case KindAzureDevOps:
		return "azure-devops"
	default:
		return "unsupported"
	}
}

// Policy is the host allowlist. Build it once at startup; the optional extra
// hosts come from the environment (APM_GITHUB_HOST) and are treated as
// GitHub-family hosts.
type Policy struct {
	extra []string
}

// NewPolicy creates a Policy. Each non-empty entry in extraGitHubHosts is
// allowed as an additional GitHub-family host, matched exactly.
func NewPolicy(extraGitHubHosts ...string) *Policy {
	p := &Policy{}
	for _, h := range extraGitHubHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			p.extra = append(p.extra, h)
		}
	}
	return p
}

// Classify returns the family of a host name. Comparison is case-insensitive.
// Suffix rules keep their leading dot so the match always lands on a label
// boundary.
func (p *Policy) Classify(host string) Kind {
	h := strings.ToLower(strings.TrimSpace(host))
	switch {
	case h == "github.com":
		return KindGitHub
	case strings.HasSuffix(h, ".ghe.com"):
		return KindGitHub
	case h == "dev.azure.com" || h == "ssh.dev.azure.com":
		return KindAzureDevOps
	case strings.HasSuffix(h, ".visualstudio.com"):
		return KindAzureDevOps
	}
	for _, extra := range p.extra {
		if h == extra {
			return KindGitHub
		}
	}
	return KindUnsupported
}

// Supported reports whether the host is on the allowlist.
func (p *Policy) Supported(host string) bool {
	return p.Classify(host) != KindUnsupported
}

// IsAzureDevOps reports whether the host belongs to the Azure DevOps family.
func (p *Policy) IsAzureDevOps(host string) bool {
	return p.Classify(host) == KindAzureDevOps
}

// SupportedHosts returns a human-readable list of the accepted host
// patterns, for error messages.
func (p *Policy) SupportedHosts() []string {
	list := []string{"github.com", "*.ghe.com", "dev.azure.com", "*.visualstudio.com"}
	list = append(list, p.extra...)
	return list
}

// HTTPSCloneURL builds the anonymous HTTPS clone URL for a repository.
// repoPath is the normalized "owner/repo" form, or "org/project/repo" for
// Azure DevOps. The returned URL never embeds credentials.
func (p *Policy) HTTPSCloneURL(host, repoPath string) (string, error) {
	host = normalizeHost(host)
	segs := strings.Split(repoPath, "/")
	switch p.Classify(host) {
	case KindGitHub:
		if len(segs) != 2 {
			return "", fmt.Errorf("repository path '%s' must have form owner/repo", repoPath)
		}
		return fmt.Sprintf("https://%s/%s/%s.git", host, segs[0], segs[1]), nil
	case KindAzureDevOps:
		if len(segs) != 3 {
			return "", fmt.Errorf("repository path '%s' must have form organization/project/repo", repoPath)
		}
		if strings.HasSuffix(host, ".visualstudio.com") {
			return fmt.Sprintf("https://%s/%s/_git/%s", host, segs[1], segs[2]), nil
		}
		return fmt.Sprintf("https://dev.azure.com/%s/%s/_git/%s", segs[0], segs[1], segs[2]), nil
	}
	return "", fmt.Errorf("host '%s' is not supported", host)
}

// SSHCloneURL builds the SSH clone URL for a repository.
func (p *Policy) SSHCloneURL(host, repoPath string) (string, error) {
	host = normalizeHost(host)
	segs := strings.Split(repoPath, "/")
	switch p.Classify(host) {
	case KindGitHub:
		if len(segs) != 2 {
			return "", fmt.Errorf("repository path '%s' must have form owner/repo", repoPath)
		}
		return fmt.Sprintf("git@%s:%s/%s.git", host, segs[0], segs[1]), nil
	case KindAzureDevOps:
		if len(segs) != 3 {
			return "", fmt.Errorf("repository path '%s' must have form organization/project/repo", repoPath)
		}
		return fmt.Sprintf("git@ssh.dev.azure.com:v3/%s/%s/%s", segs[0], segs[1], segs[2]), nil
	}
	return "", fmt.Errorf("host '%s' is not supported", host)
}

// RawContentURL builds the API URL that returns a single file's raw content
// without cloning. GitHub-family hosts use the repository contents API;
// Azure DevOps uses the items API with a version descriptor. refType is
// "branch", "tag", or "commit".
func (p *Policy) RawContentURL(host, repoPath, filePath, ref, refType string) (string, error) {
	host = normalizeHost(host)
	segs := strings.Split(repoPath, "/")
	switch p.Classify(host) {
	case KindGitHub:
		if len(segs) != 2 {
			return "", fmt.Errorf("repository path '%s' must have form owner/repo", repoPath)
		}
		base := apiBase(host)
		return fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s",
			base, segs[0], segs[1], escapePath(filePath), url.QueryEscape(ref)), nil
	case KindAzureDevOps:
		if len(segs) != 3 {
			return "", fmt.Errorf("repository path '%s' must have form organization/project/repo", repoPath)
		}
		return fmt.Sprintf("https://dev.azure.com/%s/%s/_apis/git/repositories/%s/items?path=%s&versionDescriptor.version=%s&versionDescriptor.versionType=%s&includeContent=true&api-version=7.1",
			segs[0], segs[1], segs[2],
			url.QueryEscape("/"+filePath), url.QueryEscape(ref), url.QueryEscape(refType)), nil
	}
	return "", fmt.Errorf("host '%s' is not supported", host)
}

// apiBase returns the REST API root for a GitHub-family host. github.com and
// *.ghe.com tenants expose the API on a dedicated api. subdomain; GitHub
// Enterprise Server instances expose it under /api/v3.
func apiBase(host string) string {
	switch {
	case host == "github.com":
		return "https://api.github.com"
	case strings.HasSuffix(host, ".ghe.com"):
		return "https://api." + host
	default:
		return "https://" + host + "/api/v3"
	}
}

func normalizeHost(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	if h == "" {
		return DefaultHost
	}
	if h == "ssh.dev.azure.com" {
		return "dev.azure.com"
	}
	return h
}

// escapePath percent-encodes each path segment while keeping the slashes.
func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
