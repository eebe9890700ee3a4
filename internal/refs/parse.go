package refs

import (
	"fmt"
	"strings"

	"github.com/seiggy/apm/internal/content"
	"github.com/seiggy/apm/internal/hosts"
)

// ParseError describes why a dependency reference string was rejected.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Raw == "" {
		return "invalid dependency reference: " + e.Reason
	}
	return fmt.Sprintf("invalid dependency reference %q: %s", e.Raw, e.Reason)
}

// Parser parses dependency reference strings against a host policy.
type Parser struct {
	Policy *hosts.Policy
}

// Parse parses raw using the default host policy.
func Parse(raw string) (*DependencyReference, error) {
	return (&Parser{Policy: hosts.NewPolicy()}).Parse(raw)
}

// Parse converts a dependency string into a DependencyReference. It is pure
// and deterministic; malformed, ambiguous, or host-spoofed input is rejected
// rather than coerced.
func (p *Parser) Parse(raw string) (*DependencyReference, error) {
	policy := p.Policy
	if policy == nil {
		policy = hosts.NewPolicy()
	}

	if raw == "" {
		return nil, &ParseError{Reason: "the reference is empty"}
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &ParseError{Raw: raw, Reason: "the reference contains only whitespace"}
	}
	for _, c := range trimmed {
		if c < 0x20 || c == 0x7f {
			return nil, &ParseError{Raw: raw, Reason: "the reference contains a control character"}
		}
	}
	if strings.ContainsAny(trimmed, " \t") {
		return nil, &ParseError{Raw: raw, Reason: "the reference must not contain whitespace"}
	}
	if strings.HasPrefix(trimmed, "//") {
		return nil, &ParseError{Raw: raw, Reason: "leading '//' is not allowed (protocol-relative URL)"}
	}

	base, ref, alias, reason := splitRefAlias(trimmed)
	if reason != "" {
		return nil, &ParseError{Raw: raw, Reason: reason}
	}

	host, path, reason := splitHost(policy, base)
	if reason != "" {
		return nil, &ParseError{Raw: raw, Reason: reason}
	}

	effectiveHost := host
	if effectiveHost == "" {
		effectiveHost = hosts.DefaultHost
	}
	isADO := policy.IsAzureDevOps(effectiveHost)

	segs := strings.Split(path, "/")
	if isADO {
		segs = normalizeADOSegments(effectiveHost, segs)
	}
	for _, s := range segs {
		if s == "" {
			return nil, &ParseError{Raw: raw, Reason: "the repository path contains an empty segment"}
		}
	}
	if len(segs) == 1 {
		return nil, &ParseError{Raw: raw, Reason: fmt.Sprintf("'%s' is ambiguous — a dependency needs at least 'owner/repo'", segs[0])}
	}

	repoSegCount := 2
	if isADO {
		repoSegCount = 3
		if len(segs) < 3 {
			return nil, &ParseError{Raw: raw, Reason: "Azure DevOps references need 'organization/project/repository'"}
		}
	}

	repoSegs := segs[:repoSegCount]
	repoSegs[len(repoSegs)-1] = strings.TrimSuffix(repoSegs[len(repoSegs)-1], ".git")
	if repoSegs[len(repoSegs)-1] == "" {
		return nil, &ParseError{Raw: raw, Reason: "the repository name is empty"}
	}

	virtualSegs := segs[repoSegCount:]
	virtualPath := strings.Join(virtualSegs, "/")
	if virtualPath != "" {
		last := virtualSegs[len(virtualSegs)-1]
		if content.HasAnyExtension(last) && !content.HasRecognizedExtension(last) {
			return nil, &ParseError{
				Raw: raw,
				Reason: fmt.Sprintf("invalid virtual package extension on '%s' — recognized extensions: %s",
					last, strings.Join(content.KnownExtensions(), ", ")),
			}
		}
	}

	if ref == "" {
		ref = DefaultRef
	}

	dr := &DependencyReference{
		Host:        effectiveHost,
		RepoURL:     strings.Join(repoSegs, "/"),
		Ref:         ref,
		RefType:     DetectRefType(ref),
		Alias:       alias,
		VirtualPath: virtualPath,
	}
	if isADO {
		dr.ADOOrganization = repoSegs[0]
		dr.ADOProject = repoSegs[1]
		dr.ADORepo = repoSegs[2]
	}
	return dr, nil
}

// splitRefAlias extracts the optional #ref and @alias suffixes. The two may
// appear in either order relative to each other, each at most once; the ref
// is extracted before the alias is stripped from what remains.
func splitRefAlias(s string) (base, ref, alias, reason string) {
	base = s
	if i := strings.Index(base, "#"); i >= 0 {
		tail := base[i+1:]
		base = base[:i]
		if strings.Contains(tail, "#") {
			return "", "", "", "the reference contains more than one '#'"
		}
		if j := strings.Index(tail, "@"); j >= 0 {
			alias = tail[j+1:]
			tail = tail[:j]
			if alias == "" {
				return "", "", "", "the alias after '@' is empty"
			}
			if strings.Contains(alias, "@") {
				return "", "", "", "the reference contains more than one alias"
			}
		}
		ref = tail
		if ref == "" {
			return "", "", "", "the git ref after '#' is empty"
		}
	}

	// An alias may also trail the repository path itself. The '@' in SSH
	// forms (git@host:path) and URL userinfo never qualifies because an
	// alias contains no '/' or ':'.
	if i := strings.LastIndex(base, "@"); i >= 0 {
		cand := base[i+1:]
		if cand == "" {
			return "", "", "", "the alias after '@' is empty"
		}
		if !strings.ContainsAny(cand, "/:") {
			if alias != "" {
				return "", "", "", "the reference contains more than one alias"
			}
			alias = cand
			base = base[:i]
			if j := strings.LastIndex(base, "@"); j >= 0 {
				prior := base[j+1:]
				if prior != "" && !strings.ContainsAny(prior, "/:") {
					return "", "", "", "the reference contains more than one alias"
				}
			}
		}
	}

	if base == "" {
		return "", "", "", "the reference names no repository"
	}
	return base, ref, alias, ""
}

// splitHost separates an explicit host from the repository path, handling
// HTTPS, SSH, and bare grammar forms. A bare first segment counts as a host
// only when it contains a dot; any explicit host must pass the allowlist.
func splitHost(policy *hosts.Policy, base string) (host, path, reason string) {
	lower := strings.ToLower(base)
	switch {
	case strings.HasPrefix(lower, "https://"), strings.HasPrefix(lower, "http://"):
		rest := base[strings.Index(base, "://")+3:]
		i := strings.Index(rest, "/")
		if i <= 0 {
			return "", "", "the URL names no repository path"
		}
		host, path = rest[:i], rest[i+1:]
	case strings.HasPrefix(lower, "git@"):
		rest := base[4:]
		i := strings.Index(rest, ":")
		if i <= 0 {
			return "", "", "the SSH reference is missing ':' between host and path"
		}
		host, path = rest[:i], rest[i+1:]
	default:
		i := strings.Index(base, "/")
		if i < 0 {
			return "", base, ""
		}
		first := base[:i]
		if !strings.Contains(first, ".") {
			return "", base, ""
		}
		host, path = first, base[i+1:]
	}

	host = strings.ToLower(host)
	if host == "ssh.dev.azure.com" {
		host = "dev.azure.com"
		path = strings.TrimPrefix(path, "v3/")
	}
	if !policy.Supported(host) {
		return "", "", fmt.Sprintf("host '%s' is not supported — supported hosts: %s",
			host, strings.Join(policy.SupportedHosts(), ", "))
	}
	return host, path, ""
}

// normalizeADOSegments removes Azure DevOps URL tokens (_git,
// DefaultCollection) and resolves the legacy {org}.visualstudio.com form,
// whose organization lives in the hostname rather than the path.
func normalizeADOSegments(host string, segs []string) []string {
	hadGit := false
	out := make([]string, 0, len(segs))
	for _, s := range segs {
		if s == "_git" && !hadGit {
			hadGit = true
			continue
		}
		if strings.EqualFold(s, "DefaultCollection") {
			continue
		}
		out = append(out, s)
	}
	if hadGit && strings.HasSuffix(host, ".visualstudio.com") {
		org := host[:strings.Index(host, ".")]
		out = append([]string{org}, out...)
	}
	return out
}
