// Package auth resolves credentials for package downloads. Resolution is a
// pure function of an operation purpose and an explicit environment
// snapshot, so token selection is deterministic and testable, and a GitHub
// token can never leak to an Azure DevOps host or vice versa.
package auth

import (
	"fmt"
	"os"
	"strings"

	"github.com/seiggy/apm/internal/hosts"
)

// Environment variables consumed by apm. The names are part of the tool's
// compatibility surface.
const (
	// EnvGitHubPAT is the apm-specific GitHub personal access token. It
	// takes precedence over EnvGitHubToken.
	EnvGitHubPAT = "GITHUB_APM_PAT"

	// EnvGitHubToken is the generic GitHub token, honored when no
	// apm-specific PAT is set.
	EnvGitHubToken = "GITHUB_TOKEN"

	// EnvAzureDevOpsPAT is the only variable consulted for Azure DevOps.
	EnvAzureDevOpsPAT = "AZURE_DEVOPS_PAT"

	// EnvGitHubHost optionally allows one additional GitHub-family host,
	// read once at startup.
	EnvGitHubHost = "APM_GITHUB_HOST"
)

// Purpose identifies what a credential will be used for.
type Purpose int

const (
	PurposeGitHubPackages Purpose = iota
	PurposeAzureDevOpsPackages
)

func (p Purpose) String() string {
	if p == PurposeAzureDevOpsPackages {
		return "azure-devops-packages"
	}
	return "github-packages"
}

// Env is an immutable snapshot of environment variables. Empty or
// whitespace-only values count as absent.
type Env map[string]string

// SnapshotEnv captures the process environment once. Take the snapshot at
// startup and pass it down explicitly; nothing in this package reads the
// live environment afterward.
func SnapshotEnv() Env {
	env := make(Env)
	for _, kv := range os.Environ() {
		if i := strings.Index(kv, "="); i > 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}
	return env
}

// Get returns the snapshot value for key, or "" when unset.
func (e Env) Get(key string) string { return e[key] }

// Token is a resolved credential together with the environment variable
// that supplied it.
type Token struct {
	Value  string
	Source string
}

// purposeVars lists, in precedence order, the variables consulted per
// purpose. The GitHub and Azure DevOps lists are disjoint: that disjointness
// is what enforces token isolation between the two platforms.
var purposeVars = map[Purpose][]string{
	PurposeGitHubPackages:      {EnvGitHubPAT, EnvGitHubToken},
	PurposeAzureDevOpsPackages: {EnvAzureDevOpsPAT},
}

// Resolve returns the credential for a purpose from the snapshot, if any.
func Resolve(purpose Purpose, env Env) (Token, bool) {
	for _, name := range purposeVars[purpose] {
		if v := strings.TrimSpace(env.Get(name)); v != "" {
			return Token{Value: v, Source: name}, true
		}
	}
	return Token{}, false
}

// PurposeForHostKind maps a host family to its credential purpose. The
// second result is false for unsupported hosts.
func PurposeForHostKind(kind hosts.Kind) (Purpose, bool) {
	switch kind {
	case hosts.KindGitHub:
		return PurposeGitHubPackages, true
	case hosts.KindAzureDevOps:
		return PurposeAzureDevOpsPackages, true
	}
	return 0, false
}

// Guidance returns remediation text for a failed authentication, naming the
// environment variable to set when no token was configured, or to re-check
// when one was present but rejected.
func Guidance(purpose Purpose, env Env) string {
	tok, ok := Resolve(purpose, env)
	if purpose == PurposeAzureDevOpsPackages {
		if ok {
			return fmt.Sprintf("the token from %s was rejected — check that it is valid and has Code (Read) scope", tok.Source)
		}
		return fmt.Sprintf("set %s to a personal access token with Code (Read) scope", EnvAzureDevOpsPAT)
	}
	if ok {
		return fmt.Sprintf("the token from %s was rejected — check that it is valid and has repo scope", tok.Source)
	}
	return fmt.Sprintf("set %s (or %s) to a personal access token with repo scope", EnvGitHubPAT, EnvGitHubToken)
}

// CredentialEnvVars returns every variable that may carry a credential, in
// the order the error sanitizer should scrub them.
func CredentialEnvVars() []string {
	return []string{EnvGitHubPAT, EnvGitHubToken, EnvAzureDevOpsPAT}
}
