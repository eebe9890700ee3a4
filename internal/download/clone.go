package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"github.com/seiggy/apm/internal/auth"
	"github.com/seiggy/apm/internal/refs"
)

// cloneAttempt is one transport in the clone fallback chain.
type cloneAttempt struct {
	name string
	url  string
	auth transport.AuthMethod
}

// cloneAttempts builds the fallback chain for a repository: HTTPS with a
// resolved token, then SSH agent, then anonymous HTTPS. When no token is
// configured the chain contains no credentialed HTTPS attempt at all, so a
// missing token can never surface as a rejected one.
func (d *Downloader) cloneAttempts(ref *refs.DependencyReference) ([]cloneAttempt, error) {
	policy := d.policy()
	httpsURL, err := policy.HTTPSCloneURL(ref.Host, ref.RepoURL)
	if err != nil {
		return nil, err
	}

	var attempts []cloneAttempt
	if purpose, ok := auth.PurposeForHostKind(policy.Classify(ref.Host)); ok {
		if tok, found := auth.Resolve(purpose, d.Env); found {
			attempts = append(attempts, cloneAttempt{
				name: "https (token from " + tok.Source + ")",
				url:  httpsURL,
				auth: &githttp.BasicAuth{Username: "token", Password: tok.Value},
			})
		}
	}

	if sshURL, err := policy.SSHCloneURL(ref.Host, ref.RepoURL); err == nil {
		if agentAuth, err := gitssh.NewSSHAgentAuth("git"); err == nil {
			attempts = append(attempts, cloneAttempt{name: "ssh (agent)", url: sshURL, auth: agentAuth})
		}
	}

	attempts = append(attempts, cloneAttempt{name: "https (anonymous)", url: httpsURL})
	return attempts, nil
}

// installRepository clones a whole repository and moves it into its install
// path. The clone lands in a staging directory next to the final path first,
// so a failed download never leaves a half-written package behind.
func (d *Downloader) installRepository(ctx context.Context, ref *refs.DependencyReference, installRoot string) (ResolvedReference, error) {
	installPath := ref.InstallPath(installRoot)
	parent := filepath.Dir(installPath)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return ResolvedReference{}, fmt.Errorf("creating install directory %s: %w", parent, err)
	}

	staging, err := os.MkdirTemp(parent, ".apm-clone-*")
	if err != nil {
		return ResolvedReference{}, fmt.Errorf("creating clone staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	resolved, err := d.cloneRepository(ctx, ref, staging)
	if err != nil {
		return ResolvedReference{}, err
	}

	if err := os.RemoveAll(installPath); err != nil {
		return ResolvedReference{}, fmt.Errorf("replacing %s: %w", installPath, err)
	}
	if err := os.Rename(staging, installPath); err != nil {
		return ResolvedReference{}, fmt.Errorf("moving clone into %s: %w", installPath, err)
	}
	return resolved, nil
}

func (d *Downloader) attempts(ref *refs.DependencyReference) ([]cloneAttempt, error) {
	if d.attemptsFn != nil {
		return d.attemptsFn(ref)
	}
	return d.cloneAttempts(ref)
}

// cloneRepository clones into dest, walking the transport fallback chain
// until one attempt succeeds. When all fail the error lists every attempt
// and the credential guidance for the host.
func (d *Downloader) cloneRepository(ctx context.Context, ref *refs.DependencyReference, dest string) (ResolvedReference, error) {
	attempts, err := d.attempts(ref)
	if err != nil {
		return ResolvedReference{}, err
	}

	var failures []string
	var lastErr error
	for _, attempt := range attempts {
		d.logger().Debug("cloning repository", "repo", ref.RepoURL, "ref", ref.Ref, "transport", attempt.name)
		resolved, err := d.tryClone(ctx, ref, attempt, dest)
		if err == nil {
			d.logger().Debug("clone succeeded", "repo", ref.RepoURL, "commit", resolved.ResolvedCommit, "transport", attempt.name)
			return resolved, nil
		}
		lastErr = err
		failures = append(failures, fmt.Sprintf("%s: %s", attempt.name, SanitizeString(err.Error())))
		_ = os.RemoveAll(dest)
		if ctx.Err() != nil {
			break
		}
	}

	purpose, _ := auth.PurposeForHostKind(d.policy().Classify(ref.Host))
	return ResolvedReference{}, &CloneError{
		RepoURL:  ref.RepoURL,
		Attempts: failures,
		Guidance: auth.Guidance(purpose, d.Env),
		Err:      lastErr,
	}
}

// tryClone performs one clone attempt into dest over a single transport.
func (d *Downloader) tryClone(ctx context.Context, ref *refs.DependencyReference, attempt cloneAttempt, dest string) (ResolvedReference, error) {
	if ref.RefType == refs.RefCommit {
		return d.cloneAtCommit(ctx, ref, attempt, dest)
	}

	refName := plumbing.NewBranchReferenceName(ref.Ref)
	if ref.RefType == refs.RefTag {
		refName = plumbing.NewTagReferenceName(ref.Ref)
	}
	commit, _, err := d.cloneSingleRef(ctx, attempt, dest, refName)
	if err == nil {
		return ResolvedReference{Ref: ref.Ref, RefType: ref.RefType, ResolvedCommit: commit}, nil
	}

	// A repository whose default branch is named something other than
	// "main" still has to serve the implied default ref. Retry once on the
	// remote HEAD and record the branch actually served.
	if ref.RefType == refs.RefBranch && ref.Ref == refs.DefaultRef && isRefNotFound(err) {
		_ = os.RemoveAll(dest)
		commit, branch, retryErr := d.cloneSingleRef(ctx, attempt, dest, "")
		if retryErr == nil {
			served := ref.Ref
			if branch != "" {
				served = branch
			}
			return ResolvedReference{Ref: served, RefType: refs.RefBranch, ResolvedCommit: commit}, nil
		}
	}
	return ResolvedReference{}, err
}

// cloneSingleRef clones dest at one named ref, or at the remote HEAD when
// refName is empty. It returns the commit HEAD landed on and, when HEAD is a
// branch, the branch name.
func (d *Downloader) cloneSingleRef(ctx context.Context, attempt cloneAttempt, dest string, refName plumbing.ReferenceName) (commit, branch string, err error) {
	opts := &git.CloneOptions{
		URL:  attempt.url,
		Auth: attempt.auth,
	}
	if refName != "" {
		opts.ReferenceName = refName
		opts.SingleBranch = true
	}

	repo, err := git.PlainCloneContext(ctx, dest, false, opts)
	if err != nil {
		return "", "", err
	}

	head, err := repo.Head()
	if err != nil {
		return "", "", fmt.Errorf("reading clone HEAD: %w", err)
	}
	if head.Name().IsBranch() {
		branch = head.Name().Short()
	}
	return head.Hash().String(), branch, nil
}

// cloneAtCommit fetches full history and checks the worktree out at the
// requested commit. Short SHAs are resolved to their full form first.
func (d *Downloader) cloneAtCommit(ctx context.Context, ref *refs.DependencyReference, attempt cloneAttempt, dest string) (ResolvedReference, error) {
	repo, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
		URL:  attempt.url,
		Auth: attempt.auth,
	})
	if err != nil {
		return ResolvedReference{}, err
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(ref.Ref))
	if err != nil {
		return ResolvedReference{}, fmt.Errorf("commit '%s' not found in %s: %w", ref.Ref, ref.RepoURL, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return ResolvedReference{}, fmt.Errorf("opening clone worktree: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: *hash}); err != nil {
		return ResolvedReference{}, fmt.Errorf("checking out commit '%s': %w", ref.Ref, err)
	}

	return ResolvedReference{Ref: ref.Ref, RefType: refs.RefCommit, ResolvedCommit: hash.String()}, nil
}

// isRefNotFound matches the ways go-git reports a missing remote ref across
// transports.
func isRefNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "couldn't find remote ref") || strings.Contains(msg, "reference not found")
}
