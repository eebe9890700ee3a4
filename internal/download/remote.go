package download

import (
	"context"
	"fmt"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/seiggy/apm/internal/refs"
)

// RemoteTip asks the remote which commit the reference's branch or tag
// currently points to, without cloning. It walks the same transport fallback
// chain as DownloadPackage and stops at the first transport that answers.
func (d *Downloader) RemoteTip(ctx context.Context, ref *refs.DependencyReference) (string, error) {
	attempts, err := d.attempts(ref)
	if err != nil {
		return "", SanitizeError(err)
	}

	var lastErr error
	for _, attempt := range attempts {
		d.logger().Debug("listing remote refs", "repo", ref.RepoURL, "transport", attempt.name)
		rem := git.NewRemote(memory.NewStorage(), &gitconfig.RemoteConfig{
			Name: "origin",
			URLs: []string{attempt.url},
		})
		listed, listErr := rem.ListContext(ctx, &git.ListOptions{
			Auth:          attempt.auth,
			PeelingOption: git.AppendPeeled,
		})
		if listErr != nil {
			lastErr = listErr
			if ctx.Err() != nil {
				break
			}
			continue
		}
		commit, found := tipFromRefs(listed, ref.Ref, ref.RefType)
		if !found {
			return "", &NotFoundError{Resource: fmt.Sprintf("%s '%s' in %s", ref.RefType, ref.Ref, ref.RepoURL)}
		}
		return commit, nil
	}

	if lastErr == nil {
		return "", fmt.Errorf("querying refs of %s: no transport available", ref.RepoURL)
	}
	return "", SanitizeError(fmt.Errorf("querying refs of %s: %w", ref.RepoURL, lastErr))
}

// tipFromRefs picks the advertised hash for a branch or tag. For annotated
// tags the peeled "^{}" entry carries the commit the tag object points to
// and wins over the tag object hash.
func tipFromRefs(listed []*plumbing.Reference, name string, refType refs.RefType) (string, bool) {
	want := plumbing.NewBranchReferenceName(name).String()
	if refType == refs.RefTag {
		want = plumbing.NewTagReferenceName(name).String()
	}

	tip := ""
	for _, r := range listed {
		switch r.Name().String() {
		case want + "^{}":
			return r.Hash().String(), true
		case want:
			tip = r.Hash().String()
		}
	}
	return tip, tip != ""
}
