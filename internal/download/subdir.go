package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/seiggy/apm/internal/content"
	"github.com/seiggy/apm/internal/refs"
	"github.com/seiggy/apm/internal/sandbox"
)

// installSubdirectory clones the repository into a temporary directory,
// copies the virtual path's subtree into the install root, and discards the
// clone. The subtree must look like a package: it needs a manifest or a
// skill marker, otherwise the reference was most likely a typo and is
// rejected rather than silently installing arbitrary repository content.
func (d *Downloader) installSubdirectory(ctx context.Context, ref *refs.DependencyReference, installRoot string) (ResolvedReference, error) {
	tmp, err := os.MkdirTemp("", "apm-git-*")
	if err != nil {
		return ResolvedReference{}, fmt.Errorf("creating temporary clone directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	resolved, err := d.cloneRepository(ctx, ref, tmp)
	if err != nil {
		return ResolvedReference{}, err
	}

	srcDir := filepath.Join(tmp, filepath.FromSlash(ref.VirtualPath))
	info, err := os.Stat(srcDir)
	if err != nil || !info.IsDir() {
		return ResolvedReference{}, &NotFoundError{
			Resource: fmt.Sprintf("'%s' in %s", ref.VirtualPath, ref.RepoURL),
			Ref:      resolved.Ref,
		}
	}

	if !isPackageDir(srcDir) {
		return ResolvedReference{}, fmt.Errorf("'%s' in %s is not a package directory — it has neither %s nor %s",
			ref.VirtualPath, ref.RepoURL, content.ManifestName, content.SkillMarker)
	}

	destRel := filepath.Join(filepath.FromSlash(ref.RepoURL), filepath.FromSlash(ref.VirtualPath))
	if err := sandbox.CopyTree(srcDir, installRoot, destRel); err != nil {
		return ResolvedReference{}, fmt.Errorf("copying '%s': %w", ref.VirtualPath, err)
	}
	return resolved, nil
}

// isPackageDir reports whether dir ships a package manifest or a skill
// marker.
func isPackageDir(dir string) bool {
	for _, name := range []string{content.ManifestName, content.SkillMarker} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}
