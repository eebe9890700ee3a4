package download

import (
	"context"

	"github.com/seiggy/apm/internal/content"
	"github.com/seiggy/apm/internal/refs"
)

// installVirtualPath resolves an extension-less virtual path by probing what
// actually exists in the repository, in order: a collection manifest next to
// the path, the path as a single prompt file, and finally a repository
// subdirectory. Only a not-found answer moves the probe along; any other
// failure is the real error and aborts.
func (d *Downloader) installVirtualPath(ctx context.Context, ref *refs.DependencyReference, installRoot string) (ResolvedReference, error) {
	collectionPath := ref.VirtualPath + content.CollectionSuffix
	fetched, err := d.fetchFile(ctx, ref, collectionPath)
	if err == nil {
		return d.installCollection(ctx, ref, installRoot, collectionPath, fetched)
	}
	if !isNotFound(err) {
		return ResolvedReference{}, err
	}

	promptPath := ref.VirtualPath + content.DefaultPromptSuffix
	resolved, err := d.installVirtualFile(ctx, ref, installRoot, promptPath)
	if err == nil {
		return resolved, nil
	}
	if !isNotFound(err) {
		return ResolvedReference{}, err
	}

	return d.installSubdirectory(ctx, ref, installRoot)
}
