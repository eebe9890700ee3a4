package download

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/seiggy/apm/internal/refs"
	"github.com/seiggy/apm/internal/sandbox"
)

// CollectionManifest lists the content files a collection ships.
type CollectionManifest struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description,omitempty"`
	Items       []CollectionItem `yaml:"items"`
}

// CollectionItem is one entry of a collection manifest. Path is relative to
// the repository root.
type CollectionItem struct {
	Path string `yaml:"path"`
	Kind string `yaml:"kind,omitempty"`
}

// ParseCollection decodes and validates a collection manifest.
func ParseCollection(data []byte) (*CollectionManifest, error) {
	var m CollectionManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing collection manifest: %w", err)
	}
	if strings.TrimSpace(m.Name) == "" {
		return nil, fmt.Errorf("collection manifest is missing 'name'")
	}
	if len(m.Items) == 0 {
		return nil, fmt.Errorf("collection '%s' lists no items", m.Name)
	}
	for i, item := range m.Items {
		if strings.TrimSpace(item.Path) == "" {
			return nil, fmt.Errorf("collection '%s' item %d has an empty path", m.Name, i+1)
		}
		clean := path.Clean(item.Path)
		if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
			return nil, fmt.Errorf("collection '%s' item path '%s' must be repository-relative", m.Name, item.Path)
		}
	}
	return &m, nil
}

// installCollection writes the already-fetched collection manifest, then
// fetches every listed item at the same ref the manifest was served from,
// preserving each item's repository-relative path under the install root.
func (d *Downloader) installCollection(ctx context.Context, ref *refs.DependencyReference, installRoot, manifestPath string, fetched *fetchedContent) (ResolvedReference, error) {
	manifest, err := ParseCollection(fetched.data)
	if err != nil {
		return ResolvedReference{}, err
	}

	repoDir := filepath.FromSlash(ref.RepoURL)
	if err := sandbox.SafeWrite(installRoot, filepath.Join(repoDir, filepath.FromSlash(manifestPath)), fetched.data, 0o644); err != nil {
		return ResolvedReference{}, err
	}

	d.logger().Debug("installing collection", "repo", ref.RepoURL, "collection", manifest.Name, "items", len(manifest.Items))
	for _, item := range manifest.Items {
		data, err := d.fetchFileAt(ctx, ref, item.Path, fetched.ref)
		if err != nil {
			return ResolvedReference{}, fmt.Errorf("fetching collection item '%s': %w", item.Path, err)
		}
		if err := sandbox.SafeWrite(installRoot, filepath.Join(repoDir, filepath.FromSlash(item.Path)), data, 0o644); err != nil {
			return ResolvedReference{}, err
		}
	}
	return ResolvedReference{Ref: fetched.ref, RefType: ref.RefType}, nil
}
