package graph

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/seiggy/apm/internal/config"
	"github.com/seiggy/apm/internal/content"
	"github.com/seiggy/apm/internal/refs"
)

// DefaultMaxDepth caps how deep transitive resolution goes. Entries beyond
// the cap are dropped silently rather than treated as errors.
const DefaultMaxDepth = 50

// Loader acquires the package for ref under installRoot and returns its
// install path. A failed acquisition returns an empty path or an error;
// resolution continues either way and the node becomes a placeholder.
type Loader func(ctx context.Context, ref *refs.DependencyReference, installRoot string) (string, error)

// Builder constructs dependency trees from a project manifest.
//
// When Loader is nil, packages are read from the install root only and
// resolution is entirely offline. When a Loader is set it is invoked once
// per distinct dependency key and owns the decision to reuse an existing
// install or fetch a fresh one.
type Builder struct {
	InstallRoot string
	MaxDepth    int
	Loader      Loader
	Parser      *refs.Parser
}

// queueEntry is one pending dependency declaration.
type queueEntry struct {
	ref    *refs.DependencyReference
	depth  int
	parent *Node
}

// Build resolves the manifest's declared dependencies breadth-first.
// An unparseable dependency string in the root manifest aborts resolution;
// in transitive manifests it is recorded as a warning and skipped.
func (b *Builder) Build(ctx context.Context, manifest *config.Manifest) (*Result, error) {
	maxDepth := b.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	parser := b.Parser
	if parser == nil {
		parser = &refs.Parser{}
	}

	tree := NewTree()
	result := &Result{Tree: tree}

	var queue []queueEntry
	for _, raw := range manifest.Dependencies.APM {
		ref, err := parser.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("resolving dependencies of %s: %w", manifest.Name, err)
		}
		queue = append(queue, queueEntry{ref: ref, depth: 1})
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry := queue[0]
		queue = queue[1:]

		if entry.depth > maxDepth {
			continue
		}

		// Queue depths never decrease, so any existing node for this key
		// sits at a depth <= the current one. Attach it instead of
		// re-expanding; shared nodes are what make cycles detectable.
		key := entry.ref.UniqueKey()
		if existing := tree.Lookup(key, entry.depth); existing != nil {
			tree.recordOccurrence(entry.ref, existing, entry.depth)
			if entry.parent != nil {
				entry.parent.Children = append(entry.parent.Children, existing)
			}
			continue
		}

		node := &Node{Ref: entry.ref, Depth: entry.depth, Parent: entry.parent}
		tree.Add(node)
		tree.recordOccurrence(entry.ref, node, entry.depth)
		if entry.parent == nil {
			tree.Roots = append(tree.Roots, node)
		} else {
			entry.parent.Children = append(entry.parent.Children, node)
		}

		b.loadNode(ctx, node)
		if node.Package == nil {
			continue
		}

		for _, raw := range node.Package.Dependencies.APM {
			childRef, err := parser.Parse(raw)
			if err != nil {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("skipping dependency '%s' of %s: %v", raw, key, err))
				continue
			}
			queue = append(queue, queueEntry{ref: childRef, depth: entry.depth + 1, parent: node})
		}
	}

	result.Cycles = DetectCycles(tree)
	result.Flat = Flatten(tree)
	return result, nil
}

func (b *Builder) loadNode(ctx context.Context, node *Node) {
	if b.Loader == nil {
		installPath := node.Ref.InstallPath(b.InstallRoot)
		if _, err := os.Stat(installPath); err != nil {
			node.LoadErr = fmt.Errorf("%s is not installed", node.Ref.DisplayName())
			return
		}
		node.InstallPath = installPath
		b.readManifest(node)
		return
	}

	path, err := b.Loader(ctx, node.Ref, b.InstallRoot)
	if err != nil {
		node.LoadErr = err
		return
	}
	if path == "" {
		node.LoadErr = fmt.Errorf("package %s was not acquired", node.Ref.DisplayName())
		return
	}
	node.InstallPath = path
	b.readManifest(node)
}

// readManifest loads the package's own apm.yml. Packages without one are
// content-only leaves, which is normal for virtual files and repositories
// that just hold prompt content.
func (b *Builder) readManifest(node *Node) {
	pkg, err := config.Read(filepath.Join(node.InstallPath, content.ManifestName))
	switch {
	case err == nil:
		node.Package = pkg
	case errors.Is(err, os.ErrNotExist):
	default:
		node.LoadErr = err
	}
}
