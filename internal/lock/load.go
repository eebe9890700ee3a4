package lock

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/seiggy/apm/internal/hosts"
)

// Read loads an apm.lock file. The lockfile is advisory: a missing,
// unreadable, or corrupt file yields nil ("no lock") rather than an error,
// which only disables the reuse optimization and triggers full
// re-resolution.
func Read(path string) *LockFile {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var lf LockFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil
	}
	if lf.LockfileVersion != CurrentVersion {
		return nil
	}

	for _, d := range lf.Dependencies {
		if d == nil {
			return nil
		}
		if d.Depth == 0 {
			d.Depth = 1
		}
		if d.Host == "" {
			d.Host = hosts.DefaultHost
		}
	}
	return &lf
}

// Save writes a lockfile atomically using a temp file and rename. Entries
// are ordered by depth, then by unique key, so entry order is stable across
// installs and lockfile diffs stay reviewable.
func Save(path string, lf *LockFile) error {
	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lockfile: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing temp lockfile %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming temp lockfile to %s: %w", path, err)
	}

	return nil
}

// MarshalYAML renders the lockfile with deterministic entry ordering and
// the omission rules the format defines (default host, depth 1, and false
// flags are left out).
func (lf *LockFile) MarshalYAML() (interface{}, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}

	appendScalar(root, "lockfile_version", fmt.Sprintf("%d", lf.LockfileVersion), "!!int")
	appendScalar(root, "generated_at", lf.GeneratedAt.UTC().Format(time.RFC3339), "!!timestamp")
	if lf.APMVersion != "" {
		appendScalar(root, "apm_version", lf.APMVersion, "!!str")
	}

	deps := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range lf.orderedKeys() {
		deps.Content = append(deps.Content,
			strNode(key),
			dependencyNode(lf.Dependencies[key]))
	}
	root.Content = append(root.Content, strNode("dependencies"), deps)

	return root, nil
}

// orderedKeys sorts dependency keys by depth ascending, then by key.
func (lf *LockFile) orderedKeys() []string {
	keys := make([]string, 0, len(lf.Dependencies))
	for k := range lf.Dependencies {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		di := lf.Dependencies[keys[i]].EffectiveDepth()
		dj := lf.Dependencies[keys[j]].EffectiveDepth()
		if di != dj {
			return di < dj
		}
		return keys[i] < keys[j]
	})
	return keys
}

func dependencyNode(d *LockedDependency) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}

	appendScalar(n, "repo_url", d.RepoURL, "!!str")
	if d.Host != "" && d.Host != hosts.DefaultHost {
		appendScalar(n, "host", d.Host, "!!str")
	}
	if d.ResolvedCommit != "" {
		appendScalar(n, "resolved_commit", d.ResolvedCommit, "!!str")
	}
	appendScalar(n, "resolved_ref", d.ResolvedRef, "!!str")
	if d.Version != "" {
		appendScalar(n, "version", d.Version, "!!str")
	}
	if d.VirtualPath != "" {
		appendScalar(n, "virtual_path", d.VirtualPath, "!!str")
	}
	if d.IsVirtual {
		appendScalar(n, "is_virtual", "true", "!!bool")
	}
	if d.Depth > 1 {
		appendScalar(n, "depth", fmt.Sprintf("%d", d.Depth), "!!int")
	}
	if d.ResolvedBy != "" {
		appendScalar(n, "resolved_by", d.ResolvedBy, "!!str")
	}
	return n
}

func appendScalar(m *yaml.Node, key, value, tag string) {
	m.Content = append(m.Content, strNode(key), &yaml.Node{
		Kind:  yaml.ScalarNode,
		Tag:   tag,
		Value: value,
	})
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}
