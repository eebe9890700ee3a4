package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Save writes a manifest atomically using a temp file and rename.
// Dependency lists keep their declaration order.
func Save(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing temp manifest %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming temp manifest to %s: %w", path, err)
	}

	return nil
}
