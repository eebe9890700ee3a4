package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/seiggy/apm/internal/content"
)

// FindManifest walks up from startDir looking for an apm.yml file, the way
// package managers locate their project root. It returns the manifest path
// and the directory containing it.
func FindManifest(startDir string) (manifestPath, projectRoot string, err error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", "", fmt.Errorf("resolving %s: %w", startDir, err)
	}

	for {
		candidate := filepath.Join(dir, content.ManifestName)
		if info, statErr := os.Stat(candidate); statErr == nil && !info.IsDir() {
			return candidate, dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", "", fmt.Errorf("no %s found in %s or any parent directory — run 'apm init' to create one", content.ManifestName, startDir)
		}
		dir = parent
	}
}
