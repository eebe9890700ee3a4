// Package cache stores virtual-file payloads keyed by their exact fetch
// coordinates, so tag- and commit-pinned virtual packages skip the network
// on re-install. Entries are verified on retrieval and corrupt ones are
// removed rather than returned.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Cache provides keyed file storage with integrity verification.
type Cache struct {
	dir string
}

// New creates a Cache at the given directory.
// The directory is created if it does not exist.
func New(dir string) (*Cache, error) {
	objDir := filepath.Join(dir, "objects")
	if err := os.MkdirAll(objDir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", objDir, err)
	}
	return &Cache{dir: dir}, nil
}

// DefaultDir returns the default cache directory under the user's cache
// home.
func DefaultDir() string {
	return filepath.Join(xdg.CacheHome, "apm")
}

// Key derives the cache key for a virtual-file payload from its exact fetch
// coordinates. Callers must only cache tag- and commit-pinned fetches:
// branch refs float and have no stable identity to key on.
func Key(repoURL, resolvedRef, filePath string) string {
	h := sha256.New()
	h.Write([]byte(repoURL))
	h.Write([]byte{0})
	h.Write([]byte(resolvedRef))
	h.Write([]byte{0})
	h.Write([]byte(filePath))
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached payload by key.
// Returns the content and true if found and verified.
// Returns nil, false if not cached; corrupt entries are removed and
// reported as a miss.
func (c *Cache) Get(key string) ([]byte, bool, error) {
	path := c.objectPath(key)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry %s: %w", key, err)
	}

	sum, err := os.ReadFile(path + ".sum")
	if err != nil || string(sum) != contentDigest(data) {
		// Self-healing: remove the unverifiable entry.
		_ = os.Remove(path)
		_ = os.Remove(path + ".sum")
		return nil, false, nil
	}

	return data, true, nil
}

// Put stores a payload under key. Entries are immutable: a key that is
// already present is left untouched.
func (c *Cache) Put(key string, content []byte) error {
	path := c.objectPath(key)

	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating cache subdirectory: %w", err)
	}

	// Atomic write: temp file + rename, payload before digest so a crash
	// between the two reads back as a miss, never as a verified hit.
	if err := writeAtomic(dir, path, content); err != nil {
		return err
	}
	if err := writeAtomic(dir, path+".sum", []byte(contentDigest(content))); err != nil {
		return err
	}
	return nil
}

// Has checks if a key exists in the cache without reading content.
func (c *Cache) Has(key string) bool {
	_, err := os.Stat(c.objectPath(key))
	return err == nil
}

// Size returns the total size of the cache in bytes.
func (c *Cache) Size() (int64, error) {
	var total int64
	err := filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}

// Path returns the cache directory path.
func (c *Cache) Path() string {
	return c.dir
}

func (c *Cache) objectPath(key string) string {
	if len(key) < 2 {
		return filepath.Join(c.dir, "objects", key)
	}
	return filepath.Join(c.dir, "objects", key[:2], key)
}

func writeAtomic(dir, path string, content []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating cache temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("writing cache temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing cache temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing cache temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming cache temp file: %w", err)
	}

	success = true
	return nil
}

func contentDigest(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}
