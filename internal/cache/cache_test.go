package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestKeyDeterministicAndDistinct(t *testing.T) {
	a := Key("owner/repo", "v1.0.0", "prompts/review.prompt.md")
	b := Key("owner/repo", "v1.0.0", "prompts/review.prompt.md")
	if a != b {
		t.Error("same coordinates must produce the same key")
	}

	variants := []string{
		Key("owner/repo", "v1.0.1", "prompts/review.prompt.md"),
		Key("owner/other", "v1.0.0", "prompts/review.prompt.md"),
		Key("owner/repo", "v1.0.0", "prompts/plan.prompt.md"),
		// Separator matters: shifting a character across the boundary
		// must change the key.
		Key("owner/repov", "1.0.0", "prompts/review.prompt.md"),
	}
	for i, v := range variants {
		if v == a {
			t.Errorf("variant %d collides with the base key", i)
		}
	}
}

func TestPutAndGet(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	key := Key("owner/repo", "v1.0.0", "prompts/review.prompt.md")
	content := []byte("# Review prompt\n")

	if putErr := c.Put(key, content); putErr != nil {
		t.Fatalf("Put: %v", putErr)
	}

	got, found, err := c.Get(key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found {
		t.Fatal("expected cache hit")
	}
	if string(got) != "# Review prompt\n" {
		t.Errorf("got %q", string(got))
	}
}

func TestGetMiss(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	_, found, err := c.Get(Key("o/r", "v9.9.9", "missing.prompt.md"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found {
		t.Fatal("expected cache miss")
	}
}

func TestPutIdempotent(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	key := Key("o/r", "v1.0.0", "a.prompt.md")
	content := []byte("idempotent")

	if putErr := c.Put(key, content); putErr != nil {
		t.Fatalf("first Put: %v", putErr)
	}
	if putErr := c.Put(key, content); putErr != nil {
		t.Fatalf("second Put: %v", putErr)
	}
}

func TestCorruptCacheEntry(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	key := Key("o/r", "v1.0.0", "a.prompt.md")
	if putErr := c.Put(key, []byte("original content")); putErr != nil {
		t.Fatal(putErr)
	}

	objPath := c.objectPath(key)
	if writeErr := os.WriteFile(objPath, []byte("corrupted"), 0644); writeErr != nil {
		t.Fatal(writeErr)
	}

	// Get should detect the mismatch and report a miss (self-healing).
	_, found, err := c.Get(key)
	if err != nil {
		t.Fatalf("Get should not error on corruption: %v", err)
	}
	if found {
		t.Fatal("expected cache miss after corruption")
	}

	if _, statErr := os.Stat(objPath); !os.IsNotExist(statErr) {
		t.Error("corrupt cache entry should be removed")
	}
}

func TestMissingDigestTreatedAsMiss(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	key := Key("o/r", "v1.0.0", "a.prompt.md")
	if putErr := c.Put(key, []byte("content")); putErr != nil {
		t.Fatal(putErr)
	}
	if rmErr := os.Remove(c.objectPath(key) + ".sum"); rmErr != nil {
		t.Fatal(rmErr)
	}

	_, found, err := c.Get(key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found {
		t.Fatal("an entry without its digest must not be served")
	}
}

func TestHas(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	key := Key("o/r", "v1.0.0", "a.prompt.md")
	if c.Has(key) {
		t.Fatal("expected Has=false before Put")
	}
	if putErr := c.Put(key, []byte("exists")); putErr != nil {
		t.Fatal(putErr)
	}
	if !c.Has(key) {
		t.Fatal("expected Has=true after Put")
	}
}

func TestSize(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if putErr := c.Put(Key("o/r", "v1", "a"), []byte("some content for size test")); putErr != nil {
		t.Fatal(putErr)
	}

	size, err := c.Size()
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size <= 0 {
		t.Errorf("expected positive size, got %d", size)
	}
}

func TestPath(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	if c.Path() != dir {
		t.Errorf("Path = %q, want %q", c.Path(), dir)
	}
}

func TestDefaultDir(t *testing.T) {
	got := DefaultDir()
	if got == "" {
		t.Fatal("DefaultDir should not be empty")
	}
	if filepath.Base(got) != "apm" {
		t.Errorf("DefaultDir should end in apm, got %q", got)
	}
}

func TestObjectPathLayout(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}

	key := "abcdef1234567890"
	path := c.objectPath(key)
	expected := filepath.Join(dir, "objects", "ab", key)
	if path != expected {
		t.Errorf("objectPath = %q, want %q", path, expected)
	}
	if !strings.HasPrefix(path, dir) {
		t.Errorf("objectPath escaped the cache dir: %q", path)
	}
}
