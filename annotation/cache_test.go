package annotation

import (
	"path/filepath"
	"testing"
)

func TestImageCache(t *testing.T) {
	dir := t.TempDir()
	paths := make([]string, 3)
	for i, name := range []string{"a.png", "b.png", "c.png"} {
		paths[i] = filepath.Join(dir, name)
		writePNG(t, paths[i], 10+i, 10)
	}

	t.Run("keeps at most limit images", func(t *testing.T) {
		c := NewImageCache(2)
		for _, p := range paths {
			if _, err := c.Load(p); err != nil {
				t.Fatalf("Load(%s) error = %v", p, err)
			}
		}
		if c.Len() != 2 {
			t.Errorf("Len() = %d, want 2", c.Len())
		}
		if _, ok := c.images[paths[0]]; ok {
			t.Error("oldest image was not evicted")
		}
	})

	t.Run("a hit keeps the image", func(t *testing.T) {
		c := NewImageCache(2)
		c.Load(paths[0])
		c.Load(paths[1])
		c.Load(paths[0])
		c.Load(paths[2])
		if _, ok := c.images[paths[0]]; !ok {
			t.Error("recently used image was evicted")
		}
		if _, ok := c.images[paths[1]]; ok {
			t.Error("least recently used image was kept")
		}
	})

	t.Run("eviction drops the hash", func(t *testing.T) {
		c := NewImageCache(1)
		if _, err := c.Hash(paths[0]); err != nil {
			t.Fatalf("Hash() error = %v", err)
		}
		c.Load(paths[0])
		c.Load(paths[1])
		if _, ok := c.hashes[paths[0]]; ok {
			t.Error("hash of an evicted image was kept")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		c := NewImageCache(2)
		if _, err := c.Load(filepath.Join(dir, "nope.png")); err == nil {
			t.Error("Expected error for a missing file")
		}
		if c.Len() != 0 {
			t.Errorf("Len() = %d, want 0", c.Len())
		}
	})
}
