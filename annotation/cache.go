package annotation

import (
	"image"
	"slices"
	"sync"
)

// ImageCacheSize is how many decoded images the app keeps in memory
const ImageCacheSize = 8

// ImageCache keeps decoded images and file hashes keyed by path. It is safe for
// concurrent use. At most limit images are held, the least recently used one goes first.
type ImageCache struct {
	mu     sync.Mutex
	limit  int
	images map[string]image.Image
	hashes map[string]string
	// paths of the held images, least recently used first
	order []string
}

// NewImageCache creates a cache holding up to limit images. A limit below 1 is taken as 1.
func NewImageCache(limit int) *ImageCache {
	if limit < 1 {
		limit = 1
	}
	return &ImageCache{
		limit:  limit,
		images: make(map[string]image.Image),
		hashes: make(map[string]string),
	}
}

// Load returns the decoded image at path, decoding it on first use
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.Lock()
	if img, ok := c.images[path]; ok {
		c.touch(path)
		c.mu.Unlock()
		return img, nil
	}
	c.mu.Unlock()

	img, err := DecodeImage(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.images[path]; !ok {
		c.order = append(c.order, path)
	}
	c.images[path] = img
	c.touch(path)
	for len(c.order) > c.limit {
		c.evict(c.order[0])
	}
	return img, nil
}

// Hash returns the sha256 of the file at path
func (c *ImageCache) Hash(path string) (string, error) {
	c.mu.Lock()
	if h, ok := c.hashes[path]; ok {
		c.mu.Unlock()
		return h, nil
	}
	c.mu.Unlock()

	h, err := HashFile(path)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.hashes[path] = h
	c.mu.Unlock()
	return h, nil
}

// Len returns the number of decoded images held
func (c *ImageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.images)
}

func (c *ImageCache) touch(path string) {
	if i := slices.Index(c.order, path); i >= 0 && i < len(c.order)-1 {
		c.order = append(slices.Delete(c.order, i, i+1), path)
	}
}

func (c *ImageCache) evict(path string) {
	delete(c.images, path)
	delete(c.hashes, path)
	if i := slices.Index(c.order, path); i >= 0 {
		c.order = slices.Delete(c.order, i, i+1)
	}
}
