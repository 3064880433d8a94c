package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/anthonynsimon/bild/clone"
	"github.com/disintegration/imaging"
)

// DefaultJPEGQuality is the encoder quality used when a page is saved as JPEG.
const DefaultJPEGQuality = 95

// ImageCache provides thread-safe caching of decoded source pages to avoid
// redundant disk reads.
//
// Cached images are treated as read-only. LoadPage hands out a private
// mutable copy, so compositing one request never corrupts the cached source
// another request will read.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict() or Clear().
// For long-running processes handling many pages, consider periodic cleanup to
// prevent unbounded memory growth.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
	}
}

// Load retrieves an image from the cache or decodes it from disk.
//
// Supported formats are PNG, JPEG, and GIF. The image is cached under the
// exact path string provided.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// LoadPage returns a mutable RGBA copy of the page at path.
//
// The copy's bounds start at (0, 0). It is owned by the caller: the pipeline
// invocation processing this page is its single writer.
func LoadPage(cache *ImageCache, path string) (*image.RGBA, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	return ToPage(img), nil
}

// ToPage converts any image into an origin-based mutable RGBA page.
func ToPage(img image.Image) *image.RGBA {
	page := clone.AsRGBA(img)
	if page.Rect.Min == (image.Point{}) {
		return page
	}
	return NewRegionCanvas(page, page.Rect)
}

// SavePage encodes a page to disk. The format follows the file extension
// (.png, .jpg/.jpeg, .gif, .bmp, .tif/.tiff); JPEG output uses quality.
func SavePage(path string, img image.Image, quality int) error {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if _, err := imaging.FormatFromFilename(path); err != nil {
		return fmt.Errorf("unsupported output format %q: %w", strings.ToLower(filepath.Ext(path)), err)
	}
	if err := imaging.Save(img, path, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}
