package imaging

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// RawImage holds the undecoded bytes of an uploaded handwriting sample.
//
// Format is the decoder name reported by image.DecodeConfig ("png", "jpeg",
// ...). Filename is informational and is forwarded to the OCR service.
type RawImage struct {
	Data     []byte
	Format   string
	Filename string
}

// NewRawImage sniffs the format of data and wraps it as a RawImage.
// An unrecognized format is not an error here; Format is left as "unknown"
// and decoding is attempted later.
func NewRawImage(data []byte, filename string) RawImage {
	format := "unknown"
	if _, f, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		format = f
	}
	return RawImage{Data: data, Format: format, Filename: filename}
}

// ReadRaw reads an image file from disk without decoding its pixels.
func ReadRaw(path string) (RawImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RawImage{}, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return RawImage{}, fmt.Errorf("failed to read image: %s is empty", path)
	}
	return NewRawImage(data, filepath.Base(path)), nil
}

// Decode decodes the raw bytes as stored. EXIF orientation is not applied,
// so pixel coordinates match the word boxes an OCR engine reports for the
// same bytes.
func (r RawImage) Decode() (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(r.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// MimeType returns the MIME type matching Format.
func (r RawImage) MimeType() string {
	switch r.Format {
	case "png":
		return "image/png"
	case "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "bmp":
		return "image/bmp"
	case "tiff":
		return "image/tiff"
	case "webp":
		return "image/webp"
	}
	return "application/octet-stream"
}

// Digest is the hex SHA-256 of the raw bytes. It identifies a sample across
// caches regardless of filename.
func (r RawImage) Digest() string {
	sum := sha256.Sum256(r.Data)
	return hex.EncodeToString(sum[:])
}

// ImageCache provides thread-safe caching of loaded samples to avoid redundant
// disk reads.
//
// The cache keeps both the raw bytes and the decoded image for each path, since
// most tools need the bytes for OCR and the pixels for glyph work. Each lookup
// stats the file; an entry whose size or modification time no longer matches
// is reloaded, so a sample overwritten in place is never served stale.
type ImageCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	raw     RawImage
	size    int64
	modTime time.Time
	decoded image.Image
}

func (e *cacheEntry) matches(fi os.FileInfo) bool {
	return e.size == fi.Size() && e.modTime.Equal(fi.ModTime())
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{entries: make(map[string]*cacheEntry)}
}

// lookup returns the current entry for path, reading the file again when it
// changed since it was cached.
func (c *ImageCache) lookup(path string) (*cacheEntry, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	c.mu.RLock()
	entry, ok := c.entries[path]
	c.mu.RUnlock()
	if ok && entry.matches(fi) {
		return entry, nil
	}

	raw, err := ReadRaw(path)
	if err != nil {
		return nil, err
	}
	entry = &cacheEntry{raw: raw, size: fi.Size(), modTime: fi.ModTime()}

	c.mu.Lock()
	c.entries[path] = entry
	c.mu.Unlock()

	return entry, nil
}

// LoadRaw returns the raw bytes for path, reading from disk on first use or
// after the file changed.
func (c *ImageCache) LoadRaw(path string) (RawImage, error) {
	entry, err := c.lookup(path)
	if err != nil {
		return RawImage{}, err
	}
	return entry.raw, nil
}

// Load retrieves a decoded image from the cache or loads it from disk.
//
// The image is cached using the exact path string provided. Different paths to the
// same file (e.g., relative vs absolute) will result in separate cache entries.
func (c *ImageCache) Load(path string) (image.Image, error) {
	entry, err := c.lookup(path)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	img := entry.decoded
	c.mu.RUnlock()
	if img != nil {
		return img, nil
	}

	img, err = entry.raw.Decode()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	entry.decoded = img
	c.mu.Unlock()

	return img, nil
}

// Clear removes all entries from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()
}

// Evict removes a specific path from the cache. Unknown paths are ignored.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

// ImageInfo contains metadata about a handwriting sample file.
type ImageInfo struct {
	// Width is the stored image width in pixels.
	Width int `json:"width"`

	// Height is the stored image height in pixels.
	Height int `json:"height"`

	// Format is the decoder name detected from the file contents.
	Format string `json:"format"`

	// MimeType is the MIME type matching Format.
	MimeType string `json:"mime_type"`

	// FileSizeBytes is the size of the raw file in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`

	// SHA256 is the hex digest of the raw bytes.
	SHA256 string `json:"sha256"`
}

// LoadImageInfo loads a sample through the cache and reports its metadata.
// Unlike extension based detection, Format reflects the actual file contents.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	raw, err := cache.LoadRaw(path)
	if err != nil {
		return nil, err
	}
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        raw.Format,
		MimeType:      raw.MimeType(),
		FileSizeBytes: int64(len(raw.Data)),
		SHA256:        raw.Digest(),
	}, nil
}
