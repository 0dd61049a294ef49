package imaging

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ironsheep/color-tracker-mcp/internal/signature"
)

// FrameCache provides thread-safe caching of decoded frames.
//
// Frames are keyed by the exact path string used to load them. Cached frames
// stay in memory until Evict or Clear is called.
type FrameCache struct {
	mu     sync.RWMutex
	frames map[string]*signature.PixelBuffer
}

// NewFrameCache creates an empty frame cache.
func NewFrameCache() *FrameCache {
	return &FrameCache{
		frames: make(map[string]*signature.PixelBuffer),
	}
}

// Load returns the cached frame for path, decoding it from disk on first use.
func (c *FrameCache) Load(path string) (*signature.PixelBuffer, error) {
	c.mu.RLock()
	if f, ok := c.frames[path]; ok {
		c.mu.RUnlock()
		return f, nil
	}
	c.mu.RUnlock()

	f, _, err := DecodeFrame(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.frames[path] = f
	c.mu.Unlock()

	return f, nil
}

// Clear removes all frames from the cache.
func (c *FrameCache) Clear() {
	c.mu.Lock()
	c.frames = make(map[string]*signature.PixelBuffer)
	c.mu.Unlock()
}

// Evict removes a single frame. Unknown paths are ignored.
func (c *FrameCache) Evict(path string) {
	c.mu.Lock()
	delete(c.frames, path)
	c.mu.Unlock()
}

// DecodeFrame reads a PNG, JPEG or GIF file into a new PixelBuffer.
//
// Returns the buffer and the format name reported by the decoder.
func DecodeFrame(path string) (*signature.PixelBuffer, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	return signature.FromImage(img), format, nil
}

// FrameInfo contains metadata about a frame file.
type FrameInfo struct {
	// Width is the frame width in pixels.
	Width int `json:"width"`

	// Height is the frame height in pixels.
	Height int `json:"height"`

	// Format is the decoder's name for the file: "png", "jpeg" or "gif".
	Format string `json:"format"`

	// FileSizeBytes is the size of the file on disk.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadFrameInfo decodes path into the cache and reports its metadata.
func LoadFrameInfo(cache *FrameCache, path string) (*FrameInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	f, format, err := DecodeFrame(path)
	if err != nil {
		return nil, err
	}
	cache.mu.Lock()
	cache.frames[path] = f
	cache.mu.Unlock()

	return &FrameInfo{
		Width:         f.Width,
		Height:        f.Height,
		Format:        format,
		FileSizeBytes: stat.Size(),
	}, nil
}

var frameExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// DirSource replays the image files of a directory as a frame sequence.
type DirSource struct {
	paths []string
	next  int
}

// NewDirSource lists the PNG, JPEG and GIF files in dir, sorted by name.
// Subdirectories are not descended into.
func NewDirSource(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !frameExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no frame images in %s", dir)
	}
	sort.Strings(paths)

	return &DirSource{paths: paths}, nil
}

// Len returns the total number of frames.
func (d *DirSource) Len() int { return len(d.paths) }

// NextFrame decodes the next file. It returns io.EOF after the last one.
func (d *DirSource) NextFrame(ctx context.Context) (*signature.PixelBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.next >= len(d.paths) {
		return nil, io.EOF
	}
	path := d.paths[d.next]
	d.next++

	f, _, err := DecodeFrame(path)
	if err != nil {
		return nil, fmt.Errorf("frame %s: %w", filepath.Base(path), err)
	}
	return f, nil
}
