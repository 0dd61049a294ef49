package imaging

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// writeFrame writes a solid PNG frame into dir and returns its path.
func writeFrame(t *testing.T, dir, name string, width, height int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create frame file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode frame: %v", err)
	}
	return path
}

func TestFrameCache_Load(t *testing.T) {
	path := writeFrame(t, t.TempDir(), "frame.png", 40, 30, color.RGBA{255, 0, 0, 255})
	cache := NewFrameCache()

	f1, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if f1.Width != 40 || f1.Height != 30 {
		t.Errorf("size: got %dx%d, want 40x30", f1.Width, f1.Height)
	}
	if f1.Pix[0] != 255 || f1.Pix[1] != 0 || f1.Pix[3] != 255 {
		t.Errorf("first pixel: got %v, want opaque red", f1.Pix[:4])
	}

	f2, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if f1 != f2 {
		t.Error("second Load should return the cached frame")
	}
}

func TestFrameCache_LoadErrors(t *testing.T) {
	cache := NewFrameCache()
	if _, err := cache.Load("/nonexistent/frame.png"); err == nil {
		t.Error("Load should fail for a missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Load(bad); err == nil {
		t.Error("Load should fail for an undecodable file")
	}
}

func TestFrameCache_EvictAndClear(t *testing.T) {
	dir := t.TempDir()
	p1 := writeFrame(t, dir, "a.png", 4, 4, color.RGBA{0, 255, 0, 255})
	p2 := writeFrame(t, dir, "b.png", 4, 4, color.RGBA{0, 0, 255, 255})
	cache := NewFrameCache()

	first, _ := cache.Load(p1)
	if _, err := cache.Load(p2); err != nil {
		t.Fatal(err)
	}

	cache.Evict(p1)
	cache.Evict("/never/loaded.png")
	again, err := cache.Load(p1)
	if err != nil {
		t.Fatal(err)
	}
	if again == first {
		t.Error("Evict should force a reload")
	}

	cache.Clear()
	cache.mu.RLock()
	n := len(cache.frames)
	cache.mu.RUnlock()
	if n != 0 {
		t.Errorf("Clear left %d frames", n)
	}
}

func TestFrameCache_ConcurrentAccess(t *testing.T) {
	path := writeFrame(t, t.TempDir(), "frame.png", 16, 16, color.RGBA{10, 20, 30, 255})
	cache := NewFrameCache()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(path); err != nil {
				t.Errorf("Load failed: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestLoadFrameInfo(t *testing.T) {
	path := writeFrame(t, t.TempDir(), "info.png", 64, 48, color.RGBA{1, 2, 3, 255})
	cache := NewFrameCache()

	info, err := LoadFrameInfo(cache, path)
	if err != nil {
		t.Fatalf("LoadFrameInfo failed: %v", err)
	}
	if info.Width != 64 || info.Height != 48 {
		t.Errorf("size: got %dx%d", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("Format: got %q, want png", info.Format)
	}
	if info.FileSizeBytes <= 0 {
		t.Errorf("FileSizeBytes: got %d", info.FileSizeBytes)
	}

	if _, err := LoadFrameInfo(cache, "/nonexistent.png"); err == nil {
		t.Error("LoadFrameInfo should fail for a missing file")
	}
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "002.png", 8, 8, color.RGBA{0, 255, 0, 255})
	writeFrame(t, dir, "001.png", 8, 8, color.RGBA{255, 0, 0, 255})
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.png"), 0o755); err != nil {
		t.Fatal(err)
	}

	src, err := NewDirSource(dir)
	if err != nil {
		t.Fatalf("NewDirSource failed: %v", err)
	}
	if src.Len() != 2 {
		t.Fatalf("Len: got %d, want 2", src.Len())
	}

	ctx := context.Background()
	first, err := src.NextFrame(ctx)
	if err != nil {
		t.Fatalf("NextFrame failed: %v", err)
	}
	if first.Pix[0] != 255 {
		t.Error("frames should be replayed in name order")
	}
	if _, err := src.NextFrame(ctx); err != nil {
		t.Fatalf("NextFrame failed: %v", err)
	}
	if _, err := src.NextFrame(ctx); !errors.Is(err, io.EOF) {
		t.Errorf("got %v, want io.EOF", err)
	}
}

func TestDirSource_Errors(t *testing.T) {
	if _, err := NewDirSource(t.TempDir()); err == nil {
		t.Error("NewDirSource should fail for a directory without frames")
	}
	if _, err := NewDirSource("/nonexistent/dir"); err == nil {
		t.Error("NewDirSource should fail for a missing directory")
	}

	dir := t.TempDir()
	writeFrame(t, dir, "a.png", 4, 4, color.RGBA{0, 0, 0, 255})
	src, err := NewDirSource(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.NextFrame(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}
