package imageio

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestListSamples(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "rose.png"), 4, 4)
	writePNG(t, filepath.Join(dir, "anchor.PNG"), 4, 4)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0644)
	os.Mkdir(filepath.Join(dir, "nested.jpg"), 0755)

	samples, err := ListSamples(dir)
	if err != nil {
		t.Fatalf("ListSamples failed: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("Expected 2 samples, got %d: %+v", len(samples), samples)
	}
	if samples[0].Label != "anchor" || samples[1].Label != "rose" {
		t.Errorf("Unexpected labels/order: %q, %q", samples[0].Label, samples[1].Label)
	}
}

func TestListSamplesErrors(t *testing.T) {
	if _, err := ListSamples(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Expected error for missing directory")
	}

	file := filepath.Join(t.TempDir(), "file.png")
	writePNG(t, file, 2, 2)
	if _, err := ListSamples(file); err == nil {
		t.Error("Expected error when path is a file")
	}
}

func TestLoadGray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wide.png")
	writePNG(t, path, 200, 100)

	gray, err := LoadGray(path, 0)
	if err != nil {
		t.Fatalf("LoadGray failed: %v", err)
	}
	if gray.Bounds().Dx() != 200 || gray.Bounds().Dy() != 100 {
		t.Errorf("Expected 200x100, got %v", gray.Bounds())
	}

	scaled, err := LoadGray(path, 50)
	if err != nil {
		t.Fatalf("LoadGray with maxDim failed: %v", err)
	}
	if scaled.Bounds().Dx() != 50 || scaled.Bounds().Dy() != 25 {
		t.Errorf("Expected 50x25 after downscale, got %v", scaled.Bounds())
	}
}

func TestLoadGrayCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jpg")
	os.WriteFile(path, []byte("not an image"), 0644)

	if _, err := LoadGray(path, 0); err == nil {
		t.Error("Expected decode error")
	}
}

func TestToGrayOffsetBounds(t *testing.T) {
	src := image.NewGray(image.Rect(10, 10, 14, 12))
	src.SetGray(10, 10, color.Gray{Y: 99})

	gray := ToGray(src)
	if gray.Bounds().Min != (image.Point{}) {
		t.Errorf("Expected origin bounds, got %v", gray.Bounds())
	}
	if gray.GrayAt(0, 0).Y != 99 {
		t.Errorf("Expected pixel copied to origin, got %d", gray.GrayAt(0, 0).Y)
	}
}

func TestToGrayPacksWideStride(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 6, 4))
	src.SetGray(1, 1, color.Gray{Y: 42})
	sub := src.SubImage(image.Rect(0, 0, 3, 3)).(*image.Gray)

	gray := ToGray(sub)
	if gray.Stride != 3 {
		t.Errorf("Expected stride 3, got %d", gray.Stride)
	}
	if gray.GrayAt(1, 1).Y != 42 {
		t.Errorf("Expected pixel preserved, got %d", gray.GrayAt(1, 1).Y)
	}
}
