// Package imageio enumerates reference images and decodes them into grayscale
// buffers ready for feature extraction.
package imageio

import (
	"fmt"
	"image"
	"image/draw"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nfnt/resize"

	_ "image/jpeg"
	_ "image/png"
)

// Sample is one reference image on disk.
type Sample struct {
	Label string
	Path  string
}

var sampleExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// ListSamples returns the images directly inside dir, sorted by file name.
// The label of each sample is its file name without the extension.
func ListSamples(dir string) ([]Sample, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("samples path '%s' is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read samples directory '%s': %w", dir, err)
	}

	var samples []Sample
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if !sampleExts[strings.ToLower(ext)] {
			continue
		}
		samples = append(samples, Sample{
			Label: strings.TrimSuffix(e.Name(), ext),
			Path:  filepath.Join(dir, e.Name()),
		})
	}
	sort.Slice(samples, func(i, j int) bool { return filepath.Base(samples[i].Path) < filepath.Base(samples[j].Path) })
	return samples, nil
}

// LoadGray decodes the image at path and converts it to grayscale.
// If maxDim > 0 the image is first scaled down so its longest side is maxDim.
func LoadGray(path string, maxDim int) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return ToGray(Fit(img, maxDim)), nil
}

// Fit scales img down to fit within maxDim x maxDim, keeping the aspect ratio.
// Smaller images and maxDim <= 0 return img unchanged.
func Fit(img image.Image, maxDim int) image.Image {
	if maxDim <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() <= maxDim && b.Dy() <= maxDim {
		return img
	}
	// A zero dimension tells resize to preserve the aspect ratio
	if b.Dx() >= b.Dy() {
		return resize.Resize(uint(maxDim), 0, img, resize.Bilinear)
	}
	return resize.Resize(0, uint(maxDim), img, resize.Bilinear)
}

// ToGray returns img as a tightly packed *image.Gray whose bounds start at the origin.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) && g.Stride == g.Bounds().Dx() {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}
