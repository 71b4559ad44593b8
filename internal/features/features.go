// Package features extracts ORB descriptors from grayscale images.
package features

import (
	"errors"
	"fmt"
	"image"

	"github.com/andresmejia3/stampscan/internal/descriptor"
	"gocv.io/x/gocv"
)

// ErrInvalidImage is returned for empty or non-grayscale input.
var ErrInvalidImage = errors.New("invalid input image")

// Extract converts img to an OpenCV matrix and runs ExtractMat on it.
func Extract(img *image.Gray) (descriptor.Set, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	mat, err := gocv.ImageGrayToMatGray(packGray(img))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	defer mat.Close()

	return ExtractMat(mat)
}

// packGray returns img with its bounds at the origin and rows stored back to back,
// the layout ImageGrayToMatGray reads Pix in. Sub-images are copied.
func packGray(img *image.Gray) *image.Gray {
	b := img.Bounds()
	if b.Min == (image.Point{}) && img.Stride == b.Dx() {
		return img
	}
	packed := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(packed.Pix[y*packed.Stride:(y+1)*packed.Stride], img.Pix[src:src+b.Dx()])
	}
	return packed
}

// ExtractMat detects ORB keypoints on a single-channel 8-bit matrix and returns
// their descriptors. Finding no keypoints is not an error.
//
// A new detector is created per call so independent images can be processed
// from several goroutines at once.
func ExtractMat(mat gocv.Mat) (descriptor.Set, error) {
	if mat.Empty() || mat.Rows() == 0 || mat.Cols() == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	if mat.Channels() != 1 || mat.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("%w: expected 8-bit grayscale, got %d channels (type %v)", ErrInvalidImage, mat.Channels(), mat.Type())
	}

	orb := gocv.NewORB()
	defer orb.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	_, desc := orb.DetectAndCompute(mat, mask)
	defer desc.Close()

	if desc.Empty() || desc.Rows() == 0 {
		return descriptor.Set{}, nil
	}
	return descriptor.FromBytes(desc.ToBytes(), desc.Cols())
}

// ToGray converts a 3-channel BGR frame into a new grayscale matrix.
// Frames that are already single-channel are cloned. The caller owns the result.
func ToGray(frame gocv.Mat) (gocv.Mat, error) {
	if frame.Empty() {
		return gocv.NewMat(), fmt.Errorf("%w: empty frame", ErrInvalidImage)
	}
	if frame.Channels() == 1 {
		return frame.Clone(), nil
	}
	gray := gocv.NewMat()
	code := gocv.ColorBGRToGray
	if frame.Channels() == 4 {
		code = gocv.ColorBGRAToGray
	}
	gocv.CvtColor(frame, &gray, code)
	return gray, nil
}
