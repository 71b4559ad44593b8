// Package display shows annotated frames in an OpenCV window.
package display

import (
	"fmt"
	"image"
	"image/color"

	"github.com/andresmejia3/stampscan/internal/gallery"
	"gocv.io/x/gocv"
)

// KeyEsc is the key code that closes the live view.
const KeyEsc = 27

var (
	matchColor   = color.RGBA{G: 255, A: 255}
	noMatchColor = color.RGBA{R: 255, A: 255}
)

// Window is a gocv window that overlays the current match on each frame.
type Window struct {
	w *gocv.Window
}

// NewWindow opens a window with the given title.
func NewWindow(title string) *Window {
	return &Window{w: gocv.NewWindow(title)}
}

// Caption is the overlay text for a match result.
func Caption(res gallery.Result) string {
	if !res.Matched {
		return "no match"
	}
	return fmt.Sprintf("%s (%.1f)", res.Label, res.Score)
}

// Show draws the result onto frame and presents it. It returns false when the
// user pressed Esc or closed the window.
func (w *Window) Show(frame gocv.Mat, res gallery.Result) bool {
	c := noMatchColor
	if res.Matched {
		c = matchColor
	}
	gocv.PutText(&frame, Caption(res), image.Pt(10, 30), gocv.FontHersheySimplex, 0.8, c, 2)
	w.w.IMShow(frame)
	if w.w.WaitKey(1) == KeyEsc {
		return false
	}
	return w.w.IsOpen()
}

func (w *Window) Close() error {
	return w.w.Close()
}
