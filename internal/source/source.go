// Package source provides the live frame feeds the matcher reads from:
// a local camera or anything FFmpeg can decode.
package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/andresmejia3/stampscan/internal/utils"
	"gocv.io/x/gocv"
)

const megabyte = 1024 * 1024

// ErrCameraUnavailable is returned when the capture device cannot be opened.
var ErrCameraUnavailable = errors.New("camera unavailable")

// Frame is one decoded BGR frame. The receiver must Close Image.
type Frame struct {
	Index int
	Image gocv.Mat
}

// Source yields frames until it returns io.EOF.
type Source interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
	String() string
}

// Camera reads frames from a local capture device.
type Camera struct {
	device  int
	capture *gocv.VideoCapture
	index   int
}

// OpenCamera opens the capture device with the given index.
func OpenCamera(device int) (*Camera, error) {
	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %v", ErrCameraUnavailable, device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: device %d", ErrCameraUnavailable, device)
	}
	return &Camera{device: device, capture: capture}, nil
}

// Next captures the next frame. A failed or empty read ends the stream.
func (c *Camera) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	img := gocv.NewMat()
	if ok := c.capture.Read(&img); !ok || img.Empty() {
		img.Close()
		return Frame{}, io.EOF
	}
	c.index++
	return Frame{Index: c.index, Image: img}, nil
}

func (c *Camera) Close() error {
	return c.capture.Close()
}

func (c *Camera) String() string {
	return fmt.Sprintf("camera:%d", c.device)
}

// FFmpeg decodes a video file or stream URL through an ffmpeg subprocess
// emitting MJPEG on stdout.
type FFmpeg struct {
	input   string
	cmd     *utils.SafeCommand
	out     io.ReadCloser
	scanner *bufio.Scanner
	index   int
	waited  bool
}

// OpenFFmpeg starts ffmpeg on input. The process is killed when ctx is cancelled.
func OpenFFmpeg(ctx context.Context, input string) (*FFmpeg, error) {
	cmd := utils.NewFFmpegCmd(ctx, input)

	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create FFmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		out.Close()
		return nil, fmt.Errorf("failed to start FFmpeg: %w", err)
	}

	f := newFFmpegReader(input, out)
	f.cmd = cmd
	return f, nil
}

// newFFmpegReader wraps an MJPEG stream without owning a process.
func newFFmpegReader(input string, out io.ReadCloser) *FFmpeg {
	scanner := bufio.NewScanner(out)
	scanner.Buffer(make([]byte, megabyte), 64*megabyte)
	scanner.Split(utils.SplitJpeg)
	return &FFmpeg{input: input, out: out, scanner: scanner}
}

// Next decodes the next JPEG frame from the stream.
func (f *FFmpeg) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	for f.scanner.Scan() {
		f.index++
		img, err := gocv.IMDecode(f.scanner.Bytes(), gocv.IMReadColor)
		if err != nil || img.Empty() {
			// A corrupt frame is dropped, the stream goes on
			img.Close()
			continue
		}
		return Frame{Index: f.index, Image: img}, nil
	}
	if err := f.scanner.Err(); err != nil {
		return Frame{}, fmt.Errorf("frame scanner failed: %w", err)
	}
	if f.cmd != nil && !f.waited {
		f.waited = true
		if err := f.cmd.Wait(); err != nil {
			return Frame{}, fmt.Errorf("ffmpeg execution failed: %w", err)
		}
	}
	return Frame{}, io.EOF
}

// Close stops the decoder and reaps the process.
func (f *FFmpeg) Close() error {
	f.out.Close()
	if f.cmd == nil || f.waited {
		return nil
	}
	f.waited = true
	if f.cmd.Process != nil {
		f.cmd.Process.Kill()
	}
	// Ensure the process is reaped to prevent zombies; its exit status is meaningless after a kill
	f.cmd.Wait()
	return nil
}

// Cmd exposes the running decoder so callers can dump its stderr on failure.
func (f *FFmpeg) Cmd() *utils.SafeCommand {
	return f.cmd
}

func (f *FFmpeg) String() string {
	return f.input
}
