// Package camera reads frames from a local V4L2/CSI camera through OpenCV.
package camera

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

var ErrEmptyFrame = errors.New("camera returned an empty frame")

type Options struct {
	Device       int
	Width        int
	Height       int
	JPEGQuality  int
	WarmupFrames int
}

// Camera owns one capture device. Grab is safe to call from one goroutine at a time.
type Camera struct {
	mu      sync.Mutex
	capture *gocv.VideoCapture
	frame   gocv.Mat
	quality int
}

func Open(opts Options) (*Camera, error) {
	capture, err := gocv.OpenVideoCapture(opts.Device)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", opts.Device, err)
	}
	if opts.Width > 0 && opts.Height > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(opts.Width))
		capture.Set(gocv.VideoCaptureFrameHeight, float64(opts.Height))
	}
	quality := opts.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = 90
	}

	c := &Camera{capture: capture, frame: gocv.NewMat(), quality: quality}
	for i := 0; i < opts.WarmupFrames; i++ {
		capture.Read(&c.frame)
	}
	return c, nil
}

// Grab reads the next frame and returns it JPEG encoded.
func (c *Camera) Grab() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ok := c.capture.Read(&c.frame); !ok {
		return nil, errors.New("camera read failed (device closed or disconnected)")
	}
	if c.frame.Empty() {
		return nil, ErrEmptyFrame
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, c.frame, []int{gocv.IMWriteJpegQuality, c.quality})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// GetBytes aliases C memory released by Close.
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame.Close()
	return c.capture.Close()
}
