package video

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/chenBenjamin97/phone-ad-detector/pkg/detector"
)

//Camera is a live capture device
type Camera struct {
	mu     sync.Mutex
	cap    *gocv.VideoCapture
	ready  bool
	closed bool
	logger *zap.SugaredLogger
}

//OpenCamera opens given device and asks for the requested resolution. The device may pick another one
func OpenCamera(device, width, height int, logger *zap.SugaredLogger) (*Camera, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	cap, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, errors.Wrapf(ErrMediaAccess, "device %d: %v", device, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, errors.Wrapf(ErrMediaAccess, "device %d is not available", device)
	}

	if width > 0 && height > 0 {
		cap.Set(gocv.VideoCaptureFrameWidth, float64(width))
		cap.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}
	logger.Infof("OpenCamera: device %d opened at %vx%v", device, cap.Get(gocv.VideoCaptureFrameWidth), cap.Get(gocv.VideoCaptureFrameHeight))
	return &Camera{cap: cap, logger: logger}, nil
}

//Ready reports whether the device already knows its frame size
func (c *Camera) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	if !c.ready {
		c.ready = c.cap.Get(gocv.VideoCaptureFrameWidth) > 0 && c.cap.Get(gocv.VideoCaptureFrameHeight) > 0
	}
	return c.ready
}

//Read grabs the next frame, the caller owns it
func (c *Camera) Read() (detector.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, detector.ErrNotRunning
	}

	mat := gocv.NewMat()
	if ok := c.cap.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, ErrEmptyFrame
	}
	return NewFrame(mat), nil
}

//Close stops the capture, it is safe to call more than once
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.logger.Infof("Close: releasing camera")
	return c.cap.Close()
}
