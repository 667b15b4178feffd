//Package video holds the OpenCV side of the detector: camera capture, the DNN phone
//localizer and the overlay renderer.
package video

import (
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

var (
	//ErrMediaAccess is returned when the camera cannot be opened (missing device or no permission)
	ErrMediaAccess = errors.New("could not access camera")
	//ErrEmptyFrame is returned when the camera produced no pixels for a read
	ErrEmptyFrame = errors.New("camera returned an empty frame")
	//ErrFrameClosed is returned when a frame is used after Close
	ErrFrameClosed = errors.New("frame already closed")
)

//Frame is a captured BGR frame. The Go image is decoded once, on first use, and shared by all crops
type Frame struct {
	mu     sync.Mutex
	mat    gocv.Mat
	closed bool

	once sync.Once
	img  image.Image
	err  error
}

//NewFrame takes ownership of mat
func NewFrame(mat gocv.Mat) *Frame {
	return &Frame{mat: mat}
}

//Bounds returns the frame rectangle, always anchored at (0,0)
func (f *Frame) Bounds() image.Rectangle {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return image.Rectangle{}
	}
	return image.Rect(0, 0, f.mat.Cols(), f.mat.Rows())
}

//Mat exposes the underlying matrix for OpenCV calls, it is only valid until Close
func (f *Frame) Mat() *gocv.Mat {
	return &f.mat
}

//Image returns the frame as a Go image
func (f *Frame) Image() (image.Image, error) {
	f.once.Do(func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.closed {
			f.err = ErrFrameClosed
			return
		}
		f.img, f.err = f.mat.ToImage()
		if f.err != nil {
			f.err = errors.Wrap(f.err, "could not convert frame")
		}
	})
	return f.img, f.err
}

//Crop returns a copy of r (frame coordinates), or nil if the frame cannot be decoded
func (f *Frame) Crop(r image.Rectangle) image.Image {
	img, err := f.Image()
	if err != nil {
		return nil
	}
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return nil
	}
	return imaging.Crop(img, r)
}

//Close releases the matrix, it is safe to call more than once
func (f *Frame) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.mat.Close()
}
