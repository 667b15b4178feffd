package classifier

import (
	"context"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

//ErrRecognizerClosed is returned by a recognizer used after Close.
var ErrRecognizerClosed = errors.New("text recognizer is closed")

//minOCRHeight is the height below which a region is upscaled before recognition.
const minOCRHeight = 120

//Recognizer extracts text from an image.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
	Close() error
}

//RecognizerFunc adapts a plain function to Recognizer. Close is a no-op.
type RecognizerFunc func(ctx context.Context, img image.Image) (string, error)

//Recognize calls f.
func (f RecognizerFunc) Recognize(ctx context.Context, img image.Image) (string, error) {
	return f(ctx, img)
}

//Close does nothing.
func (f RecognizerFunc) Close() error { return nil }

//LazyRecognizer constructs its engine on first use and releases it on Close.
//A failed construction is remembered and returned on every later call.
type LazyRecognizer struct {
	mu     sync.Mutex
	newFn  func() (Recognizer, error)
	engine Recognizer
	err    error
	closed bool
}

//NewLazyRecognizer returns a LazyRecognizer that builds its engine with newFn.
func NewLazyRecognizer(newFn func() (Recognizer, error)) *LazyRecognizer {
	return &LazyRecognizer{newFn: newFn}
}

//Recognize builds the engine if needed and runs it. Calls are serialized.
func (l *LazyRecognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return "", ErrRecognizerClosed
	}
	if l.engine == nil && l.err == nil {
		l.engine, l.err = l.newFn()
		if l.err != nil {
			l.err = errors.Wrap(l.err, "could not start text recognizer")
		}
	}
	if l.err != nil {
		return "", l.err
	}
	return l.engine.Recognize(ctx, img)
}

//Started reports whether the engine has been constructed.
func (l *LazyRecognizer) Started() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine != nil
}

//Close releases the engine if it was built. It is safe to call more than once.
func (l *LazyRecognizer) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	if l.engine == nil {
		return nil
	}
	err := l.engine.Close()
	l.engine = nil
	return err
}

//PrepareForOCR converts img to grayscale and upscales short regions so small UI text stays legible.
func PrepareForOCR(img image.Image) image.Image {
	gray := imaging.Grayscale(img)
	h := gray.Bounds().Dy()
	if h > 0 && h < minOCRHeight {
		return imaging.Resize(gray, 0, minOCRHeight, imaging.Lanczos)
	}
	return gray
}
