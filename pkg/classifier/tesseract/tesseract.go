//Package tesseract provides the Tesseract-backed text recognizer.
package tesseract

import (
	"bytes"
	"context"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
	"github.com/pkg/errors"

	"github.com/chenBenjamin97/phone-ad-detector/pkg/classifier"
)

//Recognizer wraps a gosseract client. The client is not safe for concurrent use, so calls are serialized.
type Recognizer struct {
	mu     sync.Mutex
	client *gosseract.Client
}

//New starts a Tesseract client for the given language.
func New(language string) (*Recognizer, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "could not set OCR language '%s'", language)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "could not set page segmentation mode")
	}
	return &Recognizer{client: client}, nil
}

//Lazy returns a recognizer that starts Tesseract on first use.
func Lazy(language string) *classifier.LazyRecognizer {
	return classifier.NewLazyRecognizer(func() (classifier.Recognizer, error) {
		return New(language)
	})
}

//Recognize returns the text found in img.
func (r *Recognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", errors.Wrap(err, "could not encode region for OCR")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return "", classifier.ErrRecognizerClosed
	}
	if err := r.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", errors.Wrap(err, "could not set OCR image")
	}
	text, err := r.client.Text()
	if err != nil {
		return "", errors.Wrap(err, "could not extract text")
	}
	return text, nil
}

//Close releases the Tesseract client.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}
