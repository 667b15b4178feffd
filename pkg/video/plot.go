package video

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/chenBenjamin97/phone-ad-detector/pkg/classifier"
	"github.com/chenBenjamin97/phone-ad-detector/pkg/detector"
)

var (
	phoneColor  = color.RGBA{255, 128, 0, 0}
	screenColor = color.RGBA{255, 255, 102, 0}
	whiteRGB    = color.RGBA{255, 255, 255, 0}
)

//categoryColor returns the BGR plot color of an ad category
func categoryColor(c classifier.Category) color.RGBA {
	switch c {
	case classifier.CategoryLikelyScam:
		return color.RGBA{0, 0, 255, 0}
	case classifier.CategorySuspicious:
		return color.RGBA{0, 165, 255, 0}
	default:
		return color.RGBA{0, 200, 0, 0}
	}
}

//OverlayRenderer draws every view on a copy of the frame and keeps the last result as JPEG
type OverlayRenderer struct {
	mu      sync.Mutex
	quality int
	latest  []byte
}

//NewOverlayRenderer returns a renderer encoding with given JPEG quality
func NewOverlayRenderer(quality int) *OverlayRenderer {
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	return &OverlayRenderer{quality: quality}
}

//Render plots phones, screens and bands on a clone of the frame
func (r *OverlayRenderer) Render(frame detector.Frame, views []detector.PhoneDetectionView) error {
	f, ok := frame.(*Frame)
	if !ok {
		return ErrUnsupportedFrame
	}

	canvas := f.Mat().Clone()
	defer canvas.Close()
	for _, v := range views {
		plotPhoneOnFrame(&canvas, v)
	}

	img, err := canvas.ToImage()
	if err != nil {
		return errors.Wrap(err, "could not convert overlay")
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(r.quality)); err != nil {
		return errors.Wrap(err, "could not encode overlay")
	}

	r.mu.Lock()
	r.latest = buf.Bytes()
	r.mu.Unlock()
	return nil
}

//LatestJPEG returns the last rendered overlay, nil before the first frame
func (r *OverlayRenderer) LatestJPEG() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest
}

//plotPhoneOnFrame plots the phone box with its score, the screen box with the social media
//signal and every analyzed band colored by its category
func plotPhoneOnFrame(frame *gocv.Mat, v detector.PhoneDetectionView) {
	box := v.Detection.Box
	gocv.Rectangle(frame, box, phoneColor, 3)
	plotLabel(frame, box.Min, fmt.Sprintf("%s %.0f%%", v.Detection.Label, v.Detection.Score*100), phoneColor)

	if v.Screen.Empty() {
		return
	}
	gocv.Rectangle(frame, v.Screen, screenColor, 1)
	if v.Social.IsSocialMedia {
		text := fmt.Sprintf("Social %.0f%%", v.Social.Confidence*100)
		if v.Social.Platform != "" {
			text = fmt.Sprintf("%s %.0f%%", v.Social.Platform, v.Social.Confidence*100)
		}
		plotLabel(frame, image.Pt(v.Screen.Min.X, v.Screen.Max.Y+20), text, screenColor)
	}

	for _, b := range v.Bands {
		c := categoryColor(b.Analysis.Category)
		gocv.Rectangle(frame, b.Box, c, 2)
		if b.Analysis.IsSuspicious {
			gocv.PutText(frame, fmt.Sprintf("%s %.0f%%", b.Analysis.Category, b.Analysis.Confidence*100),
				image.Pt(b.Box.Min.X+4, b.Box.Min.Y+14), gocv.FontHersheyPlain, 1, c, 2)
		}
	}
}

//plotLabel writes text above pt on a filled background
func plotLabel(frame *gocv.Mat, pt image.Point, text string, plotColor color.RGBA) {
	size := gocv.GetTextSize(text, gocv.FontHersheyPlain, 1, 2)
	background := image.Rect(pt.X, pt.Y-size.Y-10, pt.X+size.X+6, pt.Y)
	gocv.Rectangle(frame, background, plotColor, -1) //thickness -1 == filled rectangle
	gocv.PutText(frame, text, image.Pt(pt.X+3, pt.Y-5), gocv.FontHersheyPlain, 1, whiteRGB, 2)
}
