//Package region derives the presumed screen of a detected phone and splits it into
//horizontal bands that are scanned independently for ad content.
package region

import (
	"image"
	"math"

	"github.com/chenBenjamin97/phone-ad-detector/pkg/utils"
)

//Detection is one phone-like object found in a frame. It lives for a single frame only.
type Detection struct {
	Box   image.Rectangle `json:"box"`
	Score float64         `json:"score"`
	Label string          `json:"label"`
}

//BandPosition names a band within a screen region, top to bottom.
type BandPosition int

const (
	BandTop BandPosition = iota
	BandMiddle
	BandBottom
)

func (p BandPosition) String() string {
	switch p {
	case BandTop:
		return "top"
	case BandMiddle:
		return "middle"
	case BandBottom:
		return "bottom"
	default:
		return "unknown"
	}
}

//Band is a horizontal slice of a ScreenRegion. Rect is relative to the detection origin.
type Band struct {
	Position BandPosition
	Rect     image.Rectangle
}

//ScreenRegion is the inset "screen" part of a Detection. Rect and the band rectangles are
//relative to Origin (the detection's top-left corner); use Absolute to get frame coordinates.
type ScreenRegion struct {
	Origin image.Point
	Rect   image.Rectangle
	Bands  [3]Band
}

//Absolute translates a rectangle relative to the detection origin into frame coordinates.
func (s ScreenRegion) Absolute(r image.Rectangle) image.Rectangle {
	return r.Add(s.Origin)
}

//Extractor crops screen regions out of detections.
type Extractor struct {
	SidePadding float64
	TopPadding  float64
	BandRatios  [3]float64
}

//NewExtractor returns an Extractor with the given paddings and band ratios. Invalid ratios
//fall back to 30/40/30.
func NewExtractor(sidePadding, topPadding float64, bandRatios []float64) *Extractor {
	e := &Extractor{SidePadding: sidePadding, TopPadding: topPadding}
	if len(bandRatios) == 3 {
		copy(e.BandRatios[:], bandRatios)
	} else {
		copy(e.BandRatios[:], utils.DefaultBandRatios)
	}
	return e
}

//DefaultExtractor uses the 15%/30% paddings and 30/40/30 bands.
func DefaultExtractor() *Extractor {
	return NewExtractor(utils.DefaultSidePadding, utils.DefaultTopPadding, utils.DefaultBandRatios)
}

//Extract computes the screen region of det inside a frame with the given bounds.
//The detection box is clamped to the frame first, so the returned rectangles never
//leave the frame and never have negative size. ok is false when nothing of the box
//is inside the frame or the inset screen is empty.
func (e *Extractor) Extract(det Detection, frame image.Rectangle) (ScreenRegion, bool) {
	box := ClampBox(det.Box, frame)
	if box.Empty() {
		return ScreenRegion{}, false
	}

	w, h := box.Dx(), box.Dy()
	x := round(float64(w) * e.SidePadding)
	y := round(float64(h) * e.TopPadding)
	sw := round(float64(w) * (1 - 2*e.SidePadding))
	sh := round(float64(h) * (1 - 2*e.TopPadding))

	//rounding may push the inset past the box edge by a pixel
	sw = utils.ClampInt(sw, 0, w-x)
	sh = utils.ClampInt(sh, 0, h-y)
	if sw == 0 || sh == 0 {
		return ScreenRegion{}, false
	}

	screen := ScreenRegion{
		Origin: box.Min,
		Rect:   image.Rect(x, y, x+sw, y+sh),
	}
	screen.Bands = e.SplitBands(screen.Rect)
	return screen, true
}

//SplitBands partitions r into top/middle/bottom bands. The band heights always sum to r's height:
//the bottom band absorbs the rounding remainder.
func (e *Extractor) SplitBands(r image.Rectangle) [3]Band {
	h := r.Dy()
	top := utils.ClampInt(round(float64(h)*e.BandRatios[0]), 0, h)
	mid := utils.ClampInt(round(float64(h)*e.BandRatios[1]), 0, h-top)

	y0 := r.Min.Y
	y1 := y0 + top
	y2 := y1 + mid
	return [3]Band{
		{Position: BandTop, Rect: image.Rect(r.Min.X, y0, r.Max.X, y1)},
		{Position: BandMiddle, Rect: image.Rect(r.Min.X, y1, r.Max.X, y2)},
		{Position: BandBottom, Rect: image.Rect(r.Min.X, y2, r.Max.X, r.Max.Y)},
	}
}

//ClampBox fixes box values in case they are out of the frame's range.
func ClampBox(box, frame image.Rectangle) image.Rectangle {
	box = box.Canon()
	clamped := image.Rectangle{
		Min: image.Pt(utils.ClampInt(box.Min.X, frame.Min.X, frame.Max.X), utils.ClampInt(box.Min.Y, frame.Min.Y, frame.Max.Y)),
		Max: image.Pt(utils.ClampInt(box.Max.X, frame.Min.X, frame.Max.X), utils.ClampInt(box.Max.Y, frame.Min.Y, frame.Max.Y)),
	}
	if clamped.Empty() {
		return image.Rectangle{}
	}
	return clamped
}

func round(v float64) int {
	return int(math.Round(v))
}
