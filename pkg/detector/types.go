//Package detector runs the phone/ad detection loop: it owns the frame source and the
//localizer for one session, drives them from a scheduler and publishes per-frame views.
package detector

import (
	"context"
	"image"
	"time"

	"github.com/chenBenjamin97/phone-ad-detector/pkg/classifier"
	"github.com/chenBenjamin97/phone-ad-detector/pkg/region"
)

//Frame is one decoded video frame. It is only valid until Close.
type Frame interface {
	Bounds() image.Rectangle
	//Crop returns the pixels of r (frame coordinates), already clamped to the frame.
	Crop(r image.Rectangle) image.Image
	Close() error
}

//FrameSource yields live frames. Ready is false until decoded frame metadata is available.
type FrameSource interface {
	Ready() bool
	Read() (Frame, error)
	Close() error
}

//Localizer finds phone-like objects in a frame. Timestamps must be strictly increasing.
type Localizer interface {
	Detect(ctx context.Context, frame Frame, ts time.Time) ([]region.Detection, error)
	Close() error
}

//Renderer draws the views of a frame, it runs after classification of that frame is complete.
type Renderer interface {
	Render(frame Frame, views []PhoneDetectionView) error
}

//SourceFactory acquires the frame source (camera).
type SourceFactory func(ctx context.Context) (FrameSource, error)

//LocalizerFactory loads the detection model.
type LocalizerFactory func(ctx context.Context) (Localizer, error)

//BandView is an analyzed band in frame coordinates.
type BandView struct {
	Position string                      `json:"position"`
	Box      image.Rectangle             `json:"box"`
	Analysis classifier.AdAnalysisResult `json:"analysis"`
}

//PhoneDetectionView is everything known about one phone in one frame.
type PhoneDetectionView struct {
	Detection region.Detection             `json:"detection"`
	Screen    image.Rectangle              `json:"screen"`
	Social    classifier.SocialMediaSignal `json:"social"`
	Bands     []BandView                   `json:"bands"`
}

//SuspiciousBands counts the bands flagged as suspicious.
func (v PhoneDetectionView) SuspiciousBands() int {
	n := 0
	for _, b := range v.Bands {
		if b.Analysis.IsSuspicious {
			n++
		}
	}
	return n
}

//Snapshot is what renderers and the summary panel read. Err is set only when
//initialization failed; per-frame errors leave it empty.
type Snapshot struct {
	SessionID       string               `json:"sessionId"`
	Mode            string               `json:"mode"`
	State           string               `json:"state"`
	Status          string               `json:"status"`
	FPS             int                  `json:"fps"`
	Processing      bool                 `json:"processing"`
	FrameSeq        uint64               `json:"frameSeq"`
	Views           []PhoneDetectionView `json:"views"`
	PhonesDetected  int                  `json:"phonesDetected"`
	SuspiciousAds   int                  `json:"suspiciousAds"`
	TotalPhones     uint64               `json:"totalPhones"`
	TotalSuspicious uint64               `json:"totalSuspicious"`
	Err             string               `json:"error,omitempty"`
}
