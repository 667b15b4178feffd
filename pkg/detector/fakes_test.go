package detector

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/chenBenjamin97/phone-ad-detector/pkg/region"
)

//darkBlue is dark enough for the feed rules and saturated enough for the blue bucket.
var darkBlue = color.RGBA{0, 0, 64, 255}

var neutralGray = color.RGBA{128, 128, 128, 255}

type fakeFrame struct {
	img    *image.RGBA
	mu     sync.Mutex
	closed bool
}

func newFakeFrame(w, h int, c color.Color) *fakeFrame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return &fakeFrame{img: img}
}

func (f *fakeFrame) Bounds() image.Rectangle { return f.img.Bounds() }

func (f *fakeFrame) Crop(r image.Rectangle) image.Image {
	return f.img.SubImage(r.Intersect(f.img.Bounds()))
}

func (f *fakeFrame) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakeSource struct {
	mu     sync.Mutex
	ready  bool
	color  color.Color
	reads  int
	closed int
	frames []*fakeFrame
}

func newFakeSource() *fakeSource {
	return &fakeSource{ready: true, color: darkBlue}
}

func (s *fakeSource) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *fakeSource) setReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

func (s *fakeSource) Read() (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	f := newFakeFrame(200, 100, s.color)
	s.frames = append(s.frames, f)
	return f, nil
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *fakeSource) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeLocalizer struct {
	mu      sync.Mutex
	dets    []region.Detection
	failN   int
	calls   int
	stamps  []time.Time
	closed  int
	entered chan struct{}
	release chan struct{}
}

func newFakeLocalizer() *fakeLocalizer {
	return &fakeLocalizer{
		dets: []region.Detection{{Box: image.Rect(0, 0, 200, 100), Score: 0.9, Label: "cell phone"}},
	}
}

func (l *fakeLocalizer) Detect(ctx context.Context, frame Frame, ts time.Time) ([]region.Detection, error) {
	l.mu.Lock()
	l.calls++
	l.stamps = append(l.stamps, ts)
	entered, release := l.entered, l.release
	fail := l.failN > 0
	if fail {
		l.failN--
	}
	dets := append([]region.Detection(nil), l.dets...)
	l.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
		<-release
	}
	if fail {
		return nil, errors.New("inference failed")
	}
	return dets, nil
}

func (l *fakeLocalizer) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed++
	return nil
}

func (l *fakeLocalizer) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func (l *fakeLocalizer) closeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

type fakeRenderer struct {
	mu     sync.Mutex
	frames int
	last   []PhoneDetectionView
}

func (r *fakeRenderer) Render(frame Frame, views []PhoneDetectionView) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames++
	r.last = views
	return nil
}

func (r *fakeRenderer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

type fakeRecognizer struct {
	mu     sync.Mutex
	text   string
	calls  int
	closed int
}

func (r *fakeRecognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.text, nil
}

func (r *fakeRecognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
	return nil
}

func (r *fakeRecognizer) closeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

//manualScheduler holds the pending tick until the test fires it.
type manualScheduler struct {
	mu        sync.Mutex
	next      func()
	scheduled int
}

func (s *manualScheduler) ScheduleNextTick(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = fn
	s.scheduled++
}

func (s *manualScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = nil
}

func (s *manualScheduler) pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next != nil
}

//fire runs the pending tick synchronously and reports whether there was one.
func (s *manualScheduler) fire() bool {
	s.mu.Lock()
	fn := s.next
	s.next = nil
	s.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

type harness struct {
	source     *fakeSource
	localizer  *fakeLocalizer
	renderer   *fakeRenderer
	recognizer *fakeRecognizer
	scheduler  *manualScheduler
	opts       Options
}

func newHarness() *harness {
	h := &harness{
		source:     newFakeSource(),
		localizer:  newFakeLocalizer(),
		renderer:   &fakeRenderer{},
		recognizer: &fakeRecognizer{},
		scheduler:  &manualScheduler{},
	}
	h.opts = Options{
		Mode:       "basic",
		Source:     func(context.Context) (FrameSource, error) { return h.source, nil },
		Localizer:  func(context.Context) (Localizer, error) { return h.localizer, nil },
		Renderer:   h.renderer,
		Recognizer: h.recognizer,
		OCREnabled: true,
		Scheduler:  h.scheduler,
	}
	return h
}
