package detector

import (
	"context"
	"fmt"
	"image"
	"runtime/debug"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chenBenjamin97/phone-ad-detector/pkg/classifier"
	"github.com/chenBenjamin97/phone-ad-detector/pkg/region"
	"github.com/chenBenjamin97/phone-ad-detector/pkg/utils"
)

var (
	//ErrNotRunning is returned when a controller is used after teardown or failure.
	ErrNotRunning = errors.New("detector is not running")
	//ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("detector already started")
)

//Options configure a Controller. Source and Localizer are required.
type Options struct {
	Mode      string
	Source    SourceFactory
	Localizer LocalizerFactory
	Renderer  Renderer

	Extractor *region.Extractor
	//Recognizer is owned by the controller and closed on teardown.
	Recognizer classifier.Recognizer
	OCREnabled bool
	Keywords   *classifier.KeywordSet
	Thresholds classifier.Thresholds

	Scheduler Scheduler
	Clock     clock.Clock
	FPSWindow time.Duration
	Metrics   *Metrics
	Logger    *zap.SugaredLogger
}

//Controller owns one detection session: the localizer, the camera and the OCR engine.
//Frames are processed one at a time; a pass always finishes before the next one is scheduled.
type Controller struct {
	id        string
	opts      Options
	clk       clock.Clock
	scheduler Scheduler
	extractor *region.Extractor
	analyzer  *classifier.AdAnalyzer
	fps       *FPSCounter
	logger    *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc

	//tickMu is held for a whole pass, teardown takes it before releasing resources
	tickMu sync.Mutex

	mu         sync.Mutex
	state      State
	initErr    error
	source     FrameSource
	localizer  Localizer
	processing bool
	seq        uint64
	lastTS     time.Time
	views      []PhoneDetectionView
	phones     int
	suspicious int
	totalPh    uint64
	totalSus   uint64
	listeners  []StateListener

	releaseOnce sync.Once
	releaseErr  error
}

//NewController validates opts and fills the optional parts with defaults.
func NewController(opts Options) (*Controller, error) {
	if opts.Source == nil {
		return nil, errors.New("detector must have a frame source factory")
	}
	if opts.Localizer == nil {
		return nil, errors.New("detector must have a localizer factory")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Scheduler == nil {
		opts.Scheduler = NewClockScheduler(opts.Clock, utils.DefaultTickInterval)
	}
	if opts.FPSWindow <= 0 {
		opts.FPSWindow = utils.DefaultFPSWindow
	}
	if opts.Extractor == nil {
		opts.Extractor = region.DefaultExtractor()
	}
	if opts.Keywords == nil {
		opts.Keywords = classifier.DefaultKeywordSet()
	}
	if opts.Thresholds == (classifier.Thresholds{}) {
		opts.Thresholds = classifier.DefaultThresholds()
	}

	id := uuid.NewString()
	logger := opts.Logger.With("session", id, "mode", opts.Mode)
	ctx, cancel := context.WithCancel(context.Background())

	return &Controller{
		id:        id,
		opts:      opts,
		clk:       opts.Clock,
		scheduler: opts.Scheduler,
		extractor: opts.Extractor,
		analyzer: &classifier.AdAnalyzer{
			OCR:        opts.Recognizer,
			OCREnabled: opts.OCREnabled,
			Keywords:   opts.Keywords,
			Thresholds: opts.Thresholds,
			Logger:     logger.Named("classifier"),
		},
		fps:    NewFPSCounter(opts.Clock, opts.FPSWindow),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		state:  StateUninitialized,
	}, nil
}

//ID returns the session id.
func (c *Controller) ID() string { return c.id }

//Mode returns the localizer mode this session was built for.
func (c *Controller) Mode() string { return c.opts.Mode }

//AddListener registers l for state transitions. Listeners run with the controller
//locked and must not call back into it.
func (c *Controller) AddListener(l StateListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

//State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

//Start loads the model, acquires the camera and schedules the first tick.
//Any failure is terminal: the controller enters StateFailed, releases whatever it
//acquired and returns the error. There is no retry. Stop during Start cancels the
//context the factories see, and whatever they still return is released.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateUninitialized:
	case StateTornDown:
		c.mu.Unlock()
		return ErrNotRunning
	default:
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.transitionLocked(StateLoadingModel)
	c.mu.Unlock()

	//Stop interrupts the factories through the session context
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer context.AfterFunc(c.ctx, cancel)()

	loc, err := c.opts.Localizer(ctx)
	if err != nil {
		return c.fail(errors.Wrap(err, "could not load detector"))
	}
	if !c.adopt(func() { c.localizer = loc }, StateAcquiringCamera) {
		c.logger.Infof("Start: torn down while loading model, releasing it")
		return multierr.Append(ErrNotRunning, loc.Close())
	}

	src, err := c.opts.Source(ctx)
	if err != nil {
		return c.fail(errors.Wrap(err, "could not start camera"))
	}
	if !c.adopt(func() { c.source = src }, StateReady) {
		c.logger.Infof("Start: torn down while starting camera, releasing it")
		return multierr.Append(ErrNotRunning, src.Close())
	}

	c.mu.Lock()
	if c.state.running() {
		c.scheduler.ScheduleNextTick(c.tick)
	}
	c.mu.Unlock()
	return nil
}

//adopt stores a freshly acquired resource and moves to next, unless teardown already began.
func (c *Controller) adopt(store func(), next State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateTornDown {
		return false
	}
	store()
	c.transitionLocked(next)
	return true
}

func (c *Controller) fail(err error) error {
	c.mu.Lock()
	if c.state == StateTornDown {
		c.mu.Unlock()
		return err
	}
	c.initErr = err
	c.transitionLocked(StateFailed)
	c.scheduler.Cancel()
	c.mu.Unlock()

	c.logger.Errorf("Start: Failed to initialize, got '%v'", err)
	if rerr := c.release(); rerr != nil {
		c.logger.Warnf("Start: could not release resources after failure, got '%v'", rerr)
	}
	return err
}

//Stop cancels the next tick, waits for an in-flight pass to finish and releases the
//camera, the model and the OCR engine. Results of the in-flight pass are discarded.
//Stop is idempotent.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.state != StateFailed && c.state != StateTornDown {
		c.transitionLocked(StateTornDown)
	}
	c.processing = false
	c.scheduler.Cancel()
	c.cancel()
	c.mu.Unlock()

	c.tickMu.Lock()
	defer c.tickMu.Unlock()
	return c.release()
}

func (c *Controller) release() error {
	c.releaseOnce.Do(func() {
		c.mu.Lock()
		src, loc := c.source, c.localizer
		c.source, c.localizer = nil, nil
		c.mu.Unlock()

		var err error
		if src != nil {
			err = multierr.Append(err, errors.Wrap(src.Close(), "could not release camera"))
		}
		if loc != nil {
			err = multierr.Append(err, errors.Wrap(loc.Close(), "could not release detector"))
		}
		if c.opts.Recognizer != nil {
			err = multierr.Append(err, errors.Wrap(c.opts.Recognizer.Close(), "could not release text recognizer"))
		}
		c.releaseErr = err
		c.opts.Metrics.setProcessing(false)
		c.logger.Infof("release: session resources released")
	})
	return c.releaseErr
}

func (c *Controller) transitionLocked(next State) {
	prev := c.state
	if prev == next {
		return
	}
	c.state = next
	if next != StateDetecting && next != StateIdle {
		c.logger.Infof("transition: %s -> %s", prev, next)
	}
	for _, l := range c.listeners {
		l(prev, next)
	}
}

func (c *Controller) tick() {
	c.tickMu.Lock()
	defer c.tickMu.Unlock()

	src, loc, ok := c.beginPass()
	if !ok {
		return
	}

	started := c.clk.Now()
	frame, views, err := c.runPass(src, loc)
	if frame != nil {
		defer frame.Close()
	}

	if !c.State().running() {
		c.logger.Debugf("tick: discarding frame finished after teardown")
		return
	}

	//teardown waits on tickMu, so the frame and the renderer stay valid without c.mu
	if err == nil && frame != nil && c.opts.Renderer != nil {
		if rerr := c.opts.Renderer.Render(frame, views); rerr != nil {
			c.logger.Warnf("tick: could not render frame, got '%v'", rerr)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.running() {
		c.logger.Debugf("tick: discarding frame finished after teardown")
		return
	}
	c.publishLocked(views, err, c.clk.Now().Sub(started))
	c.transitionLocked(StateIdle)
	c.scheduler.ScheduleNextTick(c.tick)
}

func (c *Controller) beginPass() (FrameSource, Localizer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.running() {
		return nil, nil, false
	}
	if !c.source.Ready() {
		c.scheduler.ScheduleNextTick(c.tick)
		return nil, nil, false
	}
	c.transitionLocked(StateDetecting)
	c.processing = true
	c.opts.Metrics.setProcessing(true)

	ts := c.clk.Now()
	if !ts.After(c.lastTS) {
		ts = c.lastTS.Add(time.Millisecond)
	}
	c.lastTS = ts
	return c.source, c.localizer, true
}

//runPass reads one frame, localizes phones and classifies every phone concurrently.
//Errors are per frame: the caller publishes an empty result and keeps the loop going.
func (c *Controller) runPass(src FrameSource, loc Localizer) (Frame, []PhoneDetectionView, error) {
	c.mu.Lock()
	ts := c.lastTS
	c.mu.Unlock()

	frame, err := src.Read()
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not read frame")
	}

	dets, err := loc.Detect(c.ctx, frame, ts)
	if err != nil {
		return frame, nil, errors.Wrap(err, "could not detect phones")
	}

	bounds := frame.Bounds()
	views := make([]PhoneDetectionView, len(dets))
	var g errgroup.Group
	for i, det := range dets {
		g.Go(func() error {
			views[i] = c.analyzePhone(frame, det, bounds)
			return nil
		})
	}
	_ = g.Wait()
	return frame, views, nil
}

func (c *Controller) analyzePhone(frame Frame, det region.Detection, bounds image.Rectangle) PhoneDetectionView {
	view := PhoneDetectionView{Detection: det, Bands: []BandView{}}
	screen, ok := c.extractor.Extract(det, bounds)
	if !ok {
		return view
	}
	view.Screen = screen.Absolute(screen.Rect)
	view.Social = c.socialSignal(frame.Crop(view.Screen))
	if !view.Social.IsSocialMedia {
		return view
	}

	bands := make([]BandView, len(screen.Bands))
	var g errgroup.Group
	for i, b := range screen.Bands {
		bands[i] = BandView{Position: b.Position.String(), Box: screen.Absolute(b.Rect)}
		if bands[i].Box.Empty() {
			continue
		}
		g.Go(func() error {
			bands[i].Analysis = c.analyzeBand(frame.Crop(bands[i].Box))
			return nil
		})
	}
	_ = g.Wait()

	for _, b := range bands {
		if !b.Box.Empty() {
			view.Bands = append(view.Bands, b)
		}
	}
	return view
}

func (c *Controller) socialSignal(img image.Image) (sig classifier.SocialMediaSignal) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warnf("socialSignal: classifier panic, treating region as no signal, got '%v'\n%s", r, debug.Stack())
			sig = classifier.SocialMediaSignal{}
		}
	}()
	return classifier.DetectSocialMedia(img)
}

func (c *Controller) analyzeBand(img image.Image) (res classifier.AdAnalysisResult) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warnf("analyzeBand: classifier panic, treating band as no signal, got '%v'\n%s", r, debug.Stack())
			res = classifier.NewAdAnalysisResult(0, c.opts.Thresholds, nil)
		}
	}()
	return c.analyzer.Analyze(c.ctx, img)
}

func (c *Controller) publishLocked(views []PhoneDetectionView, err error, took time.Duration) {
	if views == nil {
		views = []PhoneDetectionView{}
	}
	if err != nil {
		c.logger.Warnf("tick: frame skipped, got '%v'", err)
		c.opts.Metrics.frameError()
	}

	suspicious := 0
	for _, v := range views {
		suspicious += v.SuspiciousBands()
	}

	c.seq++
	c.views = views
	c.phones = len(views)
	c.suspicious = suspicious
	c.totalPh += uint64(len(views))
	c.totalSus += uint64(suspicious)
	c.processing = false
	c.fps.Frame()
	c.opts.Metrics.setProcessing(false)
	c.opts.Metrics.observePass(took, len(views), suspicious, c.fps.FPS())
}

//Snapshot returns the latest published frame result together with loop state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		SessionID:       c.id,
		Mode:            c.opts.Mode,
		State:           c.state.String(),
		Status:          c.state.Status(),
		FPS:             c.fps.FPS(),
		Processing:      c.processing,
		FrameSeq:        c.seq,
		Views:           c.views,
		PhonesDetected:  c.phones,
		SuspiciousAds:   c.suspicious,
		TotalPhones:     c.totalPh,
		TotalSuspicious: c.totalSus,
	}
	if s.Views == nil {
		s.Views = []PhoneDetectionView{}
	}
	//per-frame errors only reach the logs and metrics
	if c.state == StateFailed && c.initErr != nil {
		s.Status = fmt.Sprintf("%s: %v", s.Status, c.initErr)
		s.Err = c.initErr.Error()
	}
	return s
}
