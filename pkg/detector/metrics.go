package detector

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
)

//FPSCounter counts frames and publishes the count once per window.
type FPSCounter struct {
	mu          sync.Mutex
	clk         clock.Clock
	window      time.Duration
	frames      int
	fps         int
	windowStart time.Time
}

//NewFPSCounter returns a counter reporting frames per window (normally one second).
func NewFPSCounter(clk clock.Clock, window time.Duration) *FPSCounter {
	return &FPSCounter{clk: clk, window: window, windowStart: clk.Now()}
}

//Frame records one processed frame and rolls the window if it has elapsed.
func (f *FPSCounter) Frame() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames++
	now := f.clk.Now()
	if elapsed := now.Sub(f.windowStart); elapsed >= f.window {
		f.fps = int(float64(f.frames) * float64(time.Second) / float64(elapsed))
		f.frames = 0
		f.windowStart = now
	}
}

//FPS returns the rate measured over the last complete window.
func (f *FPSCounter) FPS() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fps
}

//Metrics exports loop figures to Prometheus. A nil *Metrics is valid and records nothing.
type Metrics struct {
	fps        prometheus.Gauge
	processing prometheus.Gauge
	phones     prometheus.Counter
	suspicious prometheus.Counter
	frames     prometheus.Counter
	frameErrs  prometheus.Counter
	duration   prometheus.Histogram
}

//NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		fps: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "phone_ad_detector", Name: "fps", Help: "Frames processed during the last second.",
		}),
		processing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "phone_ad_detector", Name: "processing", Help: "1 while a detection pass runs.",
		}),
		phones: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "phone_ad_detector", Name: "phones_detected_total", Help: "Phones detected over all frames.",
		}),
		suspicious: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "phone_ad_detector", Name: "suspicious_ads_total", Help: "Bands flagged as suspicious over all frames.",
		}),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "phone_ad_detector", Name: "frames_total", Help: "Detection passes completed.",
		}),
		frameErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "phone_ad_detector", Name: "frame_errors_total", Help: "Detection passes that failed and were skipped.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "phone_ad_detector", Name: "pass_duration_seconds", Help: "Duration of one detection pass.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		}),
	}
	for _, c := range []prometheus.Collector{m.fps, m.processing, m.phones, m.suspicious, m.frames, m.frameErrs, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) setProcessing(on bool) {
	if m == nil {
		return
	}
	if on {
		m.processing.Set(1)
	} else {
		m.processing.Set(0)
	}
}

func (m *Metrics) observePass(d time.Duration, phones, suspicious, fps int) {
	if m == nil {
		return
	}
	m.frames.Inc()
	m.duration.Observe(d.Seconds())
	m.phones.Add(float64(phones))
	m.suspicious.Add(float64(suspicious))
	m.fps.Set(float64(fps))
}

func (m *Metrics) frameError() {
	if m == nil {
		return
	}
	m.frameErrs.Inc()
}
