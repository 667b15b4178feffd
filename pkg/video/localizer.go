package video

import (
	"context"
	"image"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/chenBenjamin97/phone-ad-detector/pkg/detector"
	"github.com/chenBenjamin97/phone-ad-detector/pkg/region"
	"github.com/chenBenjamin97/phone-ad-detector/pkg/utils"
)

var (
	//ErrModelLoad is returned when the network or its labels could not be read
	ErrModelLoad = errors.New("could not load detection model")
	//ErrBackendUnavailable is returned when accelerated mode cannot run inference on the GPU
	ErrBackendUnavailable = errors.New("accelerated backend unavailable")
	//ErrNonMonotonicTimestamp is returned when a frame timestamp does not increase
	ErrNonMonotonicTimestamp = errors.New("frame timestamp is not increasing")
	//ErrUnsupportedFrame is returned for frames that were not captured by this package
	ErrUnsupportedFrame = errors.New("frame has no OpenCV matrix")
)

//LocalizerConfig describes the SSD network to load
type LocalizerConfig struct {
	ModelPath      string
	ConfigPath     string
	LabelsPath     string
	InputSize      int
	ScoreThreshold float64
	Mode           string
}

//Localizer runs an SSD style detection network and keeps only phones
type Localizer struct {
	mu        sync.Mutex
	net       gocv.Net
	labels    []string
	inputSize int
	filter    region.Filter
	lastTS    time.Time
	closed    bool
	logger    *zap.SugaredLogger
}

//NewLocalizer loads the network for given mode. Accelerated mode runs one warm-up inference and
//fails with ErrBackendUnavailable if the GPU backend does not produce output; it never falls back to CPU.
func NewLocalizer(cfg LocalizerConfig, logger *zap.SugaredLogger) (l *Localizer, err error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if cfg.InputSize <= 0 {
		cfg.InputSize = 300
	}

	labels, err := readLabels(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNet(cfg.ModelPath, cfg.ConfigPath)
	if net.Empty() {
		return nil, errors.Wrapf(ErrModelLoad, "model '%s'", cfg.ModelPath)
	}
	defer func() {
		if err != nil {
			net.Close()
		}
	}()

	switch cfg.Mode {
	case utils.ModeAccelerated:
		net.SetPreferableBackend(gocv.NetBackendCUDA)
		net.SetPreferableTarget(gocv.NetTargetCUDA)
		if err := warmUp(&net, cfg.InputSize); err != nil {
			return nil, err
		}
	case utils.ModeBasic:
		net.SetPreferableBackend(gocv.NetBackendDefault)
		net.SetPreferableTarget(gocv.NetTargetCPU)
	default:
		return nil, errors.Wrapf(detector.ErrUnknownMode, "mode %q", cfg.Mode)
	}

	logger.Infof("NewLocalizer: loaded '%s' (%d labels) in %s mode", cfg.ModelPath, len(labels), cfg.Mode)
	return &Localizer{
		net:       net,
		labels:    labels,
		inputSize: cfg.InputSize,
		filter:    region.PhoneFilter(cfg.ScoreThreshold),
		logger:    logger,
	}, nil
}

//warmUp runs one inference on a blank image so backend problems surface at load time
func warmUp(net *gocv.Net, size int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(ErrBackendUnavailable, "warm-up panicked: %v", r)
		}
	}()

	blank := gocv.NewMatWithSize(size, size, gocv.MatTypeCV8UC3)
	defer blank.Close()
	blob := gocv.BlobFromImage(blank, 1.0/127.5, image.Pt(size, size), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	net.SetInput(blob, "")
	out := net.Forward("")
	defer out.Close()
	if out.Empty() {
		return errors.Wrap(ErrBackendUnavailable, "warm-up inference produced no output")
	}
	return nil
}

func readLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(ErrModelLoad, "labels: %v", err)
	}
	return region.ParseLabels(string(data)), nil
}

//Detect returns the phones found in frame. ts must be strictly greater than the previous call's
func (l *Localizer) Detect(ctx context.Context, frame detector.Frame, ts time.Time) ([]region.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, ok := frame.(*Frame)
	if !ok {
		return nil, ErrUnsupportedFrame
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, detector.ErrNotRunning
	}
	if !ts.After(l.lastTS) {
		return nil, errors.Wrapf(ErrNonMonotonicTimestamp, "%v after %v", ts, l.lastTS)
	}
	l.lastTS = ts

	bounds := f.Bounds()
	if bounds.Empty() {
		return nil, ErrEmptyFrame
	}

	blob := gocv.BlobFromImage(*f.Mat(), 1.0/127.5, image.Pt(l.inputSize, l.inputSize), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()
	l.net.SetInput(blob, "")
	out := l.net.Forward("")
	defer out.Close()

	results := gocv.GetBlobChannel(out, 0, 0)
	defer results.Close()
	return l.filter(region.DecodeSSD(blobRows(results), bounds, l.labels)), nil
}

//blobRows copies the detection matrix into plain rows
func blobRows(m gocv.Mat) [][]float32 {
	rows := make([][]float32, m.Rows())
	for r := range rows {
		row := make([]float32, m.Cols())
		for c := range row {
			row[c] = m.GetFloatAt(r, c)
		}
		rows[r] = row
	}
	return rows
}

//Close releases the network, it is safe to call more than once
func (l *Localizer) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.net.Close()
}
