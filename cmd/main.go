package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"github.com/chenBenjamin97/phone-ad-detector/pkg/api"
	"github.com/chenBenjamin97/phone-ad-detector/pkg/classifier"
	"github.com/chenBenjamin97/phone-ad-detector/pkg/classifier/tesseract"
	"github.com/chenBenjamin97/phone-ad-detector/pkg/detector"
	"github.com/chenBenjamin97/phone-ad-detector/pkg/region"
	"github.com/chenBenjamin97/phone-ad-detector/pkg/utils"
	"github.com/chenBenjamin97/phone-ad-detector/pkg/video"
)

func main() {
	configPath := flag.String("config", "", "path to the config file, defaults to ./config.yaml")
	flag.Parse()

	cfg, err := utils.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Error: Could not read config file, got '%v'", err)
	}

	logger, err := utils.NewLogger(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatalf("Error: Could not create logger, got '%v'", err)
	}
	defer logger.Sync()

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	metrics, err := detector.NewMetrics(reg)
	if err != nil {
		logger.Fatalf("Error: Could not register metrics, got '%v'", err)
	}

	renderer := video.NewOverlayRenderer(80)
	manager := detector.NewManager(sessionBuilder(cfg, renderer, metrics, logger), logger.Named("manager"))

	srv := &http.Server{
		Addr:    ":" + cfg.HTTP.Port,
		Handler: api.SetRouter(manager, renderer, reg, logger.Named("api")),
	}
	go func() {
		logger.Infof("main: listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Error: Got '%v'", err)
		}
	}()

	//the status endpoint reports loading progress while the model and camera come up
	go func() {
		if err := manager.Start(context.Background(), cfg.Model.Mode); err != nil && !errors.Is(err, detector.ErrNotRunning) {
			//the server keeps running so the failure is visible and another mode can be chosen
			logger.Errorf("Error: Detector failed to start, got '%v'", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("main: shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warnf("main: HTTP server did not shut down cleanly, got '%v'", err)
	}
	if err := manager.Stop(); err != nil {
		logger.Warnf("main: detector did not stop cleanly, got '%v'", err)
	}
}

//sessionBuilder wires the OpenCV camera and localizer, the Tesseract engine and the config into detector options
func sessionBuilder(cfg *utils.Config, renderer detector.Renderer, metrics *detector.Metrics, logger *zap.SugaredLogger) detector.ControllerBuilder {
	extractor := region.NewExtractor(cfg.Region.SidePadding, cfg.Region.TopPadding, cfg.Region.BandRatios)
	keywords := classifier.NewKeywordSet(cfg.Classifier.Keywords, cfg.Classifier.HighRiskKeywords)
	thresholds := classifier.Thresholds{
		Suspicious: cfg.Classifier.SuspiciousThreshold,
		LikelyScam: cfg.Classifier.LikelyScamThreshold,
	}
	clk := clock.New()

	return func(mode string) (detector.Options, error) {
		sessionLogger := logger.Named("detector")
		opts := detector.Options{
			Mode: mode,
			Localizer: func(ctx context.Context) (detector.Localizer, error) {
				return video.NewLocalizer(video.LocalizerConfig{
					ModelPath:      cfg.Model.Path,
					ConfigPath:     cfg.Model.Config,
					LabelsPath:     cfg.Model.Labels,
					InputSize:      cfg.Model.InputSize,
					ScoreThreshold: cfg.Model.ScoreThreshold,
					Mode:           mode,
				}, sessionLogger.Named("localizer"))
			},
			Source: func(ctx context.Context) (detector.FrameSource, error) {
				return video.OpenCamera(cfg.Camera.Device, cfg.Camera.Width, cfg.Camera.Height, sessionLogger.Named("camera"))
			},
			Renderer:   renderer,
			Extractor:  extractor,
			OCREnabled: cfg.OCR.Enabled,
			Keywords:   keywords,
			Thresholds: thresholds,
			Scheduler:  detector.NewClockScheduler(clk, cfg.Loop.TickInterval),
			Clock:      clk,
			FPSWindow:  cfg.Loop.FPSWindow,
			Metrics:    metrics,
			Logger:     sessionLogger,
		}
		if cfg.OCR.Enabled {
			opts.Recognizer = tesseract.Lazy(cfg.OCR.Language)
		}
		return opts, nil
	}
}
