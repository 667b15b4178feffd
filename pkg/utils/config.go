package utils

import (
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

//Config is the typed view of the configuration file, see SetDefaults for the recognized keys
type Config struct {
	HTTP struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"http"`

	Log struct {
		Level       string `mapstructure:"level"`
		Development bool   `mapstructure:"development"`
	} `mapstructure:"log"`

	Camera struct {
		Device int `mapstructure:"device"`
		Width  int `mapstructure:"width"`
		Height int `mapstructure:"height"`
	} `mapstructure:"camera"`

	Model struct {
		Path           string  `mapstructure:"path"`
		Config         string  `mapstructure:"config"`
		Labels         string  `mapstructure:"labels"`
		InputSize      int     `mapstructure:"input_size"`
		ScoreThreshold float64 `mapstructure:"score_threshold"`
		Mode           string  `mapstructure:"mode"`
	} `mapstructure:"model"`

	OCR struct {
		Enabled  bool   `mapstructure:"enabled"`
		Language string `mapstructure:"language"`
	} `mapstructure:"ocr"`

	Region struct {
		SidePadding float64   `mapstructure:"side_padding"`
		TopPadding  float64   `mapstructure:"top_padding"`
		BandRatios  []float64 `mapstructure:"band_ratios"`
	} `mapstructure:"region"`

	Classifier struct {
		SuspiciousThreshold float64  `mapstructure:"suspicious_threshold"`
		LikelyScamThreshold float64  `mapstructure:"likely_scam_threshold"`
		Keywords            []string `mapstructure:"keywords"`
		HighRiskKeywords    []string `mapstructure:"high_risk_keywords"`
	} `mapstructure:"classifier"`

	Loop struct {
		TickInterval time.Duration `mapstructure:"tick_interval"`
		FPSWindow    time.Duration `mapstructure:"fps_window"`
	} `mapstructure:"loop"`
}

//SetDefaults registers a default value for every recognized key on given viper instance
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("camera.device", 0)
	v.SetDefault("camera.width", 1280)
	v.SetDefault("camera.height", 720)
	v.SetDefault("model.path", "./models/ssd_mobilenet_v2_coco.pb")
	v.SetDefault("model.config", "./models/ssd_mobilenet_v2_coco.pbtxt")
	v.SetDefault("model.labels", "./models/coco_labels.txt")
	v.SetDefault("model.input_size", 300)
	v.SetDefault("model.score_threshold", DefaultScoreThreshold)
	v.SetDefault("model.mode", ModeAccelerated)
	v.SetDefault("ocr.enabled", true)
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("region.side_padding", DefaultSidePadding)
	v.SetDefault("region.top_padding", DefaultTopPadding)
	v.SetDefault("region.band_ratios", DefaultBandRatios)
	v.SetDefault("classifier.suspicious_threshold", DefaultSuspiciousThreshold)
	v.SetDefault("classifier.likely_scam_threshold", DefaultLikelyScamThreshold)
	v.SetDefault("loop.tick_interval", DefaultTickInterval)
	v.SetDefault("loop.fps_window", DefaultFPSWindow)
}

//LoadConfig reads the configuration file (if any) and environment overrides prefixed with PAD_.
//A missing configuration file is not an error, defaults are used instead.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("PAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrapf(err, "LoadConfig: could not read config '%s'", path)
		}
	}

	return DecodeConfig(v)
}

//DecodeConfig decodes given viper instance into a validated Config
func DecodeConfig(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "DecodeConfig: could not decode configuration")
	}

	cfg.Validate()
	return cfg, nil
}

//Validate replaces out of range values with their defaults and normalizes band ratios to sum to 1
func (c *Config) Validate() {
	if c.HTTP.Port == "" {
		c.HTTP.Port = "8080"
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		c.Camera.Width, c.Camera.Height = 1280, 720
	}
	if c.Model.InputSize <= 0 {
		c.Model.InputSize = 300
	}
	if c.Model.ScoreThreshold <= 0 || c.Model.ScoreThreshold >= 1 {
		c.Model.ScoreThreshold = DefaultScoreThreshold
	}
	if c.Model.Mode != ModeAccelerated && c.Model.Mode != ModeBasic {
		c.Model.Mode = ModeAccelerated
	}
	if c.OCR.Language == "" {
		c.OCR.Language = "eng"
	}
	if c.Region.SidePadding < 0 || c.Region.SidePadding >= 0.5 {
		c.Region.SidePadding = DefaultSidePadding
	}
	if c.Region.TopPadding < 0 || c.Region.TopPadding >= 0.5 {
		c.Region.TopPadding = DefaultTopPadding
	}
	c.Region.BandRatios = normalizeBandRatios(c.Region.BandRatios)
	if c.Classifier.SuspiciousThreshold <= 0 || c.Classifier.SuspiciousThreshold >= 1 {
		c.Classifier.SuspiciousThreshold = DefaultSuspiciousThreshold
	}
	if c.Classifier.LikelyScamThreshold <= c.Classifier.SuspiciousThreshold || c.Classifier.LikelyScamThreshold > 1 {
		c.Classifier.LikelyScamThreshold = DefaultLikelyScamThreshold
		if c.Classifier.LikelyScamThreshold <= c.Classifier.SuspiciousThreshold {
			c.Classifier.SuspiciousThreshold = DefaultSuspiciousThreshold
		}
	}
	if c.Loop.TickInterval <= 0 {
		c.Loop.TickInterval = DefaultTickInterval
	}
	if c.Loop.FPSWindow <= 0 {
		c.Loop.FPSWindow = DefaultFPSWindow
	}
}

func normalizeBandRatios(ratios []float64) []float64 {
	if len(ratios) != 3 {
		return append([]float64(nil), DefaultBandRatios...)
	}

	sum := 0.0
	for _, r := range ratios {
		if r <= 0 {
			return append([]float64(nil), DefaultBandRatios...)
		}
		sum += r
	}
	if math.Abs(sum-1) < 1e-9 {
		return ratios
	}

	out := make([]float64, 3)
	for i, r := range ratios {
		out[i] = r / sum
	}
	return out
}
