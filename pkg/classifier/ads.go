package classifier

import (
	"context"
	"image"
	"strings"

	"go.uber.org/zap"

	"github.com/chenBenjamin97/phone-ad-detector/pkg/utils"
)

//Category is the tri-state verdict of an ad analysis.
type Category string

const (
	CategorySafe       Category = "safe"
	CategorySuspicious Category = "suspicious"
	CategoryLikelyScam Category = "likely-scam"
)

//Thresholds map a confidence to a Category.
type Thresholds struct {
	Suspicious float64
	LikelyScam float64
}

//DefaultThresholds are 0.3 / 0.55.
func DefaultThresholds() Thresholds {
	return Thresholds{Suspicious: utils.DefaultSuspiciousThreshold, LikelyScam: utils.DefaultLikelyScamThreshold}
}

//Categorize returns the category of confidence c.
func (t Thresholds) Categorize(c float64) Category {
	switch {
	case c >= t.LikelyScam:
		return CategoryLikelyScam
	case c >= t.Suspicious:
		return CategorySuspicious
	default:
		return CategorySafe
	}
}

//AdAnalysisResult is the verdict for one band of a social-media region.
type AdAnalysisResult struct {
	IsSuspicious bool     `json:"isSuspicious"`
	Confidence   float64  `json:"confidence"`
	Category     Category `json:"category"`
	Reasons      []string `json:"reasons"`
	TextLines    []string `json:"textLines,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
}

//NewAdAnalysisResult builds a result from a raw score. The confidence is clamped to [0, 1]
//and the flag and category are both derived from it.
func NewAdAnalysisResult(score float64, t Thresholds, reasons []string) AdAnalysisResult {
	c := utils.Clamp01(score)
	return AdAnalysisResult{
		IsSuspicious: c >= t.Suspicious,
		Confidence:   c,
		Category:     t.Categorize(c),
		Reasons:      reasons,
	}
}

//AdAnalyzer scores a region for ad suspicion. It holds no per-call state and may be shared
//between goroutines as long as its Recognizer may.
type AdAnalyzer struct {
	OCR        Recognizer
	OCREnabled bool
	Keywords   *KeywordSet
	Thresholds Thresholds
	Logger     *zap.SugaredLogger
}

//NewAdAnalyzer returns an analyzer with the default keyword lists and thresholds.
//ocr may be nil, in which case only visual heuristics run.
func NewAdAnalyzer(ocr Recognizer, ocrEnabled bool, logger *zap.SugaredLogger) *AdAnalyzer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &AdAnalyzer{
		OCR:        ocr,
		OCREnabled: ocrEnabled,
		Keywords:   DefaultKeywordSet(),
		Thresholds: DefaultThresholds(),
		Logger:     logger,
	}
}

//Analyze runs OCR keyword scoring (when enabled) and the visual heuristics on img and sums them.
//An OCR failure is logged and the analysis continues with the visual heuristics only.
func (a *AdAnalyzer) Analyze(ctx context.Context, img image.Image) AdAnalysisResult {
	var text TextScore
	var lines []string

	if a.OCREnabled && a.OCR != nil && img != nil {
		raw, err := a.OCR.Recognize(ctx, PrepareForOCR(img))
		if err != nil {
			a.Logger.Warnf("Analyze: OCR failed, continuing with visual heuristics only, got '%v'", err)
		} else {
			lines = splitLines(raw)
			text = a.Keywords.Score(raw)
		}
	}

	visual := ScoreVisual(ComputeColorStats(img), PatternScore(img))

	reasons := make([]string, 0, len(text.Reasons)+len(visual.Reasons))
	reasons = append(reasons, text.Reasons...)
	reasons = append(reasons, visual.Reasons...)

	res := NewAdAnalysisResult(text.Score+visual.Score, a.Thresholds, reasons)
	res.TextLines = lines
	res.Keywords = text.Matches
	return res
}

func splitLines(text string) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
