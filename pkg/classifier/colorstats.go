//Package classifier holds the pure per-region heuristics: color statistics, the social-media
//signal and the ad-suspicion analysis.
package classifier

import (
	"image"
	"math"
	"sort"

	colorful "github.com/lucasb-eyer/go-colorful"
)

//Hue bucket names.
const (
	ColorRed    = "red"
	ColorOrange = "orange"
	ColorYellow = "yellow"
	ColorGreen  = "green"
	ColorBlue   = "blue"
	ColorPurple = "purple"
)

var bucketOrder = []string{ColorRed, ColorOrange, ColorYellow, ColorGreen, ColorBlue, ColorPurple}

const (
	//maxSamples bounds the number of pixels visited per region.
	maxSamples = 40000

	//a pixel needs this much saturation and value before it votes for a hue bucket
	bucketMinSaturation = 0.25
	bucketMinValue      = 0.2

	//a bucket is dominant when it holds at least this share of the sampled pixels
	dominantShare = 0.1

	highSaturation = 0.7

	//gray-level gradient (|dx| + |dy|, 0..2) above which a sample counts as an edge
	edgeGradient = 0.2
)

//ColorStats summarises a region's pixels.
type ColorStats struct {
	DominantColors      []string           `json:"dominantColors"`
	Buckets             map[string]float64 `json:"buckets"`
	AvgSaturation       float64            `json:"avgSaturation"`
	AvgBrightness       float64            `json:"avgBrightness"`
	HighSaturationRatio float64            `json:"highSaturationRatio"`
	EdgeDensity         float64            `json:"edgeDensity"`
	Samples             int                `json:"samples"`
}

//HasColor reports whether name is one of the dominant colors.
func (s ColorStats) HasColor(name string) bool {
	for _, c := range s.DominantColors {
		if c == name {
			return true
		}
	}
	return false
}

//ComputeColorStats samples img on a regular grid and returns its color statistics.
//The result depends only on the pixel values.
func ComputeColorStats(img image.Image) ColorStats {
	stats := ColorStats{Buckets: map[string]float64{}}
	if img == nil {
		return stats
	}
	b := img.Bounds()
	if b.Empty() {
		return stats
	}

	step := samplingStep(b)
	counts := make(map[string]int, len(bucketOrder))
	var sumSat, sumVal float64
	var highSat, edges, gradSamples int

	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			c, _ := colorful.MakeColor(img.At(x, y))
			h, s, v := c.Hsv()
			stats.Samples++
			sumSat += s
			sumVal += v
			if s > highSaturation {
				highSat++
			}
			if s > bucketMinSaturation && v > bucketMinValue {
				counts[hueBucket(h)]++
			}

			if x+step < b.Max.X && y+step < b.Max.Y {
				g := gray(img, x, y)
				grad := math.Abs(gray(img, x+step, y)-g) + math.Abs(gray(img, x, y+step)-g)
				gradSamples++
				if grad > edgeGradient {
					edges++
				}
			}
		}
	}

	n := float64(stats.Samples)
	stats.AvgSaturation = sumSat / n
	stats.AvgBrightness = sumVal / n
	stats.HighSaturationRatio = float64(highSat) / n
	if gradSamples > 0 {
		stats.EdgeDensity = float64(edges) / float64(gradSamples)
	}

	for _, name := range bucketOrder {
		if counts[name] == 0 {
			continue
		}
		share := float64(counts[name]) / n
		stats.Buckets[name] = share
		if share >= dominantShare {
			stats.DominantColors = append(stats.DominantColors, name)
		}
	}
	sort.SliceStable(stats.DominantColors, func(i, j int) bool {
		return counts[stats.DominantColors[i]] > counts[stats.DominantColors[j]]
	})

	return stats
}

func samplingStep(b image.Rectangle) int {
	total := b.Dx() * b.Dy()
	if total <= maxSamples {
		return 1
	}
	return int(math.Ceil(math.Sqrt(float64(total) / maxSamples)))
}

func hueBucket(h float64) string {
	switch {
	case h < 15 || h >= 345:
		return ColorRed
	case h < 45:
		return ColorOrange
	case h < 70:
		return ColorYellow
	case h < 170:
		return ColorGreen
	case h < 260:
		return ColorBlue
	default:
		return ColorPurple
	}
}

func gray(img image.Image, x, y int) float64 {
	c, _ := colorful.MakeColor(img.At(x, y))
	return 0.299*c.R + 0.587*c.G + 0.114*c.B
}
