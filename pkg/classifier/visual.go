package classifier

import (
	"image"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

const (
	patternBlockSize = 20
	patternMaxBlocks = 20
	//two block sums closer than this relative difference count as repeated
	patternTolerance = 0.05
)

//VisualScore is the visual-heuristics contribution of a region.
type VisualScore struct {
	Score   float64
	Pattern float64
	Reasons []string
}

//ScoreVisual applies the ad heuristics to precomputed stats and the region's pattern score.
//Every check runs; reasons follow the order of the checks.
func ScoreVisual(stats ColorStats, pattern float64) VisualScore {
	res := VisualScore{Pattern: pattern}
	highlySaturated := stats.AvgSaturation > 0.5 || stats.HighSaturationRatio > 0.3

	if highlySaturated {
		res.Score += 0.1
		res.Reasons = append(res.Reasons, "High color saturation")
	}
	if len(stats.DominantColors) >= 3 {
		res.Score += 0.08
		res.Reasons = append(res.Reasons, "High color contrast")
	}
	if pattern > 0.3 {
		res.Score += 0.15 * pattern
		res.Reasons = append(res.Reasons, "Repetitive visual pattern")
	}
	if stats.EdgeDensity > 0.4 {
		res.Score += 0.1
		res.Reasons = append(res.Reasons, "Busy layout (high edge density)")
	}
	if stats.AvgBrightness > 0.8 {
		res.Score += 0.08
		res.Reasons = append(res.Reasons, "Very bright colors")
	}
	if highlySaturated && (stats.HasColor(ColorRed) || stats.HasColor(ColorYellow) || stats.HasColor(ColorOrange)) {
		res.Score += 0.1
		res.Reasons = append(res.Reasons, "Warning colors (red/yellow/orange)")
	}
	return res
}

//PatternScore sums 20x20 blocks laid out row by row over img and compares the first 20
//block sums pairwise. It returns the share of near-equal pairs, 0 when there are fewer than two blocks.
func PatternScore(img image.Image) float64 {
	if img == nil {
		return 0
	}
	b := img.Bounds()
	sums := make([]float64, 0, patternMaxBlocks)

blocks:
	for y := b.Min.Y; y+patternBlockSize <= b.Max.Y; y += patternBlockSize {
		for x := b.Min.X; x+patternBlockSize <= b.Max.X; x += patternBlockSize {
			sums = append(sums, blockSum(img, x, y))
			if len(sums) == patternMaxBlocks {
				break blocks
			}
		}
	}

	if len(sums) < 2 {
		return 0
	}

	similar, pairs := 0, 0
	for i := 0; i < len(sums); i++ {
		for j := i + 1; j < len(sums); j++ {
			pairs++
			hi := math.Max(sums[i], sums[j])
			if hi == 0 || math.Abs(sums[i]-sums[j])/hi < patternTolerance {
				similar++
			}
		}
	}
	return float64(similar) / float64(pairs)
}

func blockSum(img image.Image, x0, y0 int) float64 {
	sum := 0.0
	for y := y0; y < y0+patternBlockSize; y++ {
		for x := x0; x < x0+patternBlockSize; x++ {
			c, _ := colorful.MakeColor(img.At(x, y))
			sum += c.R + c.G + c.B
		}
	}
	return sum
}
