package classifier

import (
	"image"
	"math"
)

//Platform guesses.
const (
	PlatformInstagram = "Instagram"
	PlatformFacebook  = "Facebook"
	PlatformTikTok    = "TikTok"
	PlatformTwitterX  = "Twitter/X"
)

//SocialMediaThreshold is the rule score from which a region counts as a social-media UI.
const SocialMediaThreshold = 0.4

const darkBrightness = 0.3

//SocialMediaSignal is the social-media classification of a screen region.
type SocialMediaSignal struct {
	IsSocialMedia bool    `json:"isSocialMedia"`
	Confidence    float64 `json:"confidence"`
	Platform      string  `json:"platform,omitempty"`
}

//PlatformRule adds Delta to the score when Match holds and tags Platform if no earlier
//rule has tagged one yet. Rules with an empty Platform only contribute score.
type PlatformRule struct {
	Name     string
	Platform string
	Delta    float64
	Match    func(ColorStats) bool
}

//SocialMediaRules are folded left to right; the first matching rule with a platform wins the tag.
var SocialMediaRules = []PlatformRule{
	{
		Name:     "purple-orange gradient",
		Platform: PlatformInstagram,
		Delta:    0.3,
		Match: func(s ColorStats) bool {
			return s.HasColor(ColorPurple) || s.HasColor(ColorOrange)
		},
	},
	{
		Name:     "blue chrome",
		Platform: PlatformFacebook,
		Delta:    0.25,
		Match: func(s ColorStats) bool {
			return s.HasColor(ColorBlue)
		},
	},
	{
		Name:     "dark feed with color accents",
		Platform: PlatformTikTok,
		Delta:    0.2,
		Match: func(s ColorStats) bool {
			return s.AvgBrightness < darkBrightness && len(s.DominantColors) > 0
		},
	},
	{
		Name:     "dark theme with blue or monochrome",
		Platform: PlatformTwitterX,
		Delta:    0.15,
		Match: func(s ColorStats) bool {
			return s.AvgBrightness < darkBrightness && (s.HasColor(ColorBlue) || len(s.DominantColors) == 0)
		},
	},
	{
		Name:  "dense ui layout",
		Delta: 0.2,
		Match: func(s ColorStats) bool {
			return s.EdgeDensity > 0.3
		},
	},
}

//ClassifySocialMedia folds rules over stats.
func ClassifySocialMedia(stats ColorStats, rules []PlatformRule) SocialMediaSignal {
	score := 0.0
	platform := ""
	for _, r := range rules {
		if r.Match == nil || !r.Match(stats) {
			continue
		}
		score += r.Delta
		if platform == "" && r.Platform != "" {
			platform = r.Platform
		}
	}

	return SocialMediaSignal{
		IsSocialMedia: score >= SocialMediaThreshold-1e-9,
		Confidence:    math.Min(score, 1.0),
		Platform:      platform,
	}
}

//DetectSocialMedia computes the color statistics of img and classifies them with SocialMediaRules.
func DetectSocialMedia(img image.Image) SocialMediaSignal {
	return ClassifySocialMedia(ComputeColorStats(img), SocialMediaRules)
}
