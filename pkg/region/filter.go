package region

import (
	"strings"

	"github.com/chenBenjamin97/phone-ad-detector/pkg/utils"
)

//Filter defines a function that filters an incoming list of Detections.
type Filter func([]Detection) []Detection

//NewScoreFilter returns a function that filters out detections below a certain confidence.
func NewScoreFilter(threshold float64) Filter {
	return func(in []Detection) []Detection {
		out := make([]Detection, 0, len(in))
		for _, d := range in {
			if d.Score >= threshold {
				out = append(out, d)
			}
		}
		return out
	}
}

//NewLabelFilter returns a function that keeps only detections whose label is one of labels.
//Labels are compared case-insensitively.
func NewLabelFilter(labels []string) Filter {
	lowered := make([]string, len(labels))
	for i, l := range labels {
		lowered[i] = strings.ToLower(l)
	}
	return func(in []Detection) []Detection {
		out := make([]Detection, 0, len(in))
		for _, d := range in {
			if utils.InSlice(strings.ToLower(strings.TrimSpace(d.Label)), lowered) {
				out = append(out, d)
			}
		}
		return out
	}
}

//Chain applies filters in order.
func Chain(filters ...Filter) Filter {
	return func(in []Detection) []Detection {
		for _, f := range filters {
			if f != nil {
				in = f(in)
			}
		}
		return in
	}
}

//PhoneFilter drops everything below threshold and everything that is not a phone.
func PhoneFilter(threshold float64) Filter {
	return Chain(NewScoreFilter(threshold), NewLabelFilter(utils.PhoneLabels))
}
