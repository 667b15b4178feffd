package utils

import "time"

//DefaultScoreThreshold is the minimal localizer score a detection needs before label filtering
const DefaultScoreThreshold = 0.3

//DefaultSidePadding is the fraction of a phone box trimmed from its left and right edges (bezel)
const DefaultSidePadding = 0.15

//DefaultTopPadding is the fraction of a phone box trimmed from its top edge (camera/notch bezel)
const DefaultTopPadding = 0.3

//DefaultSuspiciousThreshold is the suspicion score from which a band is flagged as suspicious
const DefaultSuspiciousThreshold = 0.3

//DefaultLikelyScamThreshold is the suspicion score from which a band is categorized as likely-scam
const DefaultLikelyScamThreshold = 0.55

//DefaultTickInterval is the repaint interval the detection loop is driven by (~60Hz)
const DefaultTickInterval = 16 * time.Millisecond

//DefaultFPSWindow is the window after which the rolling frame counter is reset
const DefaultFPSWindow = time.Second

//DefaultBandRatios are the top/middle/bottom band heights of a screen region
var DefaultBandRatios = []float64{0.3, 0.4, 0.3}

//PhoneLabels is a list of localizer labels treated as phones, everything else is dropped
var PhoneLabels = []string{"cell phone", "mobile phone"}

//ModeAccelerated runs the localizer on the GPU backend, initialization fails if it is missing
const ModeAccelerated = "accelerated"

//ModeBasic runs the localizer on the default CPU backend
const ModeBasic = "basic"
