package utils

import (
	"math"
	"time"
)

type RankConfig struct {
	Gravity        float64 // time decay exponent
	WeightMessage  float64
	WeightUpvote   float64
	WeightDownvote float64
	ScaleFactor    float64
}

var DefaultConfig = RankConfig{
	Gravity:        1.5,
	WeightMessage:  2.0,
	WeightUpvote:   1.0,
	WeightDownvote: 1.5,
	ScaleFactor:    100.0,
}

// HotScore ranks a room by weighted activity with log smoothing, decayed by
// the hours since lastActive.
func HotScore(lastActive time.Time, up, down, messages int) float64 {
	hours := time.Since(lastActive).Hours()
	if hours < 0 {
		hours = 0
	}

	weightedSum := float64(up)*DefaultConfig.WeightUpvote +
		float64(messages)*DefaultConfig.WeightMessage -
		float64(down)*DefaultConfig.WeightDownvote

	if weightedSum < 0 {
		weightedSum = 0
	}

	numerator := math.Log10(weightedSum+1) * DefaultConfig.ScaleFactor
	decay := math.Pow(hours+2, DefaultConfig.Gravity)

	return numerator / decay
}
