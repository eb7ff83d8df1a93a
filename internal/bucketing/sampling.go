package bucketing

import "math/rand"

// ShouldSample implements the samplingRatio gate: a flag with ratio N only
// generates evaluation/debug events for 1 in N evaluations. A ratio of 0
// or 1 always samples.
func ShouldSample(ratio int) bool {
	if ratio <= 1 {
		return true
	}
	return rand.Intn(ratio) == 0
}
