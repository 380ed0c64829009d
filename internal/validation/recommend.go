package validation

import "sort"

// minSampleSize is the smallest confidence sample RecommendThresholds will
// act on; below this a recommendation would just be noise from a handful of
// findings, so the current thresholds are returned unchanged.
const minSampleSize = 20

// acceptPercentile and reviewPercentile pick thresholds from the observed
// confidence distribution: Accept at the 75th percentile, Review at the
// median, so under a representative sample roughly a quarter of findings
// reach Accept, a quarter fall between Review and Accept, and half fall
// below Review.
const (
	acceptPercentile = 0.75
	reviewPercentile = 0.5
)

// RecommendThresholds suggests Accept/Review thresholds derived from a
// sample of observed confidence scores, leaving Dismiss at current's value
// since the pipeline treats it as a hard floor rather than a tuned knob.
// Returns current unchanged if the sample is too small to be meaningful.
func RecommendThresholds(confidenceSamples []float64, current Thresholds) Thresholds {
	if len(confidenceSamples) < minSampleSize {
		return current
	}

	sorted := make([]float64, len(confidenceSamples))
	copy(sorted, confidenceSamples)
	sort.Float64s(sorted)

	recommended := Thresholds{
		Accept:  percentile(sorted, acceptPercentile),
		Review:  percentile(sorted, reviewPercentile),
		Dismiss: current.Dismiss,
	}

	if recommended.Review <= recommended.Dismiss {
		recommended.Review = current.Review
	}

	if recommended.Accept <= recommended.Review {
		recommended.Accept = current.Accept
	}

	return recommended
}

// percentile returns the value at fraction p (0..1) of a pre-sorted slice
// using linear interpolation between the two closest samples.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}

	pos := p * float64(len(sorted)-1)
	lo := int(pos)
	hi := lo + 1

	if hi >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	frac := pos - float64(lo)

	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
