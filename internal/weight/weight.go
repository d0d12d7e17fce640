// Package weight implements the pure edge-weight functions consulted by the
// PPR engine (internal/ppr): recency decay, per-kind weight formulas, the
// Stanton analytic threshold, and out-edge normalization. None of these
// functions touch the graph directly or perform I/O.
package weight

import "math"

// MODIFIESBoost is the multiplier applied to a modifies-edge's base weight
// in callers that want to emphasize recent-change relationships.
const MODIFIESBoost = 20.0

// DefaultHalfLifeDays is the recency-decay half-life used when a caller
// doesn't supply one explicitly.
const DefaultHalfLifeDays = 90.0

const msPerDay = 86_400_000.0

// RecencyDecay returns exp(-λ·age_days) where λ = ln(2)/halfLifeDays and
// age_days is derived from now versus lastModified, both in milliseconds
// since the Unix epoch. An age of zero or less (future timestamp) decays to
// exactly 1.0.
func RecencyDecay(nowMs, lastModifiedMs int64, halfLifeDays float64) float64 {
	ageDays := float64(nowMs-lastModifiedMs) / msPerDay
	if ageDays <= 0 {
		return 1.0
	}
	lambda := math.Ln2 / halfLifeDays
	return math.Exp(-lambda * ageDays)
}

// CallsWeight returns frequency · recencyDecay · (1 / max(depth, 1)).
func CallsWeight(frequency float64, recencyDecay float64, depth int) float64 {
	d := depth
	if d < 1 {
		d = 1
	}
	return frequency * recencyDecay / float64(d)
}

// ImportsWeight is always 1.0 — import edges carry no decay or frequency.
func ImportsWeight() float64 {
	return 1.0
}

// ModifiesWeight returns coChange / totalCommits, or 0 when totalCommits is
// zero. Ratios above 1.0 (coChange > totalCommits) are not guarded; callers
// that feed inconsistent counters get the raw value back.
func ModifiesWeight(coChange, totalCommits int) float64 {
	if totalCommits == 0 {
		return 0
	}
	return float64(coChange) / float64(totalCommits)
}

// StantonCondition reports whether p exceeds the analytic threshold
// 3·(k + √k + 1)·l·q, used to flag edges whose weight is implausibly high
// relative to the observed sample size k and scale factors l, q.
func StantonCondition(p, k, l, q float64) bool {
	threshold := 3.0 * (k + math.Sqrt(k) + 1) * l * q
	return p > threshold
}

// Normalize divides each weight by their sum, preserving relative order. If
// the sum is zero (including the empty-but-nonzero-length case of all-zero
// weights), every element is assigned a uniform 1/n. Normalize is a no-op on
// an empty slice. The input is not mutated; a new slice is returned.
func Normalize(weights []float64) []float64 {
	if len(weights) == 0 {
		return weights
	}

	sum := 0.0
	for _, w := range weights {
		sum += w
	}

	out := make([]float64, len(weights))
	if sum == 0 {
		uniform := 1.0 / float64(len(weights))
		for i := range out {
			out[i] = uniform
		}
		return out
	}

	for i, w := range weights {
		out[i] = w / sum
	}
	return out
}
