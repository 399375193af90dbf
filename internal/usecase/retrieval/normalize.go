package retrieval

import (
	"math"
	"sort"
)

// NormalizationMethod selects how raw channel scores are rescaled
// before fusion.
type NormalizationMethod string

const (
	// NormalizeMinMax rescales to [0,1] using the observed min and max.
	NormalizeMinMax NormalizationMethod = "min_max"
	// NormalizeZScore standardizes then maps through a bounded sigmoid.
	NormalizeZScore NormalizationMethod = "z_score"
	// NormalizeRankBased replaces each score with 1 - (rank / N).
	NormalizeRankBased NormalizationMethod = "rank_based"
)

// NormalizeScores rescales a score list with the selected method. The
// output is aligned index-for-index with the input. min_max and
// rank_based produce values in [0,1]; z_score stays within (0,1) via
// the sigmoid transform.
func NormalizeScores(scores []float64, method NormalizationMethod) []float64 {
	if len(scores) == 0 {
		return nil
	}

	switch method {
	case NormalizeZScore:
		return normalizeZScore(scores)
	case NormalizeRankBased:
		return normalizeRankBased(scores)
	default:
		return normalizeMinMax(scores)
	}
}

func normalizeMinMax(scores []float64) []float64 {
	lo, hi := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}

	out := make([]float64, len(scores))
	if hi == lo {
		// All scores identical carry no ordering signal.
		for i := range out {
			out[i] = 0.5
		}
		return out
	}
	for i, s := range scores {
		out[i] = (s - lo) / (hi - lo)
	}
	return out
}

func normalizeZScore(scores []float64) []float64 {
	mean := 0.0
	for _, s := range scores {
		mean += s
	}
	mean /= float64(len(scores))

	variance := 0.0
	for _, s := range scores {
		variance += (s - mean) * (s - mean)
	}
	stddev := math.Sqrt(variance / float64(len(scores)))

	out := make([]float64, len(scores))
	for i, s := range scores {
		z := 0.0
		if stddev > 0 {
			z = (s - mean) / stddev
		}
		out[i] = 1.0 / (1.0 + math.Exp(-z))
	}
	return out
}

func normalizeRankBased(scores []float64) []float64 {
	n := len(scores)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	// Stable sort keeps the input order for equal scores, making the
	// rank assignment deterministic.
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	out := make([]float64, n)
	for rank, idx := range order {
		out[idx] = 1.0 - float64(rank)/float64(n)
	}
	return out
}
