package analytics

import (
	"math"
	"sort"

	"retrieval-pipeline/internal/domain"
)

// Distribution summarizes a score list with mean, median, stddev, and
// percentiles. An empty list yields a zero distribution.
func Distribution(scores []float64) domain.ScoreDistribution {
	if len(scores) == 0 {
		return domain.ScoreDistribution{}
	}

	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)

	mean := 0.0
	for _, s := range sorted {
		mean += s
	}
	mean /= float64(len(sorted))

	variance := 0.0
	for _, s := range sorted {
		variance += (s - mean) * (s - mean)
	}

	return domain.ScoreDistribution{
		Count:  len(sorted),
		Mean:   mean,
		Median: percentile(sorted, 50),
		StdDev: math.Sqrt(variance / float64(len(sorted))),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		P25:    percentile(sorted, 25),
		P75:    percentile(sorted, 75),
		P95:    percentile(sorted, 95),
	}
}

// percentile interpolates linearly over a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// RankCorrelation computes the Spearman correlation between the Stage-1
// and Stage-2 orderings of the final result set. The Stage-1 ranks of
// the surviving candidates are re-ranked to 1..N before comparison.
// Returns 1 for sets too small to reorder.
func RankCorrelation(final []domain.Candidate) float64 {
	n := len(final)
	if n < 2 {
		return 1.0
	}

	byInitial := make([]int, n)
	for i := range byInitial {
		byInitial[i] = i
	}
	sort.Slice(byInitial, func(a, b int) bool {
		return final[byInitial[a]].InitialRank < final[byInitial[b]].InitialRank
	})

	stage1Rank := make([]int, n)
	for rank, idx := range byInitial {
		stage1Rank[idx] = rank + 1
	}

	sumSq := 0.0
	for i, c := range final {
		d := float64(stage1Rank[i] - c.FinalRank)
		sumSq += d * d
	}
	return 1.0 - 6.0*sumSq/float64(n*(n*n-1))
}
