package retrieval_test

import (
	"testing"

	"retrieval-pipeline/internal/usecase/retrieval"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeScores_Empty(t *testing.T) {
	assert.Nil(t, retrieval.NormalizeScores(nil, retrieval.NormalizeMinMax))
	assert.Nil(t, retrieval.NormalizeScores([]float64{}, retrieval.NormalizeZScore))
}

func TestNormalizeScores_MinMax(t *testing.T) {
	out := retrieval.NormalizeScores([]float64{2.0, 6.0, 10.0}, retrieval.NormalizeMinMax)

	require.Len(t, out, 3)
	assert.InDelta(t, 0.0, out[0], 1e-9)
	assert.InDelta(t, 0.5, out[1], 1e-9)
	assert.InDelta(t, 1.0, out[2], 1e-9)
}

func TestNormalizeScores_MinMaxIdenticalScores(t *testing.T) {
	out := retrieval.NormalizeScores([]float64{3.3, 3.3, 3.3}, retrieval.NormalizeMinMax)

	for _, v := range out {
		assert.InDelta(t, 0.5, v, 1e-9)
	}
}

func TestNormalizeScores_MinMaxSingleScore(t *testing.T) {
	out := retrieval.NormalizeScores([]float64{0.87}, retrieval.NormalizeMinMax)

	require.Len(t, out, 1)
	assert.InDelta(t, 0.5, out[0], 1e-9)
}

func TestNormalizeScores_ZScoreBounded(t *testing.T) {
	out := retrieval.NormalizeScores([]float64{-100, 0, 0.5, 1, 100}, retrieval.NormalizeZScore)

	require.Len(t, out, 5)
	for _, v := range out {
		assert.Greater(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
	// Order is preserved by the monotonic sigmoid.
	for i := 1; i < len(out); i++ {
		assert.Greater(t, out[i], out[i-1])
	}
}

func TestNormalizeScores_ZScoreZeroVariance(t *testing.T) {
	out := retrieval.NormalizeScores([]float64{4.2, 4.2}, retrieval.NormalizeZScore)

	// z defaults to 0, sigmoid(0) = 0.5
	for _, v := range out {
		assert.InDelta(t, 0.5, v, 1e-9)
	}
}

func TestNormalizeScores_RankBased(t *testing.T) {
	out := retrieval.NormalizeScores([]float64{0.2, 0.9, 0.5, 0.7}, retrieval.NormalizeRankBased)

	require.Len(t, out, 4)
	// Highest score gets 1.0, then descending by quarter steps.
	assert.InDelta(t, 1.0, out[1], 1e-9)
	assert.InDelta(t, 0.75, out[3], 1e-9)
	assert.InDelta(t, 0.5, out[2], 1e-9)
	assert.InDelta(t, 0.25, out[0], 1e-9)
}

func TestNormalizeScores_RankBasedTiesKeepInputOrder(t *testing.T) {
	out := retrieval.NormalizeScores([]float64{0.5, 0.5, 0.1}, retrieval.NormalizeRankBased)

	require.Len(t, out, 3)
	assert.Greater(t, out[0], out[1])
	assert.Greater(t, out[1], out[2])
}

func TestNormalizeScores_UnknownMethodFallsBackToMinMax(t *testing.T) {
	out := retrieval.NormalizeScores([]float64{1, 3}, retrieval.NormalizationMethod("bogus"))

	assert.InDelta(t, 0.0, out[0], 1e-9)
	assert.InDelta(t, 1.0, out[1], 1e-9)
}
