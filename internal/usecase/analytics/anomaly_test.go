package analytics_test

import (
	"testing"
	"time"

	"retrieval-pipeline/internal/domain"
	"retrieval-pipeline/internal/usecase/analytics"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseMetadata() domain.PipelineMetadata {
	return domain.PipelineMetadata{
		ID:              uuid.New(),
		Query:           "test query",
		CreatedAt:       time.Now(),
		Stage2Enabled:   true,
		RankCorrelation: 0.9,
		Stages: []domain.StageMetrics{
			{
				Name:    "stage1_hybrid",
				Latency: 50 * time.Millisecond,
				DocsIn:  100,
				DocsOut: 40,
				Scores:  analytics.Distribution([]float64{0.2, 0.4, 0.6, 0.8}),
			},
			{
				Name:    "stage2_rerank",
				Latency: 120 * time.Millisecond,
				DocsIn:  30,
				DocsOut: 10,
				Scores:  analytics.Distribution([]float64{0.3, 0.5, 0.7, 0.9}),
			},
		},
	}
}

func TestDetectAnomalies_CleanExecution(t *testing.T) {
	anomalies := analytics.DetectAnomalies(baseMetadata(), map[string]time.Duration{
		"stage1_hybrid": 50 * time.Millisecond,
		"stage2_rerank": 100 * time.Millisecond,
	})
	assert.Empty(t, anomalies)
}

func TestDetectAnomalies_LatencySpike(t *testing.T) {
	md := baseMetadata()
	md.Stages[1].Latency = 2 * time.Second

	anomalies := analytics.DetectAnomalies(md, map[string]time.Duration{
		"stage2_rerank": 100 * time.Millisecond,
	})

	require.Len(t, anomalies, 1)
	assert.Equal(t, analytics.AnomalyLatencySpike, anomalies[0].Kind)
}

func TestDetectAnomalies_NoSpikeWithoutHistory(t *testing.T) {
	md := baseMetadata()
	md.Stages[1].Latency = 2 * time.Second

	// No running average yet means no baseline to compare against.
	anomalies := analytics.DetectAnomalies(md, map[string]time.Duration{})
	assert.Empty(t, anomalies)
}

func TestDetectAnomalies_ScoreOutlier(t *testing.T) {
	md := baseMetadata()
	// Ten identical scores and one far outlier.
	scores := make([]float64, 10)
	scores = append(scores, 1.0)
	md.Stages[0].Scores = analytics.Distribution(scores)

	anomalies := analytics.DetectAnomalies(md, nil)

	require.Len(t, anomalies, 1)
	assert.Equal(t, analytics.AnomalyScoreOutlier, anomalies[0].Kind)
}

func TestDetectAnomalies_LowRankCorrelation(t *testing.T) {
	md := baseMetadata()
	md.RankCorrelation = 0.1

	anomalies := analytics.DetectAnomalies(md, nil)

	require.Len(t, anomalies, 1)
	assert.Equal(t, analytics.AnomalyQualityDegradation, anomalies[0].Kind)
}

func TestDetectAnomalies_Degraded(t *testing.T) {
	md := baseMetadata()
	md.Stage2Degraded = true

	anomalies := analytics.DetectAnomalies(md, nil)

	require.Len(t, anomalies, 1)
	assert.Equal(t, analytics.AnomalyQualityDegradation, anomalies[0].Kind)
}

func TestDetectAnomalies_CorrelationIgnoredWhenStage2Off(t *testing.T) {
	md := baseMetadata()
	md.Stage2Enabled = false
	md.RankCorrelation = 0.0

	anomalies := analytics.DetectAnomalies(md, nil)
	assert.Empty(t, anomalies)
}

func TestRecommendations_Degraded(t *testing.T) {
	md := baseMetadata()
	md.Stage2Degraded = true
	anomalies := analytics.DetectAnomalies(md, nil)

	recs := analytics.Recommendations(md, anomalies)

	require.NotEmpty(t, recs)
	assert.Contains(t, recs[0], "reranking provider is failing")
}

func TestRecommendations_EmptyResultSet(t *testing.T) {
	md := baseMetadata()
	md.Stages[1].DocsOut = 0

	recs := analytics.Recommendations(md, nil)

	require.Len(t, recs, 1)
	assert.Contains(t, recs[0], "no results")
}

func TestRecommendations_Deduplicated(t *testing.T) {
	md := baseMetadata()
	anomalies := []analytics.Anomaly{
		{Kind: analytics.AnomalyLatencySpike},
		{Kind: analytics.AnomalyLatencySpike},
	}

	recs := analytics.Recommendations(md, anomalies)
	assert.Len(t, recs, 1)
}
