package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ScoreDistribution summarizes the scores a stage produced.
type ScoreDistribution struct {
	Count  int
	Mean   float64
	Median float64
	StdDev float64
	Min    float64
	Max    float64
	P25    float64
	P75    float64
	P95    float64
}

// StageMetrics records one stage of a single pipeline execution.
type StageMetrics struct {
	Name    string
	Latency time.Duration
	DocsIn  int
	DocsOut int
	Scores  ScoreDistribution
}

// PipelineMetadata is the immutable record of one pipeline execution.
// It is created once per request and appended to the analytics sink.
type PipelineMetadata struct {
	ID        uuid.UUID
	Query     string
	UserID    string
	CreatedAt time.Time

	// Config snapshot for reproducibility. ChosenFusionMethod differs
	// from FusionMethod only when the adaptive method picked a concrete
	// strategy at runtime.
	FusionMethod        string
	ChosenFusionMethod  string
	NormalizationMethod string
	SemanticWeight      float64
	LexicalWeight       float64

	Stage2Enabled  bool
	Stage2Degraded bool

	Stages          []StageMetrics
	TotalLatency    time.Duration
	RankCorrelation float64

	ModelsUsed    []string
	ProvidersUsed []string
	Errors        []string
}

// AnalyticsSink receives completed pipeline records. Implementations are
// append-only; records are never read back by the pipeline itself.
type AnalyticsSink interface {
	Append(ctx context.Context, records []PipelineMetadata) error
}
