package domain

import "time"

// QueryIntent classifies what kind of answer a query expects.
type QueryIntent string

const (
	IntentDefinitional QueryIntent = "definitional"
	IntentProcedural   QueryIntent = "procedural"
	IntentCausal       QueryIntent = "causal"
	IntentComparative  QueryIntent = "comparative"
	IntentTemporal     QueryIntent = "temporal"
	IntentSpatial      QueryIntent = "spatial"
	IntentEntity       QueryIntent = "entity"
	IntentFactual      QueryIntent = "factual"
)

// PreprocessedQuery is the immutable output of query preprocessing.
// Variants always contains at least the corrected query itself.
type PreprocessedQuery struct {
	Original   string
	Normalized string
	Corrected  string
	Variants   []string
	Entities   []string
	Intent     QueryIntent
	Confidence float64
}

// Candidate is a single retrieved chunk flowing through the pipeline.
// Each stage adds scores and ranks; nothing is ever removed.
type Candidate struct {
	ID         string
	Content    string
	DocumentID string

	// Raw channel scores from the candidate source.
	SemanticScore float64
	LexicalScore  float64

	// Stage 1 output.
	HybridScore float64
	InitialRank int

	// Stage 2 output. RerankScore is nil when reranking was skipped
	// or degraded for this request.
	RerankScore     *float64
	ConfidenceScore float64
	FinalRank       int

	Stage1Latency time.Duration
	Stage2Latency time.Duration
}
