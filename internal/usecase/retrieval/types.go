package retrieval

import (
	"time"

	"retrieval-pipeline/internal/domain"
)

// StageContext carries data between pipeline stages for one request.
type StageContext struct {
	// Input
	RetrievalID string
	RawQuery    string
	DocumentIDs []string

	// Preprocessing output
	Preprocessed domain.PreprocessedQuery

	// Raw per-channel hit counts before thresholding, for analytics.
	RawSemanticHits int
	RawLexicalHits  int

	// Stage 1 output: fused, thresholded, ranked candidates.
	Candidates []domain.Candidate

	// Diversifier output
	Diversified []domain.Candidate

	// Stage 2 output: final ranked result set.
	Final []domain.Candidate

	// ChosenFusion is the concrete fusion method applied. It equals the
	// configured method unless adaptive fusion picked one at runtime.
	ChosenFusion FusionMethod

	// Stage2Applied is true when reranked scores made it into Final.
	Stage2Applied bool
	// Stage2Degraded is true when reranking failed and Final fell back
	// to the Stage-1 ordering.
	Stage2Degraded bool

	Stage1Latency time.Duration
	Stage2Latency time.Duration

	// Errors collects non-fatal degradations for the metadata record.
	Errors []string
}
