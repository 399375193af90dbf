package domain

import "context"

// RerankCandidate is a shortlisted document sent to the cross-encoder.
type RerankCandidate struct {
	// ID is the unique chunk identifier, used to map results back.
	ID string
	// Content is the text scored against the query.
	Content string
	// Score is the Stage-1 hybrid score, passed along for logging.
	Score float64
}

// RerankResult is a reranked document with its cross-encoder score.
type RerankResult struct {
	// ID matches the candidate ID.
	ID string
	// Score is the cross-encoder relevance score, typically in [0,1].
	Score float64
}

// Reranker scores a shortlist of candidates against the query with a
// second, more expensive relevance model. On error, callers fall back
// to Stage-1 ordering rather than failing the request.
type Reranker interface {
	// Rerank returns results sorted by score descending.
	Rerank(ctx context.Context, query string, candidates []RerankCandidate) ([]RerankResult, error)

	// ModelName returns the model identifier for logging.
	ModelName() string
}
