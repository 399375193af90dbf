package domain

import "context"

// ScoredDocument is one raw hit from a single retrieval channel.
type ScoredDocument struct {
	ID         string
	DocumentID string
	Content    string
	Score      float64
}

// CandidateSource returns raw per-candidate scores for a query against
// a document set. The semantic channel measures embedding similarity,
// the lexical channel term overlap. Both return hits ordered by score
// descending.
type CandidateSource interface {
	SemanticSearch(ctx context.Context, query string, documentIDs []string, limit int) ([]ScoredDocument, error)
	LexicalSearch(ctx context.Context, query string, documentIDs []string, limit int) ([]ScoredDocument, error)
}

// ChunkRepository performs vector similarity search over stored chunks.
type ChunkRepository interface {
	VectorSearch(ctx context.Context, queryVector []float32, documentIDs []string, limit int) ([]ScoredDocument, error)
}

// LexicalSearcher performs term-based search against an external index.
type LexicalSearcher interface {
	Search(ctx context.Context, query string, documentIDs []string, limit int) ([]ScoredDocument, error)
}
