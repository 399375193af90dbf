package provider

import (
	"context"
	"fmt"
	"log/slog"

	"retrieval-pipeline/internal/domain"
)

// HybridCandidateSource composes the embedding provider, the pgvector
// chunk repository, and the lexical index client into one
// domain.CandidateSource.
type HybridCandidateSource struct {
	encoder domain.VectorEncoder
	chunks  domain.ChunkRepository
	lexical domain.LexicalSearcher
	logger  *slog.Logger
}

// NewHybridCandidateSource wires the two retrieval channels.
func NewHybridCandidateSource(
	encoder domain.VectorEncoder,
	chunks domain.ChunkRepository,
	lexical domain.LexicalSearcher,
	logger *slog.Logger,
) *HybridCandidateSource {
	return &HybridCandidateSource{
		encoder: encoder,
		chunks:  chunks,
		lexical: lexical,
		logger:  logger,
	}
}

// SemanticSearch embeds the query and runs vector similarity search.
// Embedding failures propagate as retrieval errors since Stage 1 cannot
// proceed without the query vector.
func (s *HybridCandidateSource) SemanticSearch(ctx context.Context, query string, documentIDs []string, limit int) ([]domain.ScoredDocument, error) {
	embeddings, err := s.encoder.Encode(ctx, []string{query})
	if err != nil {
		return nil, domain.NewRetrievalError("failed to embed query", err)
	}
	if len(embeddings) == 0 {
		return nil, domain.NewRetrievalError("no embedding returned for query", nil)
	}

	hits, err := s.chunks.VectorSearch(ctx, embeddings[0], documentIDs, limit)
	if err != nil {
		return nil, domain.NewRetrievalError("vector search failed", err)
	}
	return hits, nil
}

// LexicalSearch runs the term-based channel.
func (s *HybridCandidateSource) LexicalSearch(ctx context.Context, query string, documentIDs []string, limit int) ([]domain.ScoredDocument, error) {
	hits, err := s.lexical.Search(ctx, query, documentIDs, limit)
	if err != nil {
		return nil, domain.NewRetrievalError(fmt.Sprintf("lexical search failed for %q", query), err)
	}
	return hits, nil
}
