package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"retrieval-pipeline/internal/domain"
)

type chunkRepository struct {
	pool *pgxpool.Pool
}

// NewChunkRepository creates a pgvector-backed chunk repository.
func NewChunkRepository(pool *pgxpool.Pool) domain.ChunkRepository {
	return &chunkRepository{pool: pool}
}

// VectorSearch returns chunks ordered by cosine similarity to the query
// vector, optionally restricted to the given document ids. Scores are
// reported as 1 - cosine distance, so higher is more similar.
func (r *chunkRepository) VectorSearch(
	ctx context.Context,
	queryVector []float32,
	documentIDs []string,
	limit int,
) ([]domain.ScoredDocument, error) {
	query := `
		SELECT id, document_id, content,
		       1 - (embedding <=> $1) AS score
		FROM retrieval_chunks
		ORDER BY embedding <=> $1
		LIMIT $2`
	args := []interface{}{pgvector.NewVector(queryVector), limit}

	if len(documentIDs) > 0 {
		query = `
			SELECT id, document_id, content,
			       1 - (embedding <=> $1) AS score
			FROM retrieval_chunks
			WHERE document_id = ANY($3)
			ORDER BY embedding <=> $1
			LIMIT $2`
		args = append(args, documentIDs)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run vector search: %w", err)
	}
	defer rows.Close()

	var results []domain.ScoredDocument
	for rows.Next() {
		var doc domain.ScoredDocument
		if err := rows.Scan(&doc.ID, &doc.DocumentID, &doc.Content, &doc.Score); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}
	return results, nil
}
