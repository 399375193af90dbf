package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"retrieval-pipeline/internal/domain"
)

type metadataRepository struct {
	pool *pgxpool.Pool
}

// NewMetadataRepository creates the append-only analytics sink backed by
// the pipeline_metadata table.
func NewMetadataRepository(pool *pgxpool.Pool) domain.AnalyticsSink {
	return &metadataRepository{pool: pool}
}

// Append bulk-inserts execution records. Records are never updated or
// read back by the pipeline.
func (r *metadataRepository) Append(ctx context.Context, records []domain.PipelineMetadata) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(records))
	for i, md := range records {
		var stage1Ms, stage2Ms int64
		for _, stage := range md.Stages {
			switch stage.Name {
			case "stage1_hybrid":
				stage1Ms = stage.Latency.Milliseconds()
			case "stage2_rerank":
				stage2Ms = stage.Latency.Milliseconds()
			}
		}
		rows[i] = []interface{}{
			md.ID,
			md.Query,
			md.UserID,
			md.FusionMethod,
			md.ChosenFusionMethod,
			md.NormalizationMethod,
			md.SemanticWeight,
			md.LexicalWeight,
			md.Stage2Enabled,
			md.Stage2Degraded,
			stage1Ms,
			stage2Ms,
			md.TotalLatency.Milliseconds(),
			md.RankCorrelation,
			strings.Join(md.ModelsUsed, ","),
			strings.Join(md.Errors, "; "),
			md.CreatedAt,
		}
	}

	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"pipeline_metadata"},
		[]string{
			"id", "query", "user_id",
			"fusion_method", "chosen_fusion_method", "normalization_method",
			"semantic_weight", "lexical_weight",
			"stage2_enabled", "stage2_degraded",
			"stage1_latency_ms", "stage2_latency_ms", "total_latency_ms",
			"rank_correlation", "models_used", "errors", "created_at",
		},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to append pipeline metadata: %w", err)
	}
	return nil
}
