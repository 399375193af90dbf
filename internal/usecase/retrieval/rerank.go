package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"retrieval-pipeline/internal/domain"
)

// RerankConfig holds Stage-2 parameters.
type RerankConfig struct {
	Enabled bool
	// TopKInitial bounds how many diversified candidates are sent to the
	// cross-encoder.
	TopKInitial int
	// FinalLimit caps the returned result set.
	FinalLimit int
	Timeout    time.Duration
	// BlendWeight is the share of the rerank score in the final
	// confidence score; the remainder comes from the Stage-1 hybrid
	// score. The blend is monotonic in the rerank score for a fixed
	// hybrid score.
	BlendWeight float64
}

// DefaultBlendWeight favors the cross-encoder while keeping Stage-1
// signal in the final ordering.
const DefaultBlendWeight = 0.7

// Rerank applies cross-encoder reranking to the diversified candidates
// (Stage 2). A provider failure or timeout degrades gracefully: the
// Stage-1 ordering is returned truncated to FinalLimit and the
// degradation is recorded on the stage context, never surfaced as a
// request failure.
func Rerank(
	ctx context.Context,
	sc *StageContext,
	reranker domain.Reranker,
	cfg RerankConfig,
	logger *slog.Logger,
) {
	if !cfg.Enabled || reranker == nil {
		finalizeFromStage1(sc, cfg.FinalLimit)
		return
	}

	start := time.Now()

	shortlist := sc.Diversified
	if cfg.TopKInitial > 0 && len(shortlist) > cfg.TopKInitial {
		shortlist = shortlist[:cfg.TopKInitial]
	}
	if len(shortlist) == 0 {
		finalizeFromStage1(sc, cfg.FinalLimit)
		return
	}

	candidates := make([]domain.RerankCandidate, len(shortlist))
	for i, c := range shortlist {
		candidates[i] = domain.RerankCandidate{
			ID:      c.ID,
			Content: c.Content,
			Score:   c.HybridScore,
		}
	}

	rerankCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	reranked, err := reranker.Rerank(rerankCtx, sc.Preprocessed.Corrected, candidates)
	cancel()

	sc.Stage2Latency = time.Since(start)

	if err != nil {
		sc.Stage2Degraded = true
		sc.Errors = append(sc.Errors,
			fmt.Sprintf("reranking degraded to stage-1 order: %v", err))
		logger.Warn("reranking_failed_using_stage1_scores",
			slog.String("retrieval_id", sc.RetrievalID),
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", sc.Stage2Latency.Milliseconds()))
		finalizeFromStage1(sc, cfg.FinalLimit)
		return
	}

	logger.Info("reranking_completed",
		slog.String("retrieval_id", sc.RetrievalID),
		slog.Int("candidate_count", len(candidates)),
		slog.Int("reranked_count", len(reranked)),
		slog.String("model", reranker.ModelName()),
		slog.Int64("duration_ms", sc.Stage2Latency.Milliseconds()))

	blend := cfg.BlendWeight
	if blend <= 0 || blend > 1 {
		blend = DefaultBlendWeight
	}

	rerankScores := make(map[string]float64, len(reranked))
	for _, r := range reranked {
		rerankScores[r.ID] = r.Score
	}

	final := make([]domain.Candidate, len(shortlist))
	copy(final, shortlist)
	for i := range final {
		score, ok := rerankScores[final[i].ID]
		if !ok {
			// Model dropped the candidate; keep Stage-1 signal only.
			final[i].ConfidenceScore = (1 - blend) * final[i].HybridScore
			continue
		}
		s := score
		final[i].RerankScore = &s
		final[i].ConfidenceScore = blend*score + (1-blend)*final[i].HybridScore
	}

	sort.Slice(final, func(i, j int) bool {
		if final[i].ConfidenceScore != final[j].ConfidenceScore {
			return final[i].ConfidenceScore > final[j].ConfidenceScore
		}
		if final[i].HybridScore != final[j].HybridScore {
			return final[i].HybridScore > final[j].HybridScore
		}
		return final[i].ID < final[j].ID
	})

	if cfg.FinalLimit > 0 && len(final) > cfg.FinalLimit {
		final = final[:cfg.FinalLimit]
	}
	for i := range final {
		final[i].FinalRank = i + 1
		final[i].Stage2Latency = sc.Stage2Latency
	}

	sc.Final = final
	sc.Stage2Applied = true
}

// finalizeFromStage1 truncates the diversified Stage-1 ordering to the
// final limit and assigns final ranks. Confidence falls back to the
// hybrid score so downstream consumers always see a ranking score.
func finalizeFromStage1(sc *StageContext, finalLimit int) {
	final := append([]domain.Candidate(nil), sc.Diversified...)
	if finalLimit > 0 && len(final) > finalLimit {
		final = final[:finalLimit]
	}
	for i := range final {
		final[i].FinalRank = i + 1
		final[i].ConfidenceScore = final[i].HybridScore
	}
	sc.Final = final
}
