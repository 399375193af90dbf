package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"retrieval-pipeline/internal/domain"
)

// FusionMethod selects how semantic and lexical scores are combined.
type FusionMethod string

const (
	FusionWeightedSum FusionMethod = "weighted_sum"
	FusionRRF         FusionMethod = "reciprocal_rank_fusion"
	FusionCombSum     FusionMethod = "comb_sum"
	FusionAdaptive    FusionMethod = "adaptive"
)

// DefaultRRFK is the standard RRF smoothing constant, empirically
// validated across domains.
const DefaultRRFK = 60.0

// Stage1Config holds hybrid scoring parameters.
type Stage1Config struct {
	SemanticLimit     int
	LexicalLimit      int
	SemanticThreshold float64
	LexicalThreshold  float64
	SemanticWeight    float64
	LexicalWeight     float64
	Fusion            FusionMethod
	Normalization     NormalizationMethod
	RRFK              float64
	// Parallel fans out the per-variant channel fetches concurrently.
	// When false the fetches still share the same code path but run one
	// at a time.
	Parallel bool
}

// channelHit accumulates the best raw score seen for a candidate in one
// retrieval channel across query variants.
type channelHit struct {
	doc   domain.ScoredDocument
	score float64
	found bool
}

// FuseCandidates fetches raw semantic and lexical scores for every query
// variant in parallel, filters by threshold, normalizes, and fuses them
// into one ranked candidate list (Stage 1).
//
// A candidate source error fails the whole stage; partial results from
// one variant are never silently merged with a failed variant.
func FuseCandidates(
	ctx context.Context,
	sc *StageContext,
	source domain.CandidateSource,
	cfg Stage1Config,
	logger *slog.Logger,
) error {
	start := time.Now()

	variants := sc.Preprocessed.Variants
	if len(variants) == 0 {
		variants = []string{sc.Preprocessed.Corrected}
	}

	semByVariant := make([][]domain.ScoredDocument, len(variants))
	lexByVariant := make([][]domain.ScoredDocument, len(variants))

	g, gctx := errgroup.WithContext(ctx)
	if !cfg.Parallel {
		g.SetLimit(1)
	}
	for i, variant := range variants {
		g.Go(func() error {
			hits, err := source.SemanticSearch(gctx, variant, sc.DocumentIDs, cfg.SemanticLimit)
			if err != nil {
				return classifyFetchError("semantic search failed", err)
			}
			semByVariant[i] = hits
			return nil
		})
		g.Go(func() error {
			hits, err := source.LexicalSearch(gctx, variant, sc.DocumentIDs, cfg.LexicalLimit)
			if err != nil {
				return classifyFetchError("lexical search failed", err)
			}
			lexByVariant[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fetchDuration := time.Since(start)
	logger.Info("candidate_fetch_completed",
		slog.String("retrieval_id", sc.RetrievalID),
		slog.Int("variant_count", len(variants)),
		slog.Int64("duration_ms", fetchDuration.Milliseconds()))

	semantic := mergeVariantHits(semByVariant)
	lexical := mergeVariantHits(lexByVariant)
	sc.RawSemanticHits = len(semantic)
	sc.RawLexicalHits = len(lexical)

	sc.Candidates = fuseChannels(sc, semantic, lexical, cfg, logger)
	sc.Stage1Latency = time.Since(start)
	for i := range sc.Candidates {
		sc.Candidates[i].Stage1Latency = sc.Stage1Latency
	}

	logger.Info("hybrid_fusion_completed",
		slog.String("retrieval_id", sc.RetrievalID),
		slog.String("method", string(sc.ChosenFusion)),
		slog.Int("semantic_count", len(semantic)),
		slog.Int("lexical_count", len(lexical)),
		slog.Int("fused_count", len(sc.Candidates)),
		slog.Int64("duration_ms", sc.Stage1Latency.Milliseconds()))

	return nil
}

func classifyFetchError(message string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewProviderTimeout(message, err)
	}
	var pe *domain.PipelineError
	if errors.As(err, &pe) {
		return err
	}
	return domain.NewRetrievalError(message, err)
}

// mergeVariantHits deduplicates hits across query variants, keeping the
// best raw score per candidate id.
func mergeVariantHits(byVariant [][]domain.ScoredDocument) map[string]channelHit {
	merged := make(map[string]channelHit)
	for _, hits := range byVariant {
		for _, hit := range hits {
			existing, ok := merged[hit.ID]
			if !ok || hit.Score > existing.score {
				merged[hit.ID] = channelHit{doc: hit, score: hit.Score, found: true}
			}
		}
	}
	return merged
}

func fuseChannels(
	sc *StageContext,
	semantic, lexical map[string]channelHit,
	cfg Stage1Config,
	logger *slog.Logger,
) []domain.Candidate {
	// Union of both channels, threshold-filtered. Passing either
	// threshold keeps the candidate; a channel the candidate is absent
	// from counts as a failure of that channel's threshold.
	ids := make(map[string]bool, len(semantic)+len(lexical))
	for id := range semantic {
		ids[id] = true
	}
	for id := range lexical {
		ids[id] = true
	}

	candidates := make([]domain.Candidate, 0, len(ids))
	for id := range ids {
		sem, semOK := semantic[id]
		lex, lexOK := lexical[id]

		passSem := semOK && sem.score >= cfg.SemanticThreshold
		passLex := lexOK && lex.score >= cfg.LexicalThreshold
		if !passSem && !passLex {
			continue
		}

		doc := sem.doc
		if !semOK {
			doc = lex.doc
		}
		candidates = append(candidates, domain.Candidate{
			ID:            id,
			Content:       doc.Content,
			DocumentID:    doc.DocumentID,
			SemanticScore: sem.score,
			LexicalScore:  lex.score,
		})
	}

	if len(candidates) == 0 {
		sc.ChosenFusion = cfg.Fusion
		return candidates
	}

	method := cfg.Fusion
	if method == FusionAdaptive {
		method = chooseAdaptiveMethod(candidates)
		logger.Info("adaptive_fusion_selected",
			slog.String("retrieval_id", sc.RetrievalID),
			slog.String("method", string(method)))
	}
	sc.ChosenFusion = method

	switch method {
	case FusionRRF:
		applyRRF(candidates, semantic, lexical, rrfK(cfg))
	case FusionCombSum:
		applyWeightedSum(candidates, semantic, lexical, 1.0, 1.0, cfg.Normalization)
	default:
		applyWeightedSum(candidates, semantic, lexical, cfg.SemanticWeight, cfg.LexicalWeight, cfg.Normalization)
	}

	// Hybrid score descending, ties by raw semantic score, then id.
	// Stable and deterministic across runs.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].HybridScore != candidates[j].HybridScore {
			return candidates[i].HybridScore > candidates[j].HybridScore
		}
		if candidates[i].SemanticScore != candidates[j].SemanticScore {
			return candidates[i].SemanticScore > candidates[j].SemanticScore
		}
		return candidates[i].ID < candidates[j].ID
	})
	for i := range candidates {
		candidates[i].InitialRank = i + 1
	}
	return candidates
}

func rrfK(cfg Stage1Config) float64 {
	if cfg.RRFK > 0 {
		return cfg.RRFK
	}
	return DefaultRRFK
}

// applyWeightedSum normalizes each channel across the surviving
// candidates and blends them. Candidates absent from a channel
// contribute zero there.
func applyWeightedSum(
	candidates []domain.Candidate,
	semantic, lexical map[string]channelHit,
	semanticWeight, lexicalWeight float64,
	method NormalizationMethod,
) {
	normSem := normalizeChannel(candidates, semantic, method)
	normLex := normalizeChannel(candidates, lexical, method)
	for i := range candidates {
		candidates[i].HybridScore = semanticWeight*normSem[i] + lexicalWeight*normLex[i]
	}
}

// normalizeChannel normalizes only the scores of candidates present in
// the channel; absent candidates get zero.
func normalizeChannel(
	candidates []domain.Candidate,
	channel map[string]channelHit,
	method NormalizationMethod,
) []float64 {
	var present []float64
	var presentIdx []int
	for i, c := range candidates {
		if hit, ok := channel[c.ID]; ok {
			present = append(present, hit.score)
			presentIdx = append(presentIdx, i)
		}
	}

	out := make([]float64, len(candidates))
	for i, norm := range NormalizeScores(present, method) {
		out[presentIdx[i]] = norm
	}
	return out
}

// applyRRF scores each candidate by the sum of reciprocal ranks over the
// channels it appears in: hybrid = sum 1/(k + rank).
func applyRRF(
	candidates []domain.Candidate,
	semantic, lexical map[string]channelHit,
	k float64,
) {
	semRanks := channelRanks(semantic)
	lexRanks := channelRanks(lexical)
	for i := range candidates {
		score := 0.0
		if rank, ok := semRanks[candidates[i].ID]; ok {
			score += 1.0 / (k + float64(rank))
		}
		if rank, ok := lexRanks[candidates[i].ID]; ok {
			score += 1.0 / (k + float64(rank))
		}
		candidates[i].HybridScore = score
	}
}

// channelRanks assigns 1-indexed ranks by raw score descending, ties
// broken by id for determinism.
func channelRanks(channel map[string]channelHit) map[string]int {
	ids := make([]string, 0, len(channel))
	for id := range channel {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool {
		sa, sb := channel[ids[a]].score, channel[ids[b]].score
		if sa != sb {
			return sa > sb
		}
		return ids[a] < ids[b]
	})

	ranks := make(map[string]int, len(ids))
	for i, id := range ids {
		ranks[id] = i + 1
	}
	return ranks
}

// chooseAdaptiveMethod picks weighted_sum for well-behaved score
// distributions and RRF when either channel is heavily skewed or
// degenerate, where rank-based fusion is more robust than magnitudes.
func chooseAdaptiveMethod(candidates []domain.Candidate) FusionMethod {
	semScores := make([]float64, 0, len(candidates))
	lexScores := make([]float64, 0, len(candidates))
	for _, c := range candidates {
		semScores = append(semScores, c.SemanticScore)
		lexScores = append(lexScores, c.LexicalScore)
	}
	if distributionSkewed(semScores) || distributionSkewed(lexScores) {
		return FusionRRF
	}
	return FusionWeightedSum
}

// distributionSkewed flags a score list whose mean drifts more than one
// standard deviation from its median, or whose spread is negligible.
func distributionSkewed(scores []float64) bool {
	if len(scores) < 3 {
		return false
	}

	mean := 0.0
	for _, s := range scores {
		mean += s
	}
	mean /= float64(len(scores))

	variance := 0.0
	for _, s := range scores {
		variance += (s - mean) * (s - mean)
	}
	stddev := math.Sqrt(variance / float64(len(scores)))
	if stddev < 1e-9 {
		return true
	}

	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)
	median := sorted[len(sorted)/2]
	if len(sorted)%2 == 0 {
		median = (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2
	}

	return math.Abs(mean-median)/stddev > 1.0
}
