package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"retrieval-pipeline/internal/cache"
	"retrieval-pipeline/internal/domain"
	"retrieval-pipeline/internal/usecase/analytics"
	"retrieval-pipeline/internal/usecase/retrieval"
)

// SearchPipelineInput defines one retrieval request.
type SearchPipelineInput struct {
	Query       string
	DocumentIDs []string
	UserID      string
	Config      RetrievalConfig
}

// PipelineFlags reports which stages actually ran.
type PipelineFlags struct {
	Stage1Enabled      bool
	Stage2Enabled      bool
	ParallelProcessing bool
}

// PerformanceReport carries per-stage timing and document counts.
type PerformanceReport struct {
	Stage1LatencyMs   int64
	Stage2LatencyMs   int64
	TotalLatencyMs    int64
	InitialDocuments  int
	RerankedDocuments int
	FinalResults      int
}

// ExecutionMetadata names the models and methods used, for
// reproducibility.
type ExecutionMetadata struct {
	ModelsUsed    []string
	ProvidersUsed []string
	Stage1Method  string
	Stage2Method  string
}

// SearchPipelineOutput is the full result of one pipeline execution.
type SearchPipelineOutput struct {
	Results       []domain.Candidate
	Pipeline      PipelineFlags
	Performance   PerformanceReport
	Metadata      ExecutionMetadata
	Degraded      bool
	ExecutionTime time.Duration
}

// SearchPipelineUsecase runs the two-stage hybrid retrieval pipeline.
type SearchPipelineUsecase interface {
	Execute(ctx context.Context, input SearchPipelineInput) (*SearchPipelineOutput, error)
}

type searchPipelineUsecase struct {
	source   domain.CandidateSource
	reranker domain.Reranker
	tracker  *analytics.Tracker
	results  *cache.ResultCache[*SearchPipelineOutput]
	logger   *slog.Logger
}

// NewSearchPipelineUsecase wires the pipeline. tracker and results may
// be nil to disable analytics and caching respectively.
func NewSearchPipelineUsecase(
	source domain.CandidateSource,
	reranker domain.Reranker,
	tracker *analytics.Tracker,
	results *cache.ResultCache[*SearchPipelineOutput],
	logger *slog.Logger,
) SearchPipelineUsecase {
	return &searchPipelineUsecase{
		source:   source,
		reranker: reranker,
		tracker:  tracker,
		results:  results,
		logger:   logger,
	}
}

func (u *searchPipelineUsecase) Execute(ctx context.Context, input SearchPipelineInput) (*SearchPipelineOutput, error) {
	start := time.Now()

	if strings.TrimSpace(input.Query) == "" {
		return nil, domain.NewValidationError("query is required")
	}
	cfg := input.Config
	if err := cfg.Validate(); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	if drift := cfg.WeightsDrift(); drift > 1e-9 {
		u.logger.Warn("fusion_weights_do_not_sum_to_one",
			slog.Float64("semantic_weight", cfg.SemanticWeight),
			slog.Float64("lexical_weight", cfg.LexicalWeight),
			slog.Float64("drift", drift))
	}

	cacheKey := u.cacheKey(input, cfg)
	if u.results != nil {
		if cached, ok := u.results.Get(cacheKey); ok {
			u.logger.Info("result_cache_hit", slog.String("key", cacheKey[:12]))
			return copyOutput(cached), nil
		}
	}

	retrievalID := uuid.New().String()

	preprocessed, err := retrieval.Preprocess(input.Query, cfg.Preprocess)
	if err != nil {
		return nil, err
	}
	u.logger.Info("query_preprocessed",
		slog.String("retrieval_id", retrievalID),
		slog.String("corrected", preprocessed.Corrected),
		slog.String("intent", string(preprocessed.Intent)),
		slog.Int("variant_count", len(preprocessed.Variants)),
		slog.Float64("confidence", preprocessed.Confidence))

	sc := &retrieval.StageContext{
		RetrievalID:  retrievalID,
		RawQuery:     input.Query,
		DocumentIDs:  input.DocumentIDs,
		Preprocessed: preprocessed,
	}

	if err := u.runStage1(ctx, sc, cfg); err != nil {
		return nil, err
	}

	retrieval.Diversify(sc, cfg.MaxResultsPerDocument, u.logger)

	retrieval.Rerank(ctx, sc, u.reranker, retrieval.RerankConfig{
		Enabled:     cfg.EnableStage2,
		TopKInitial: cfg.TopKInitial,
		FinalLimit:  cfg.FinalLimit,
		Timeout:     cfg.Timeout,
		BlendWeight: cfg.BlendWeight,
	}, u.logger)

	out := u.buildOutput(sc, cfg, time.Since(start))

	if u.tracker != nil {
		u.tracker.Record(u.buildMetadata(sc, cfg, input.UserID, out))
	}
	if u.results != nil {
		u.results.Add(cacheKey, out)
	}

	u.logger.Info("pipeline_completed",
		slog.String("retrieval_id", retrievalID),
		slog.Int("result_count", len(out.Results)),
		slog.Bool("stage2_applied", sc.Stage2Applied),
		slog.Bool("degraded", out.Degraded),
		slog.Int64("total_ms", out.ExecutionTime.Milliseconds()))

	return copyOutput(out), nil
}

// runStage1 executes hybrid scoring with a bounded exponential-backoff
// retry on transient provider failures. Validation failures and context
// cancellation are never retried; a Stage-1 timeout is fatal for the
// request once the budget is spent.
func (u *searchPipelineUsecase) runStage1(ctx context.Context, sc *retrieval.StageContext, cfg RetrievalConfig) error {
	stage1Cfg := retrieval.Stage1Config{
		SemanticLimit:     cfg.SemanticLimit,
		LexicalLimit:      cfg.LexicalLimit,
		SemanticThreshold: cfg.SemanticThreshold,
		LexicalThreshold:  cfg.LexicalThreshold,
		SemanticWeight:    cfg.SemanticWeight,
		LexicalWeight:     cfg.LexicalWeight,
		Fusion:            cfg.Fusion,
		Normalization:     cfg.Normalization,
		RRFK:              cfg.RRFK,
		Parallel:          cfg.ParallelFetch,
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt, cfg.RetryBaseDelay, cfg.RetryMaxDelay)
			u.logger.Warn("stage1_retrying",
				slog.String("retrieval_id", sc.RetrievalID),
				slog.Int("attempt", attempt),
				slog.Int64("backoff_ms", delay.Milliseconds()),
				slog.String("error", lastErr.Error()))
			select {
			case <-ctx.Done():
				return domain.NewRetrievalError("request canceled during retry backoff", ctx.Err())
			case <-time.After(delay):
			}
		}

		stageCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		err := retrieval.FuseCandidates(stageCtx, sc, u.source, stage1Cfg, u.logger)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if !domain.IsRetryable(err) || ctx.Err() != nil {
			break
		}
	}
	return lastErr
}

// backoffDelay computes min(2^attempt * base, ceiling).
func backoffDelay(attempt int, base, ceiling time.Duration) time.Duration {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	delay := base << uint(attempt)
	if ceiling > 0 && delay > ceiling {
		delay = ceiling
	}
	return delay
}

func (u *searchPipelineUsecase) buildOutput(sc *retrieval.StageContext, cfg RetrievalConfig, elapsed time.Duration) *SearchPipelineOutput {
	stage2Method := "none"
	if sc.Stage2Applied {
		stage2Method = "cross_encoder_rerank"
	}

	var models, providers []string
	providers = append(providers, "hybrid_candidate_source")
	if sc.Stage2Applied && u.reranker != nil {
		models = append(models, u.reranker.ModelName())
		if cfg.RerankProvider != "" {
			providers = append(providers, cfg.RerankProvider)
		}
	}

	return &SearchPipelineOutput{
		Results: sc.Final,
		Pipeline: PipelineFlags{
			Stage1Enabled:      true,
			Stage2Enabled:      sc.Stage2Applied,
			ParallelProcessing: cfg.ParallelFetch,
		},
		Performance: PerformanceReport{
			Stage1LatencyMs:   sc.Stage1Latency.Milliseconds(),
			Stage2LatencyMs:   sc.Stage2Latency.Milliseconds(),
			TotalLatencyMs:    elapsed.Milliseconds(),
			InitialDocuments:  len(sc.Candidates),
			RerankedDocuments: len(sc.Diversified),
			FinalResults:      len(sc.Final),
		},
		Metadata: ExecutionMetadata{
			ModelsUsed:    models,
			ProvidersUsed: providers,
			Stage1Method:  string(sc.ChosenFusion),
			Stage2Method:  stage2Method,
		},
		Degraded:      sc.Stage2Degraded,
		ExecutionTime: elapsed,
	}
}

func (u *searchPipelineUsecase) buildMetadata(sc *retrieval.StageContext, cfg RetrievalConfig, userID string, out *SearchPipelineOutput) domain.PipelineMetadata {
	stage1Scores := make([]float64, len(sc.Candidates))
	for i, c := range sc.Candidates {
		stage1Scores[i] = c.HybridScore
	}
	finalScores := make([]float64, len(sc.Final))
	for i, c := range sc.Final {
		finalScores[i] = c.ConfidenceScore
	}

	correlation := 1.0
	if sc.Stage2Applied {
		correlation = analytics.RankCorrelation(sc.Final)
	}

	return domain.PipelineMetadata{
		ID:                  uuid.New(),
		Query:               sc.RawQuery,
		UserID:              userID,
		CreatedAt:           time.Now(),
		FusionMethod:        string(cfg.Fusion),
		ChosenFusionMethod:  string(sc.ChosenFusion),
		NormalizationMethod: string(cfg.Normalization),
		SemanticWeight:      cfg.SemanticWeight,
		LexicalWeight:       cfg.LexicalWeight,
		Stage2Enabled:       cfg.EnableStage2,
		Stage2Degraded:      sc.Stage2Degraded,
		Stages: []domain.StageMetrics{
			{
				Name:    "stage1_hybrid",
				Latency: sc.Stage1Latency,
				DocsIn:  sc.RawSemanticHits + sc.RawLexicalHits,
				DocsOut: len(sc.Candidates),
				Scores:  analytics.Distribution(stage1Scores),
			},
			{
				Name:    "diversify",
				DocsIn:  len(sc.Candidates),
				DocsOut: len(sc.Diversified),
			},
			{
				Name:    "stage2_rerank",
				Latency: sc.Stage2Latency,
				DocsIn:  len(sc.Diversified),
				DocsOut: len(sc.Final),
				Scores:  analytics.Distribution(finalScores),
			},
		},
		TotalLatency:    out.ExecutionTime,
		RankCorrelation: correlation,
		ModelsUsed:      out.Metadata.ModelsUsed,
		ProvidersUsed:   out.Metadata.ProvidersUsed,
		Errors:          sc.Errors,
	}
}

func (u *searchPipelineUsecase) cacheKey(input SearchPipelineInput, cfg RetrievalConfig) string {
	return cache.Key(
		input.Query,
		strings.Join(input.DocumentIDs, ","),
		fmt.Sprintf("%+v", cfg),
	)
}

// copyOutput shields cached entries from caller mutation of the result
// slice.
func copyOutput(out *SearchPipelineOutput) *SearchPipelineOutput {
	cp := *out
	cp.Results = append([]domain.Candidate(nil), out.Results...)
	return &cp
}
