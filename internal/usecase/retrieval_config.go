package usecase

import (
	"fmt"
	"strings"
	"time"

	"retrieval-pipeline/internal/usecase/retrieval"
)

// RetrievalConfig holds per-request tunables for the two-stage pipeline.
// It is supplied by the caller and read-only during execution.
type RetrievalConfig struct {
	// Candidate limits per channel and for the final result set.
	SemanticLimit int
	LexicalLimit  int
	FinalLimit    int

	// Fusion weights applied to normalized scores. Weights that do not
	// sum to 1 are tolerated and logged, never rejected.
	SemanticWeight float64
	LexicalWeight  float64

	// Similarity thresholds. A candidate failing both is excluded; one
	// passing either stays eligible.
	SemanticThreshold float64
	LexicalThreshold  float64

	Fusion        retrieval.FusionMethod
	Normalization retrieval.NormalizationMethod
	RRFK          float64

	// MaxResultsPerDocument caps candidates per source document.
	MaxResultsPerDocument int

	// Stage 2 settings.
	EnableStage2   bool
	TopKInitial    int
	RerankProvider string
	RerankModel    string
	BlendWeight    float64

	// External call budget.
	Timeout        time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// ParallelFetch fans out semantic and lexical fetches concurrently.
	ParallelFetch bool

	Preprocess retrieval.PreprocessOptions
}

// DefaultRetrievalConfig returns the balanced defaults: 50-candidate
// pre-ranking pools reranked down to 10, RRF k=60, min-max
// normalization, and weighted-sum fusion slightly favoring semantic.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		SemanticLimit:         50,
		LexicalLimit:          50,
		FinalLimit:            10,
		SemanticWeight:        0.6,
		LexicalWeight:         0.4,
		SemanticThreshold:     0.0,
		LexicalThreshold:      0.0,
		Fusion:                retrieval.FusionWeightedSum,
		Normalization:         retrieval.NormalizeMinMax,
		RRFK:                  retrieval.DefaultRRFK,
		MaxResultsPerDocument: 3,
		EnableStage2:          true,
		TopKInitial:           30,
		BlendWeight:           retrieval.DefaultBlendWeight,
		Timeout:               10 * time.Second,
		RetryAttempts:         2,
		RetryBaseDelay:        100 * time.Millisecond,
		RetryMaxDelay:         2 * time.Second,
		ParallelFetch:         true,
		Preprocess:            retrieval.DefaultPreprocessOptions(),
	}
}

// Validate checks structural validity. Weight-sum drift is deliberately
// not an error here; the orchestrator logs it instead.
func (c RetrievalConfig) Validate() error {
	if c.SemanticLimit <= 0 {
		return fmt.Errorf("semanticLimit must be positive, got %d", c.SemanticLimit)
	}
	if c.LexicalLimit <= 0 {
		return fmt.Errorf("lexicalLimit must be positive, got %d", c.LexicalLimit)
	}
	if c.FinalLimit <= 0 {
		return fmt.Errorf("finalLimit must be positive, got %d", c.FinalLimit)
	}
	if c.SemanticWeight < 0 || c.LexicalWeight < 0 {
		return fmt.Errorf("fusion weights must be non-negative, got (%f, %f)",
			c.SemanticWeight, c.LexicalWeight)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("retryAttempts must be non-negative, got %d", c.RetryAttempts)
	}
	switch c.Fusion {
	case retrieval.FusionWeightedSum, retrieval.FusionRRF,
		retrieval.FusionCombSum, retrieval.FusionAdaptive:
	default:
		return fmt.Errorf("unknown fusion method %q", c.Fusion)
	}
	switch c.Normalization {
	case retrieval.NormalizeMinMax, retrieval.NormalizeZScore,
		retrieval.NormalizeRankBased:
	default:
		return fmt.Errorf("unknown normalization method %q", c.Normalization)
	}
	if c.EnableStage2 && c.TopKInitial <= 0 {
		return fmt.Errorf("topKInitial must be positive when stage 2 is enabled, got %d", c.TopKInitial)
	}
	return nil
}

// WeightsDrift reports how far the fusion weights are from summing to 1.
func (c RetrievalConfig) WeightsDrift() float64 {
	drift := c.SemanticWeight + c.LexicalWeight - 1.0
	if drift < 0 {
		return -drift
	}
	return drift
}

// Preset names a pre-populated configuration profile.
type Preset string

const (
	PresetSpeed    Preset = "speed"
	PresetAccuracy Preset = "accuracy"
	PresetBalanced Preset = "balanced"
)

var technicalTerms = []string{
	"algorithm", "api", "architecture", "async", "cache", "compiler",
	"concurrency", "database", "embedding", "encryption", "gradient",
	"index", "inference", "kernel", "latency", "neural", "protocol",
	"query", "regression", "runtime", "schema", "tensor", "transformer",
	"vector",
}

var questionWords = []string{"what", "when", "where", "which", "who", "why", "how"}

var negationWords = []string{"not", "no", "never", "without", "except", "exclude"}

// QueryComplexity scores a query in [0,1] from token count, presence of
// technical terms, question words, and negation. Used only to pick
// preset parameters; it is a convenience, not a correctness boundary.
func QueryComplexity(query string) float64 {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return 0
	}

	score := 0.0
	switch {
	case len(tokens) > 12:
		score += 0.4
	case len(tokens) > 6:
		score += 0.25
	case len(tokens) > 3:
		score += 0.1
	}
	if containsAny(tokens, technicalTerms) {
		score += 0.25
	}
	if containsAny(tokens, questionWords) {
		score += 0.15
	}
	if containsAny(tokens, negationWords) {
		score += 0.2
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func containsAny(tokens []string, words []string) bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	for _, w := range words {
		if set[w] {
			return true
		}
	}
	return false
}

// PresetConfig builds a RetrievalConfig for the named preset, sizing
// limits by the query's complexity score. Unknown presets fall back to
// balanced.
func PresetConfig(preset Preset, query string) RetrievalConfig {
	cfg := DefaultRetrievalConfig()
	complexity := QueryComplexity(query)

	switch preset {
	case PresetSpeed:
		cfg.SemanticLimit = 20
		cfg.LexicalLimit = 20
		cfg.FinalLimit = 5
		cfg.EnableStage2 = false
		cfg.Timeout = 3 * time.Second
		cfg.Preprocess.EnableSynonymExpansion = false
		if complexity > 0.6 {
			// Complex queries still get a wider Stage-1 pool.
			cfg.SemanticLimit = 30
			cfg.LexicalLimit = 30
		}
	case PresetAccuracy:
		cfg.SemanticLimit = 100
		cfg.LexicalLimit = 100
		cfg.FinalLimit = 15
		cfg.TopKInitial = 50
		cfg.Fusion = retrieval.FusionAdaptive
		cfg.Timeout = 30 * time.Second
		cfg.RetryAttempts = 3
		if complexity < 0.3 {
			// Simple queries do not benefit from the widest pool.
			cfg.SemanticLimit = 60
			cfg.LexicalLimit = 60
		}
	default:
		if complexity > 0.6 {
			cfg.Fusion = retrieval.FusionAdaptive
			cfg.TopKInitial = 40
		}
	}
	return cfg
}
