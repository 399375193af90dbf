package retrieval_test

import (
	"testing"

	"retrieval-pipeline/internal/domain"
	"retrieval-pipeline/internal/usecase/retrieval"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocess_EmptyQuery(t *testing.T) {
	_, err := retrieval.Preprocess("", retrieval.DefaultPreprocessOptions())
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = retrieval.Preprocess("   \t  ", retrieval.DefaultPreprocessOptions())
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestPreprocess_PunctuationOnlyQuery(t *testing.T) {
	_, err := retrieval.Preprocess("?!... ---", retrieval.DefaultPreprocessOptions())
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestPreprocess_NormalizesAndKeepsOriginal(t *testing.T) {
	result, err := retrieval.Preprocess("  What is   Machine Learning?  ", retrieval.DefaultPreprocessOptions())
	require.NoError(t, err)

	assert.Equal(t, "  What is   Machine Learning?  ", result.Original)
	assert.Equal(t, "what is machine learning", result.Normalized)
	assert.Equal(t, "what is machine learning", result.Corrected)
}

func TestPreprocess_Deterministic(t *testing.T) {
	opts := retrieval.DefaultPreprocessOptions()
	first, err := retrieval.Preprocess("how does gradient descent work", opts)
	require.NoError(t, err)
	second, err := retrieval.Preprocess("how does gradient descent work", opts)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPreprocess_SpellCorrection(t *testing.T) {
	result, err := retrieval.Preprocess("machne lerning", retrieval.DefaultPreprocessOptions())
	require.NoError(t, err)

	assert.Equal(t, "machine learning", result.Corrected)
}

func TestPreprocess_SpellCorrectionLeavesDistantTokens(t *testing.T) {
	result, err := retrieval.Preprocess("xyzzyplugh retrieval", retrieval.DefaultPreprocessOptions())
	require.NoError(t, err)

	// No vocabulary word is within edit distance 2 of the garbage token.
	assert.Equal(t, "xyzzyplugh retrieval", result.Corrected)
}

func TestPreprocess_SpellCorrectionDisabled(t *testing.T) {
	opts := retrieval.DefaultPreprocessOptions()
	opts.EnableSpellCorrection = false

	result, err := retrieval.Preprocess("machne lerning", opts)
	require.NoError(t, err)
	assert.Equal(t, "machne lerning", result.Corrected)
}

func TestPreprocess_Reformulation(t *testing.T) {
	result, err := retrieval.Preprocess("What is a neural network?", retrieval.DefaultPreprocessOptions())
	require.NoError(t, err)

	assert.Contains(t, result.Variants, "what is a neural network")
	assert.Contains(t, result.Variants, "neural network")
	// Corrected query always comes first.
	assert.Equal(t, result.Corrected, result.Variants[0])
}

func TestPreprocess_ReformulationWhyAppendsReason(t *testing.T) {
	opts := retrieval.DefaultPreprocessOptions()
	opts.EnableSynonymExpansion = false

	result, err := retrieval.Preprocess("why is the model slow", opts)
	require.NoError(t, err)
	assert.Contains(t, result.Variants, "the model slow reason")
}

func TestPreprocess_SynonymExpansion(t *testing.T) {
	opts := retrieval.DefaultPreprocessOptions()
	opts.EnableQueryReformulation = false

	result, err := retrieval.Preprocess("semantic retrieval", opts)
	require.NoError(t, err)

	// Single-token substitutions only, no cross-product.
	assert.Contains(t, result.Variants, "meaning retrieval")
	assert.Contains(t, result.Variants, "semantic search")
	assert.NotContains(t, result.Variants, "meaning search")
}

func TestPreprocess_VariantsDeduplicated(t *testing.T) {
	result, err := retrieval.Preprocess("explain machine learning", retrieval.DefaultPreprocessOptions())
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, v := range result.Variants {
		assert.False(t, seen[v], "duplicate variant %q", v)
		seen[v] = true
	}
}

func TestPreprocess_EntityExtraction(t *testing.T) {
	result, err := retrieval.Preprocess("How did OpenAI train GPT in 2023?", retrieval.DefaultPreprocessOptions())
	require.NoError(t, err)

	assert.Contains(t, result.Entities, "OpenAI")
	assert.Contains(t, result.Entities, "GPT")
	assert.Contains(t, result.Entities, "2023")
	assert.NotContains(t, result.Entities, "train")
}

func TestPreprocess_EntityExtractionDisabled(t *testing.T) {
	opts := retrieval.DefaultPreprocessOptions()
	opts.PreserveEntities = false

	result, err := retrieval.Preprocess("How did OpenAI train GPT?", opts)
	require.NoError(t, err)
	assert.Empty(t, result.Entities)
}

func TestPreprocess_IntentClassification(t *testing.T) {
	cases := []struct {
		query  string
		intent domain.QueryIntent
	}{
		{"what is machine learning", domain.IntentDefinitional},
		{"define gradient descent", domain.IntentDefinitional},
		{"how to train a model", domain.IntentProcedural},
		{"how does attention work", domain.IntentProcedural},
		{"why is my model overfitting", domain.IntentCausal},
		{"postgres vs mysql performance", domain.IntentComparative},
		{"difference between precision and recall", domain.IntentComparative},
		{"when was the transformer paper published", domain.IntentTemporal},
		{"where is the config file", domain.IntentSpatial},
		{"who is the author of this paper", domain.IntentEntity},
		{"transformer architecture details", domain.IntentFactual},
	}

	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			result, err := retrieval.Preprocess(tc.query, retrieval.DefaultPreprocessOptions())
			require.NoError(t, err)
			assert.Equal(t, tc.intent, result.Intent)
		})
	}
}

func TestPreprocess_ConfidenceBounds(t *testing.T) {
	queries := []string{
		"ml",
		"what is machine learning",
		"How did OpenAI build the GPT transformer architecture in 2023?",
	}

	for _, q := range queries {
		result, err := retrieval.Preprocess(q, retrieval.DefaultPreprocessOptions())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, result.Confidence, 0.5)
		assert.LessOrEqual(t, result.Confidence, 1.0)
	}
}

func TestPreprocess_ConfidenceScoring(t *testing.T) {
	// Short factual query with no entities stays at the baseline.
	result, err := retrieval.Preprocess("cache tips", retrieval.DefaultPreprocessOptions())
	require.NoError(t, err)
	assert.InDelta(t, 0.5, result.Confidence, 1e-9)

	// Long definitional query with an entity collects every bonus.
	result, err = retrieval.Preprocess("What is the Transformer attention mechanism?", retrieval.DefaultPreprocessOptions())
	require.NoError(t, err)
	assert.InDelta(t, 0.9, result.Confidence, 1e-9)
}

func TestEditDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"machine", "machine", 0},
		{"machne", "machine", 1},
		{"lerning", "learning", 1},
		{"flaw", "lawn", 2},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, retrieval.EditDistance(tc.a, tc.b), "EditDistance(%q, %q)", tc.a, tc.b)
	}
}

func TestEditDistance_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"machine", "machne"},
		{"retrieval", "retreival"},
		{"abc", "xyz"},
	}
	for _, p := range pairs {
		assert.Equal(t, retrieval.EditDistance(p[0], p[1]), retrieval.EditDistance(p[1], p[0]))
	}
}
