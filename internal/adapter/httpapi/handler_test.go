package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"retrieval-pipeline/internal/adapter/httpapi"
	"retrieval-pipeline/internal/domain"
	"retrieval-pipeline/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPipeline struct {
	lastInput usecase.SearchPipelineInput
	output    *usecase.SearchPipelineOutput
	err       error
}

func (s *stubPipeline) Execute(ctx context.Context, input usecase.SearchPipelineInput) (*usecase.SearchPipelineOutput, error) {
	s.lastInput = input
	if s.err != nil {
		return nil, s.err
	}
	return s.output, nil
}

func sampleOutput() *usecase.SearchPipelineOutput {
	rerank := 0.88
	return &usecase.SearchPipelineOutput{
		Results: []domain.Candidate{
			{
				ID:              "chunk-1",
				Content:         "hybrid retrieval combines signals",
				DocumentID:      "doc-1",
				SemanticScore:   0.91,
				LexicalScore:    0.4,
				HybridScore:     0.79,
				InitialRank:     1,
				RerankScore:     &rerank,
				ConfidenceScore: 0.85,
				FinalRank:       1,
			},
		},
		Pipeline: usecase.PipelineFlags{
			Stage1Enabled:      true,
			Stage2Enabled:      true,
			ParallelProcessing: true,
		},
		Performance: usecase.PerformanceReport{
			Stage1LatencyMs:   42,
			Stage2LatencyMs:   120,
			TotalLatencyMs:    170,
			InitialDocuments:  30,
			RerankedDocuments: 20,
			FinalResults:      1,
		},
		Metadata: usecase.ExecutionMetadata{
			ModelsUsed:    []string{"bge-reranker-v2-m3"},
			ProvidersUsed: []string{"hybrid_candidate_source", "cross-encoder"},
			Stage1Method:  "weighted_sum",
			Stage2Method:  "cross_encoder_rerank",
		},
		ExecutionTime: 170 * time.Millisecond,
	}
}

func doSearch(t *testing.T, pipeline usecase.SearchPipelineUsecase, body string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	handler := httpapi.NewHandler(pipeline)
	handler.Register(e)

	req := httptest.NewRequest(http.MethodPost, "/v1/search", bytes.NewReader([]byte(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSearch_Success(t *testing.T) {
	stub := &stubPipeline{output: sampleOutput()}

	rec := doSearch(t, stub, `{"query": "what is hybrid retrieval", "documentIds": ["doc-1"], "userId": "u-1"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	results := resp["results"].([]any)
	require.Len(t, results, 1)
	first := results[0].(map[string]any)
	assert.Equal(t, "chunk-1", first["id"])
	assert.Equal(t, "doc-1", first["document_id"])
	assert.InDelta(t, 0.88, first["rerank_score"].(float64), 1e-9)
	assert.EqualValues(t, 1, first["final_rank"])

	pipeline := resp["pipeline"].(map[string]any)
	assert.Equal(t, true, pipeline["stage1_enabled"])
	assert.Equal(t, true, pipeline["stage2_enabled"])
	assert.Equal(t, true, pipeline["parallel_processing"])

	perf := resp["performance"].(map[string]any)
	assert.EqualValues(t, 42, perf["stage1_latency_ms"])
	assert.EqualValues(t, 170, perf["total_latency_ms"])
	assert.EqualValues(t, 30, perf["initial_documents"])

	meta := resp["metadata"].(map[string]any)
	assert.Equal(t, "weighted_sum", meta["stage1_method"])
	assert.Equal(t, "cross_encoder_rerank", meta["stage2_method"])

	assert.Equal(t, false, resp["degraded"])
	assert.EqualValues(t, 170, resp["executionTime"])

	// Request fields reached the usecase.
	assert.Equal(t, "what is hybrid retrieval", stub.lastInput.Query)
	assert.Equal(t, []string{"doc-1"}, stub.lastInput.DocumentIDs)
	assert.Equal(t, "u-1", stub.lastInput.UserID)
}

func TestSearch_MissingQuery(t *testing.T) {
	stub := &stubPipeline{output: sampleOutput()}

	rec := doSearch(t, stub, `{"documentIds": ["doc-1"]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "query is required")
}

func TestSearch_MalformedBody(t *testing.T) {
	stub := &stubPipeline{output: sampleOutput()}

	rec := doSearch(t, stub, `{"query": `)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch_ValidationErrorMapsTo400(t *testing.T) {
	stub := &stubPipeline{err: domain.NewValidationError("finalLimit must be positive")}

	rec := doSearch(t, stub, `{"query": "valid"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "finalLimit")
}

func TestSearch_RetrievalErrorMapsTo500(t *testing.T) {
	stub := &stubPipeline{err: domain.NewRetrievalError("candidate source unavailable", nil)}

	rec := doSearch(t, stub, `{"query": "valid"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSearch_ConfigOverridesApplied(t *testing.T) {
	stub := &stubPipeline{output: sampleOutput()}

	rec := doSearch(t, stub, `{
		"query": "tuning test",
		"preset": "speed",
		"finalLimit": 7,
		"fusionMethod": "reciprocal_rank_fusion",
		"enableStage2": true,
		"timeoutMs": 1500
	}`)

	require.Equal(t, http.StatusOK, rec.Code)

	cfg := stub.lastInput.Config
	// Preset applied first, then explicit overrides on top of it.
	assert.Equal(t, 20, cfg.SemanticLimit)
	assert.Equal(t, 7, cfg.FinalLimit)
	assert.Equal(t, "reciprocal_rank_fusion", string(cfg.Fusion))
	assert.True(t, cfg.EnableStage2)
	assert.Equal(t, 1500*time.Millisecond, cfg.Timeout)
}

func TestHealth(t *testing.T) {
	e := echo.New()
	handler := httpapi.NewHandler(&stubPipeline{})
	handler.Register(e)

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
