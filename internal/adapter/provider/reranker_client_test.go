package provider

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"retrieval-pipeline/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestRerankerClient_Rerank_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/rerank", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test query", req.Query)
		assert.Len(t, req.Candidates, 3)
		assert.Equal(t, "bge-reranker-v2-m3", req.Model)

		resp := rerankResponse{
			Results: []rerankResponseResult{
				{Index: 1, Score: 0.95},
				{Index: 0, Score: 0.85},
				{Index: 2, Score: 0.75},
			},
			Model: "bge-reranker-v2-m3",
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewRerankerClient(server.URL, "bge-reranker-v2-m3", 30*time.Second, 0, testLogger(), nil)

	candidates := []domain.RerankCandidate{
		{ID: "chunk-1", Content: "content about retrieval", Score: 0.8},
		{ID: "chunk-2", Content: "content about ranking", Score: 0.7},
		{ID: "chunk-3", Content: "content about storage", Score: 0.6},
	}

	results, err := client.Rerank(context.Background(), "test query", candidates)
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "chunk-2", results[0].ID)
	assert.InDelta(t, 0.95, results[0].Score, 1e-9)
	assert.Equal(t, "chunk-1", results[1].ID)
	assert.Equal(t, "chunk-3", results[2].ID)
}

func TestRerankerClient_Rerank_EmptyCandidates(t *testing.T) {
	client := NewRerankerClient("http://unused", "m", time.Second, 0, testLogger(), nil)

	results, err := client.Rerank(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRerankerClient_Rerank_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewRerankerClient(server.URL, "m", time.Second, 0, testLogger(), nil)

	_, err := client.Rerank(context.Background(), "q", []domain.RerankCandidate{{ID: "a", Content: "x"}})
	require.Error(t, err)
	assert.Equal(t, domain.KindReranking, domain.KindOf(err))
}

func TestRerankerClient_Rerank_InvalidIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(rerankResponse{
			Results: []rerankResponseResult{{Index: 5, Score: 0.9}},
		})
	}))
	defer server.Close()

	client := NewRerankerClient(server.URL, "m", time.Second, 0, testLogger(), nil)

	_, err := client.Rerank(context.Background(), "q", []domain.RerankCandidate{{ID: "a", Content: "x"}})
	require.Error(t, err)
	assert.Equal(t, domain.KindReranking, domain.KindOf(err))
}

func TestRerankerClient_Rerank_ContextCanceledDuringRateLimit(t *testing.T) {
	// Burst 1 is consumed by the first call; the second must wait ~10s
	// at 0.1 rps and gets canceled instead.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(rerankResponse{
			Results: []rerankResponseResult{{Index: 0, Score: 0.5}},
		})
	}))
	defer server.Close()

	client := NewRerankerClient(server.URL, "m", time.Second, 0.1, testLogger(), nil)
	candidates := []domain.RerankCandidate{{ID: "a", Content: "x"}}

	_, err := client.Rerank(context.Background(), "q", candidates)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Rerank(ctx, "q", candidates)
	require.Error(t, err)
	assert.Equal(t, domain.KindProviderTimeout, domain.KindOf(err))
}
