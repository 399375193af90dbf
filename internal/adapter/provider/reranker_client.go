package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"retrieval-pipeline/internal/domain"
)

// rerankRequest is the payload for the rerank endpoint.
type rerankRequest struct {
	Query      string   `json:"query"`
	Candidates []string `json:"candidates"`
	Model      string   `json:"model,omitempty"`
}

// rerankResponseResult is one scored candidate, aligned by index.
type rerankResponseResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

type rerankResponse struct {
	Results []rerankResponseResult `json:"results"`
	Model   string                 `json:"model"`
}

// RerankerClient implements domain.Reranker against an HTTP
// cross-encoder service. Calls are rate limited client-side because
// cross-encoder inference is the slowest hop in the pipeline and the
// service degrades badly when flooded.
type RerankerClient struct {
	BaseURL string
	Model   string
	Client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewRerankerClient constructs a RerankerClient. requestsPerSecond <= 0
// disables rate limiting. If client is nil a default client with the
// given timeout is used.
func NewRerankerClient(baseURL, model string, timeout time.Duration, requestsPerSecond float64, logger *slog.Logger, client *http.Client) *RerankerClient {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return &RerankerClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		Client:  client,
		limiter: limiter,
		logger:  logger,
	}
}

// Rerank scores candidates against the query. Results come back sorted
// by score descending; on error callers fall back to Stage-1 ordering.
func (c *RerankerClient) Rerank(ctx context.Context, query string, candidates []domain.RerankCandidate) ([]domain.RerankResult, error) {
	if len(candidates) == 0 {
		return []domain.RerankResult{}, nil
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, domain.NewProviderTimeout("rerank rate limit wait canceled", err)
		}
	}

	start := time.Now()
	c.logger.Info("reranking_started",
		slog.String("query", truncate(query, 100)),
		slog.Int("candidate_count", len(candidates)),
		slog.String("model", c.Model))

	contents := make([]string, len(candidates))
	for i, cand := range candidates {
		contents[i] = cand.Content
	}

	jsonPayload, err := json.Marshal(rerankRequest{
		Query:      query,
		Candidates: contents,
		Model:      c.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rerank request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/rerank", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		c.logger.Warn("reranking_request_failed",
			slog.String("error", err.Error()),
			slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		if ctx.Err() != nil {
			return nil, domain.NewProviderTimeout("rerank call timed out", err)
		}
		return nil, domain.NewRerankingError("failed to call rerank endpoint", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, domain.NewRerankingError(
			fmt.Sprintf("rerank endpoint returned %d: %s", resp.StatusCode, truncate(string(body), 500)), nil)
	}

	var rerankResp rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&rerankResp); err != nil {
		return nil, domain.NewRerankingError("failed to decode rerank response", err)
	}

	results := make([]domain.RerankResult, len(rerankResp.Results))
	for i, r := range rerankResp.Results {
		if r.Index < 0 || r.Index >= len(candidates) {
			return nil, domain.NewRerankingError(
				fmt.Sprintf("invalid result index %d for %d candidates", r.Index, len(candidates)), nil)
		}
		results[i] = domain.RerankResult{
			ID:    candidates[r.Index].ID,
			Score: r.Score,
		}
	}

	c.logger.Info("reranking_response_received",
		slog.Int("result_count", len(results)),
		slog.String("model", rerankResp.Model),
		slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))

	return results, nil
}

// ModelName returns the model identifier for logging.
func (c *RerankerClient) ModelName() string {
	return c.Model
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
