package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Embedder calls an Ollama-compatible embedding endpoint.
type Embedder struct {
	BaseURL string
	Model   string
	Client  *http.Client
	logger  *slog.Logger
}

// NewEmbedder constructs an Embedder. If client is nil a default client
// with the given timeout is used.
func NewEmbedder(baseURL, model string, timeout time.Duration, logger *slog.Logger, client *http.Client) *Embedder {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Embedder{
		BaseURL: baseURL,
		Model:   model,
		Client:  client,
		logger:  logger,
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Encode turns texts into fixed-length vectors.
func (e *Embedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()

	jsonData, err := json.Marshal(embedRequest{Model: e.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	url := fmt.Sprintf("%s/api/embed", e.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.Client.Do(req)
	if err != nil {
		e.logger.Error("embed_request_failed",
			slog.String("error", err.Error()),
			slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		return nil, fmt.Errorf("failed to call embedding provider: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding provider returned status %d", resp.StatusCode)
	}

	var respBody embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}
	if len(respBody.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(respBody.Embeddings))
	}

	e.logger.Info("embed_completed",
		slog.Int("text_count", len(texts)),
		slog.String("model", e.Model),
		slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))

	return respBody.Embeddings, nil
}

// Version returns the embedding model identifier.
func (e *Embedder) Version() string {
	return e.Model
}
