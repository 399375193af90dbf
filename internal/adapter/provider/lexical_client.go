package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"retrieval-pipeline/internal/domain"
)

// LexicalClient queries an external term-based search index over HTTP.
type LexicalClient struct {
	BaseURL string
	Client  *http.Client
}

// NewLexicalClient constructs a LexicalClient. If client is nil a
// default client with the given timeout is used.
func NewLexicalClient(baseURL string, timeout time.Duration, client *http.Client) *LexicalClient {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &LexicalClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  client,
	}
}

type lexicalSearchResponse struct {
	Query string       `json:"query"`
	Hits  []lexicalHit `json:"hits"`
}

type lexicalHit struct {
	ID         string  `json:"id"`
	DocumentID string  `json:"document_id"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

// Search runs a term-based query against the index, optionally scoped
// to the given document ids.
func (c *LexicalClient) Search(ctx context.Context, query string, documentIDs []string, limit int) ([]domain.ScoredDocument, error) {
	u, err := url.Parse(fmt.Sprintf("%s/v1/search", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid lexical index url: %w", err)
	}

	q := u.Query()
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))
	if len(documentIDs) > 0 {
		q.Set("document_ids", strings.Join(documentIDs, ","))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create lexical search request: %w", err)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lexical search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lexical index returned status %d", resp.StatusCode)
	}

	var body lexicalSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode lexical search response: %w", err)
	}

	results := make([]domain.ScoredDocument, len(body.Hits))
	for i, hit := range body.Hits {
		results[i] = domain.ScoredDocument{
			ID:         hit.ID,
			DocumentID: hit.DocumentID,
			Content:    hit.Content,
			Score:      hit.Score,
		}
	}
	return results, nil
}
