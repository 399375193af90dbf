package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexicalClient_Search_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/search", r.URL.Path)
		assert.Equal(t, "neural networks", r.URL.Query().Get("q"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		assert.Equal(t, "doc-1,doc-2", r.URL.Query().Get("document_ids"))

		_ = json.NewEncoder(w).Encode(lexicalSearchResponse{
			Query: "neural networks",
			Hits: []lexicalHit{
				{ID: "c1", DocumentID: "doc-1", Content: "intro", Score: 0.9},
				{ID: "c2", DocumentID: "doc-2", Content: "details", Score: 0.7},
			},
		})
	}))
	defer server.Close()

	client := NewLexicalClient(server.URL, time.Second, nil)

	hits, err := client.Search(context.Background(), "neural networks", []string{"doc-1", "doc-2"}, 25)
	require.NoError(t, err)

	require.Len(t, hits, 2)
	assert.Equal(t, "c1", hits[0].ID)
	assert.Equal(t, "doc-1", hits[0].DocumentID)
	assert.InDelta(t, 0.9, hits[0].Score, 1e-9)
}

func TestLexicalClient_Search_NoDocumentFilter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("document_ids"))
		_ = json.NewEncoder(w).Encode(lexicalSearchResponse{Hits: []lexicalHit{}})
	}))
	defer server.Close()

	client := NewLexicalClient(server.URL, time.Second, nil)

	hits, err := client.Search(context.Background(), "q", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestLexicalClient_Search_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "index rebuilding", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewLexicalClient(server.URL, time.Second, nil)

	_, err := client.Search(context.Background(), "q", nil, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}
