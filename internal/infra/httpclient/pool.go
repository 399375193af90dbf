package httpclient

import (
	"net/http"
	"time"
)

// sharedTransport is reused across all pooled clients so the embedder,
// reranker, and lexical index connections share one idle pool.
var sharedTransport = &http.Transport{
	MaxIdleConns:        20,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     120 * time.Second,
	DisableKeepAlives:   false,
}

// NewPooledClient creates an http.Client that shares a connection pool
// with other pooled clients, avoiding repeated TCP handshakes to the
// same provider hosts.
func NewPooledClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: sharedTransport,
	}
}
