package search

import (
	"context"
	"net/http"
	"time"

	"github.com/pmordasov/veracity/internal/model"
	"github.com/pmordasov/veracity/internal/util"
	"github.com/pmordasov/veracity/internal/worker"
)

// Backend is one external search service. Implementations must tolerate
// zero results and report backend unavailability as an error instead of
// panicking; the aggregator degrades errors to empty result lists.
type Backend interface {
	// Label is the category tag attached to results (e.g. "Web")
	Label() string

	// Search runs one query and returns up to maxResults hits
	Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error)
}

// newHTTPClient builds the client shared by backend implementations.
// No client-level timeout: each search call carries its own deadline.
func newHTTPClient(cfg model.SearchConfig) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:           util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, ""),
			MaxIdleConns:    16,
			IdleConnTimeout: 90 * time.Second,
		},
	}
}

// DefaultBackends constructs the standard backend pair: general web text
// and encyclopedic search, sharing one HTTP client and one per-host rate
// limiter.
func DefaultBackends(cfg model.SearchConfig, limiter *worker.Limiter) []Backend {
	client := newHTTPClient(cfg)
	return []Backend{
		NewDuckDuckGo(client, limiter, cfg.UserAgent, ""),
		NewWikipedia(client, limiter, cfg.UserAgent, ""),
	}
}
