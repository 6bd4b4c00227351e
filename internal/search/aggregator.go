package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/pmordasov/veracity/internal/cache"
	"github.com/pmordasov/veracity/internal/llm"
	"github.com/pmordasov/veracity/internal/model"
	"github.com/pmordasov/veracity/internal/worker"
)

// maxQueryCandidates caps how many query variants one claim may produce
const maxQueryCandidates = 2

// Invoker is the slice of the model gateway the aggregator needs
type Invoker interface {
	Invoke(ctx context.Context, prompt string) string
}

// Aggregator turns one claim into a formatted evidence block. It derives
// up to two query candidates, fans each out across all backends on the
// shared worker pool, and merges the results.
//
// The weighted semaphore bounds in-flight backend searches across the
// whole process, independent of how many claims run concurrently; it is
// owned by whoever starts a batch and passed in here.
type Aggregator struct {
	invoker  Invoker
	backends []Backend
	pool     *worker.Pool
	sem      *semaphore.Weighted
	cache    cache.Cache

	timeout    time.Duration
	maxResults int
	perBackend int
	cacheTTL   time.Duration
	logger     *slog.Logger
}

// NewAggregator wires the aggregator. pool must be started; sem may be
// shared with other aggregators. c may be nil to disable caching.
func NewAggregator(inv Invoker, backends []Backend, pool *worker.Pool, sem *semaphore.Weighted, c cache.Cache, cfg model.SearchConfig, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 12
	}
	perBackend := cfg.PerBackend
	if perBackend <= 0 {
		perBackend = 4
	}
	return &Aggregator{
		invoker:    inv,
		backends:   backends,
		pool:       pool,
		sem:        sem,
		cache:      c,
		timeout:    timeout,
		maxResults: maxResults,
		perBackend: perBackend,
		cacheTTL:   cfg.CacheTTL,
		logger:     logger.With("component", "search"),
	}
}

// Aggregate searches the web for evidence about one claim and renders a
// bounded, deduplicated text block. It never fails: backend errors and
// timeouts degrade to fewer (possibly zero) results.
func (a *Aggregator) Aggregate(ctx context.Context, claim string) string {
	query := a.deriveQuery(ctx, claim)
	candidates := []string{query}
	if !strings.EqualFold(strings.TrimSpace(claim), query) {
		candidates = append(candidates, strings.TrimSpace(claim))
	}
	if len(candidates) > maxQueryCandidates {
		candidates = candidates[:maxQueryCandidates]
	}

	merged := a.searchAll(ctx, candidates)
	merged = model.DedupeResults(merged, a.maxResults)

	if len(merged) == 0 {
		return fmt.Sprintf("No relevant results found for query: %s", query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Search Query Used: %s\n\n", query)
	for i, r := range merged {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%s] %s: %s (Source: %s)", r.Label, r.Title, r.Body, r.URL)
	}
	return b.String()
}

// deriveQuery asks the model to strip attribution framing and produce
// plain keywords; on gateway failure the raw claim text is the query.
func (a *Aggregator) deriveQuery(ctx context.Context, claim string) string {
	prompt := fmt.Sprintf(`Task: Convert the following factual claim into a simple, effective web search query to verify it.
Claim: %q
Output: Return ONLY the search query string. No quotes, no explanations.`, claim)

	resp := a.invoker.Invoke(ctx, prompt)
	if llm.IsErrorResult(resp) {
		a.logger.Warn("query derivation failed, using raw claim", "claim", truncate(claim, 80))
		return strings.TrimSpace(claim)
	}

	query := strings.TrimSpace(strings.ReplaceAll(resp, `"`, ""))
	if idx := strings.IndexByte(query, '\n'); idx >= 0 {
		query = strings.TrimSpace(query[:idx])
	}
	if query == "" {
		return strings.TrimSpace(claim)
	}
	return query
}

// searchAll dispatches every candidate x backend pair concurrently and
// merges the outcomes preserving dispatch order.
func (a *Aggregator) searchAll(ctx context.Context, candidates []string) []model.SearchResult {
	type slot struct {
		results []model.SearchResult
	}

	slots := make([]slot, len(candidates)*len(a.backends))
	var wg sync.WaitGroup

	for qi, query := range candidates {
		for bi, backend := range a.backends {
			wg.Add(1)
			go func(idx int, query string, backend Backend) {
				defer wg.Done()
				slots[idx].results = a.searchOne(ctx, backend, query)
			}(qi*len(a.backends)+bi, query, backend)
		}
	}
	wg.Wait()

	var merged []model.SearchResult
	for _, s := range slots {
		merged = append(merged, s.results...)
	}
	return merged
}

// searchJob runs one backend call on the worker pool
type searchJob struct {
	backend Backend
	query   string
	max     int
}

type searchJobResult struct {
	results []model.SearchResult
	err     error
}

func (r *searchJobResult) GetError() error { return r.err }

func (j *searchJob) Execute(ctx context.Context) worker.Result {
	results, err := j.backend.Search(ctx, j.query, j.max)
	return &searchJobResult{results: results, err: err}
}

// searchOne performs a single sub-search: semaphore gate, cache lookup,
// pool dispatch, per-call timeout. Every failure mode degrades to an
// empty result list; siblings are never affected.
func (a *Aggregator) searchOne(ctx context.Context, backend Backend, query string) []model.SearchResult {
	if cached, ok := a.cacheGet(backend.Label(), query); ok {
		return cached
	}

	if err := a.sem.Acquire(ctx, 1); err != nil {
		return nil
	}
	defer a.sem.Release(1)

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	ch := a.pool.Dispatch(callCtx, &searchJob{backend: backend, query: query, max: a.perBackend})

	select {
	case res, ok := <-ch:
		if !ok {
			return nil
		}
		jr := res.(*searchJobResult)
		if jr.err != nil {
			a.logger.Warn("backend search degraded", "backend", backend.Label(), "query", truncate(query, 60), "error", jr.err)
			return nil
		}
		a.cacheSet(backend.Label(), query, jr.results)
		return jr.results
	case <-callCtx.Done():
		a.logger.Warn("backend search timed out", "backend", backend.Label(), "query", truncate(query, 60), "timeout", a.timeout)
		return nil
	}
}

func (a *Aggregator) cacheGet(label, query string) ([]model.SearchResult, bool) {
	if a.cache == nil {
		return nil, false
	}
	raw, ok := a.cache.Get(cache.Key(label, query))
	if !ok {
		return nil, false
	}
	var results []model.SearchResult
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, false
	}
	return results, true
}

func (a *Aggregator) cacheSet(label, query string, results []model.SearchResult) {
	if a.cache == nil || len(results) == 0 {
		return
	}
	if raw, err := json.Marshal(results); err == nil {
		_ = a.cache.Set(cache.Key(label, query), raw, a.cacheTTL)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
