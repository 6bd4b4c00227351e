package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/pmordasov/veracity/internal/model"
	"github.com/pmordasov/veracity/internal/worker"
)

const defaultWikipediaURL = "https://en.wikipedia.org/w/api.php"

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// Wikipedia is the encyclopedic backend, built on the MediaWiki search API
type Wikipedia struct {
	httpClient *http.Client
	limiter    *worker.Limiter
	userAgent  string
	baseURL    string
}

// NewWikipedia creates the backend; baseURL overrides the endpoint for tests
func NewWikipedia(client *http.Client, limiter *worker.Limiter, userAgent, baseURL string) *Wikipedia {
	if baseURL == "" {
		baseURL = defaultWikipediaURL
	}
	return &Wikipedia{
		httpClient: client,
		limiter:    limiter,
		userAgent:  userAgent,
		baseURL:    baseURL,
	}
}

// Label returns the category tag for this backend
func (w *Wikipedia) Label() string {
	return "Wikipedia"
}

// wikiSearchResponse is the subset of the MediaWiki response we consume
type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
}

// Search runs one full-text search against the API
func (w *Wikipedia) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	if w.limiter != nil {
		if err := w.limiter.Wait(ctx, w.baseURL); err != nil {
			return nil, err
		}
	}

	if maxResults <= 0 {
		maxResults = 3
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", fmt.Sprintf("%d", maxResults))
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", w.userAgent)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1_000_000))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var parsed wikiSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	results := make([]model.SearchResult, 0, len(parsed.Query.Search))
	for _, hit := range parsed.Query.Search {
		results = append(results, model.SearchResult{
			Label: w.Label(),
			Title: hit.Title,
			URL:   articleURL(hit.Title),
			Body:  stripTags(hit.Snippet),
		})
	}
	return results, nil
}

// articleURL builds the canonical article URL for a page title
func articleURL(title string) string {
	return "https://en.wikipedia.org/wiki/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
}

// stripTags removes the highlight markup MediaWiki embeds in snippets
func stripTags(s string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(s, ""))
}
