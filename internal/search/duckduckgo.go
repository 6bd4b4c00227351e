package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/pmordasov/veracity/internal/model"
	"github.com/pmordasov/veracity/internal/worker"
)

const defaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"

// DuckDuckGo is the general web-text backend. It queries the HTML (non-JS)
// endpoint and parses the result list out of the markup.
type DuckDuckGo struct {
	httpClient *http.Client
	limiter    *worker.Limiter
	userAgent  string
	baseURL    string
}

// NewDuckDuckGo creates the backend; baseURL overrides the endpoint for tests
func NewDuckDuckGo(client *http.Client, limiter *worker.Limiter, userAgent, baseURL string) *DuckDuckGo {
	if baseURL == "" {
		baseURL = defaultDuckDuckGoURL
	}
	return &DuckDuckGo{
		httpClient: client,
		limiter:    limiter,
		userAgent:  userAgent,
		baseURL:    baseURL,
	}
}

// Label returns the category tag for this backend
func (d *DuckDuckGo) Label() string {
	return "Web"
}

// Search runs one query against the HTML endpoint
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx, d.baseURL); err != nil {
			return nil, err
		}
	}

	reqURL := d.baseURL + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2_000_000))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	results := parseResultsHTML(string(body), d.Label())
	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

// parseResultsHTML extracts search hits from the result markup. Titles and
// links come from anchors classed result__a, snippets from the matching
// result__snippet elements, paired in document order.
func parseResultsHTML(content, label string) []model.SearchResult {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil
	}

	var results []model.SearchResult
	var snippets []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "a" && hasClass(n, "result__a"):
				href := attrValue(n, "href")
				if target := resolveRedirect(href); target != "" {
					results = append(results, model.SearchResult{
						Label: label,
						Title: strings.TrimSpace(nodeText(n)),
						URL:   target,
					})
				}
			case hasClass(n, "result__snippet"):
				snippets = append(snippets, strings.TrimSpace(nodeText(n)))
				return // snippet text collected wholesale, skip children
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for i := range results {
		if i < len(snippets) {
			results[i].Body = snippets[i]
		}
	}
	return results
}

// resolveRedirect unwraps the uddg redirect wrapper the HTML endpoint puts
// around outbound links, and normalizes protocol-relative URLs.
func resolveRedirect(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.Contains(parsed.Host, "duckduckgo.com") {
		if target := parsed.Query().Get("uddg"); target != "" {
			return target
		}
		return ""
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, f := range strings.Fields(attrValue(n, "class")) {
		if f == class {
			return true
		}
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// nodeText collects the visible text below n
func nodeText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}
