package model

// SearchResult is one hit from a search backend
type SearchResult struct {
	Label string `json:"label"` // backend category tag (e.g. "Web", "Wikipedia")
	Title string `json:"title"`
	URL   string `json:"url"`
	Body  string `json:"body"`
}

// DedupeResults removes duplicate URLs, keeping the first-seen entry and
// preserving discovery order. Results beyond max are dropped (max <= 0
// means unbounded).
func DedupeResults(results []SearchResult, max int) []SearchResult {
	seen := make(map[string]bool, len(results))
	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		if r.URL == "" || seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		out = append(out, r)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}
