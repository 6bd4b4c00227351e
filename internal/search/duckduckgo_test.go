package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pmordasov/veracity/internal/worker"
)

const ddgFixture = `<!DOCTYPE html>
<html><body>
<div class="results">
  <div class="result results_links">
    <h2 class="result__title">
      <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Flaunch&amp;rut=abc">Product Y launches</a>
    </h2>
    <a class="result__snippet" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Flaunch">Company X <b>released</b> Product Y in 2023.</a>
  </div>
  <div class="result results_links">
    <h2 class="result__title">
      <a class="result__a" href="https://press.example.org/story">Press coverage</a>
    </h2>
    <div class="result__snippet">Coverage of the 2023 launch.</div>
  </div>
  <div class="result results_links">
    <h2 class="result__title">
      <a class="result__a" href="javascript:void(0)">Bogus entry</a>
    </h2>
  </div>
</div>
</body></html>`

func TestParseResultsHTML(t *testing.T) {
	results := parseResultsHTML(ddgFixture, "Web")

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d: %+v", len(results), results)
	}

	first := results[0]
	if first.URL != "https://example.com/launch" {
		t.Errorf("redirect not unwrapped: %s", first.URL)
	}
	if first.Title != "Product Y launches" {
		t.Errorf("unexpected title: %q", first.Title)
	}
	if first.Body != "Company X released Product Y in 2023." {
		t.Errorf("unexpected snippet: %q", first.Body)
	}

	if results[1].URL != "https://press.example.org/story" {
		t.Errorf("plain URL mangled: %s", results[1].URL)
	}
}

func TestResolveRedirect(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fa", "https://example.com/a"},
		{"https://example.com/direct", "https://example.com/direct"},
		{"//duckduckgo.com/l/?rut=onlytracking", ""},
		{"javascript:void(0)", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := resolveRedirect(tt.in); got != tt.want {
			t.Errorf("resolveRedirect(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDuckDuckGo_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if q := r.URL.Query().Get("q"); q != "product y 2023" {
			t.Errorf("unexpected query: %q", q)
		}
		fmt.Fprint(w, ddgFixture)
	}))
	defer server.Close()

	d := NewDuckDuckGo(server.Client(), worker.NewLimiter(100, 5), "Veracity/test", server.URL)

	results, err := d.Search(context.Background(), "product y 2023", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("maxResults not applied: got %d results", len(results))
	}
	if results[0].Label != "Web" {
		t.Errorf("unexpected label: %q", results[0].Label)
	}
}

func TestDuckDuckGo_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	d := NewDuckDuckGo(server.Client(), nil, "Veracity/test", server.URL)
	if _, err := d.Search(context.Background(), "q", 3); err == nil {
		t.Error("expected an error for a non-200 response")
	}
}
