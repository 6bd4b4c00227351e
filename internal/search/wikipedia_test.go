package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWikipedia_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("srsearch"); got != "Product Y" {
			t.Errorf("unexpected srsearch: %q", got)
		}
		if got := r.URL.Query().Get("srlimit"); got != "2" {
			t.Errorf("unexpected srlimit: %q", got)
		}
		fmt.Fprint(w, `{"query":{"search":[
			{"title":"Product Y","snippet":"<span class=\"searchmatch\">Product Y</span> is a product released in 2023."},
			{"title":"Company X","snippet":"Maker of <span class=\"searchmatch\">Product Y</span>."}
		]}}`)
	}))
	defer server.Close()

	wiki := NewWikipedia(server.Client(), nil, "Veracity/test", server.URL)

	results, err := wiki.Search(context.Background(), "Product Y", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	if results[0].URL != "https://en.wikipedia.org/wiki/Product_Y" {
		t.Errorf("unexpected article URL: %s", results[0].URL)
	}
	if results[0].Body != "Product Y is a product released in 2023." {
		t.Errorf("highlight markup not stripped: %q", results[0].Body)
	}
	if results[1].Label != "Wikipedia" {
		t.Errorf("unexpected label: %q", results[1].Label)
	}
}

func TestWikipedia_EmptyResultSet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"query":{"search":[]}}`)
	}))
	defer server.Close()

	wiki := NewWikipedia(server.Client(), nil, "Veracity/test", server.URL)
	results, err := wiki.Search(context.Background(), "nothing matches this", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestWikipedia_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json")
	}))
	defer server.Close()

	wiki := NewWikipedia(server.Client(), nil, "Veracity/test", server.URL)
	if _, err := wiki.Search(context.Background(), "q", 3); err == nil {
		t.Error("expected a decode error")
	}
}
