package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pmordasov/veracity/internal/model"
)

func newTestGemini(t *testing.T, handler http.HandlerFunc) (*geminiInvoker, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	inv, err := newGeminiInvoker(&model.GeminiConfig{
		APIKey:  "test-key",
		Model:   "gemini-2.5-flash",
		BaseURL: server.URL,
	})
	if err != nil {
		t.Fatalf("newGeminiInvoker: %v", err)
	}
	return inv, server
}

func TestGemini_PrefersV1Beta(t *testing.T) {
	var path atomic.Value
	inv, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"pong"}]}}]}`)
	})

	got, err := inv.Complete(context.Background(), "ping")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "pong" {
		t.Errorf("Complete = %q, want %q", got, "pong")
	}
	if p := path.Load().(string); !strings.HasPrefix(p, "/v1beta/") {
		t.Errorf("expected v1beta path, got %s", p)
	}
}

func TestGemini_FallsBackToV1(t *testing.T) {
	var calls int32
	inv, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			// Transient failure on the preferred surface.
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"code":500,"status":"INTERNAL","message":"backend unavailable"}}`)
			return
		}
		if !strings.HasPrefix(r.URL.Path, "/v1/") {
			t.Errorf("fallback request should use v1, got %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"recovered"}]}}]}`)
	})

	got, err := inv.Complete(context.Background(), "ping")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "recovered" {
		t.Errorf("Complete = %q, want %q", got, "recovered")
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("expected 2 API calls (v1beta then v1), got %d", n)
	}
}

func TestGemini_PermanentErrorSkipsFallback(t *testing.T) {
	var calls int32
	inv, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":400,"status":"INVALID_ARGUMENT","message":"API key not valid"}}`)
	})

	_, err := inv.Complete(context.Background(), "ping")
	if err == nil {
		t.Fatal("expected an error for an invalid API key")
	}
	if !strings.Contains(err.Error(), "API key not valid") {
		t.Errorf("error should carry the API message, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("permanent failure must not trigger the fallback, got %d calls", n)
	}
}

func TestGateway_WrapsGeminiFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"code":401,"status":"UNAUTHENTICATED","message":"expired credentials"}}`)
	}))
	defer server.Close()

	g := NewGateway(model.ProviderConfig{
		Name:   model.ProviderGemini,
		Gemini: &model.GeminiConfig{APIKey: "k", Model: "m", BaseURL: server.URL},
	}, nil)

	got := g.Invoke(context.Background(), "ping")
	if !strings.HasPrefix(got, "Gemini Error:") {
		t.Errorf("expected a Gemini Error result, got %q", got)
	}
}

func TestExtractGeminiText(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "candidate parts",
			body: `{"candidates":[{"content":{"parts":[{"text":" answer "}]}}]}`,
			want: "answer",
		},
		{
			name: "skips empty parts",
			body: `{"candidates":[{"content":{"parts":[{"text":""},{"text":"second"}]}}]}`,
			want: "second",
		},
		{
			name: "top-level text field",
			body: `{"text":"direct"}`,
			want: "direct",
		},
		{
			name: "opaque object falls back to raw body",
			body: `{"unexpected":{"shape":1}}`,
			want: `{"unexpected":{"shape":1}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractGeminiText([]byte(tt.body)); got != tt.want {
				t.Errorf("extractGeminiText = %q, want %q", got, tt.want)
			}
		})
	}
}
