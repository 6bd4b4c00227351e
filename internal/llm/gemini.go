package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pmordasov/veracity/internal/model"
)

// geminiInvoker talks to the Generative Language API directly over HTTP.
// It prefers the v1beta API surface (system instructions supported) and
// transparently retries the stable v1 surface when v1beta fails, unless
// the failure is a permanent incompatibility worth surfacing as-is.
type geminiInvoker struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// Gemini API structures
type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	// Some response shapes carry text at the top level
	Text string `json:"text,omitempty"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

func newGeminiInvoker(cfg *model.GeminiConfig) (*geminiInvoker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("missing Gemini configuration details")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	return &geminiInvoker{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		// No client-level timeout: the per-call context owns the deadline.
		httpClient: &http.Client{Transport: &http.Transport{
			MaxIdleConns:    16,
			IdleConnTimeout: 90 * time.Second,
		}},
	}, nil
}

func (g *geminiInvoker) Name() string {
	return "Gemini"
}

// Complete calls generateContent, preferring v1beta and falling back to v1
func (g *geminiInvoker) Complete(ctx context.Context, prompt string) (string, error) {
	req := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
	}

	text, err := g.generate(ctx, "v1beta", req)
	if err == nil {
		return text, nil
	}
	if isPermanentGeminiError(err) || ctx.Err() != nil {
		return "", err
	}

	// The stable surface does not accept systemInstruction; fold it into
	// the user turn instead.
	fallback := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: systemPrompt + "\n\n" + prompt}}},
		},
	}
	text, fbErr := g.generate(ctx, "v1", fallback)
	if fbErr != nil {
		// Report the original failure; the fallback was best-effort.
		return "", err
	}
	return text, nil
}

// generate performs one generateContent call against the given API version
func (g *geminiInvoker) generate(ctx context.Context, version string, apiReq geminiRequest) (string, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", g.baseURL, version, g.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr geminiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", &geminiAPIError{code: resp.StatusCode, status: apiErr.Error.Status, message: apiErr.Error.Message}
		}
		return "", &geminiAPIError{code: resp.StatusCode, message: http.StatusText(resp.StatusCode)}
	}

	return extractGeminiText(respBody), nil
}

// extractGeminiText pulls the first non-empty plain-text value from a
// response body, tolerating the shapes different API versions return.
// If nothing recognizable is found the raw body is returned so the caller
// still gets a usable serialized representation.
func extractGeminiText(body []byte) string {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err == nil {
		for _, cand := range resp.Candidates {
			for _, part := range cand.Content.Parts {
				if text := strings.TrimSpace(part.Text); text != "" {
					return text
				}
			}
		}
		if text := strings.TrimSpace(resp.Text); text != "" {
			return text
		}
	}
	return strings.TrimSpace(string(body))
}

// geminiAPIError is a non-2xx response from the API
type geminiAPIError struct {
	code    int
	status  string
	message string
}

func (e *geminiAPIError) Error() string {
	if e.status != "" {
		return fmt.Sprintf("HTTP %d %s: %s", e.code, e.status, e.message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.code, e.message)
}

// isPermanentGeminiError reports failures that the v1 fallback cannot fix:
// bad credentials, unknown model, blocked project. These are surfaced
// directly instead of masked by a second attempt.
func isPermanentGeminiError(err error) bool {
	apiErr, ok := err.(*geminiAPIError)
	if !ok {
		return false
	}
	switch apiErr.code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	case http.StatusBadRequest:
		return strings.Contains(strings.ToLower(apiErr.message), "api key")
	case http.StatusNotFound:
		return strings.Contains(strings.ToLower(apiErr.message), "model")
	}
	return false
}
