package llm

import (
	"context"
	"fmt"

	"github.com/pmordasov/veracity/internal/model"
)

// systemPrompt frames every invocation; agents put their instructions in
// the user prompt.
const systemPrompt = "You are a precise analytical agent. Return only the requested information."

// Invoker is a single model backend. Implementations return the raw
// response text or an error; the Gateway converts errors into fail-soft
// strings at the boundary.
type Invoker interface {
	// Name returns the provider name used in error strings
	Name() string

	// Complete sends one prompt and returns the response text
	Complete(ctx context.Context, prompt string) (string, error)
}

// newInvoker constructs the backend selected by cfg. The configuration
// must already be validated.
func newInvoker(cfg model.ProviderConfig) (Invoker, error) {
	switch cfg.Name {
	case model.ProviderAzure:
		return newAzureInvoker(cfg.Azure)
	case model.ProviderGemini:
		return newGeminiInvoker(cfg.Gemini)
	default:
		return nil, fmt.Errorf("unknown provider: %q (supported: azure, gemini)", cfg.Name)
	}
}
