package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pmordasov/veracity/internal/model"
)

// Gateway routes prompts to the configured model backend. Its single
// contract is that Invoke never fails: every error mode, from bad
// configuration to network failure to timeout, comes back as a readable
// string with a recognizable prefix, so callers can stay fail-soft.
//
// The backend client is built once per configuration and reused by all
// in-flight invocations. The configuration fingerprint is tracked
// explicitly: Reconfigure with a different fingerprint abandons the old
// client and builds a new one.
type Gateway struct {
	mu          sync.RWMutex
	cfg         model.ProviderConfig
	invoker     Invoker
	fingerprint string

	timeout time.Duration
	logger  *slog.Logger
}

// NewGateway creates a gateway for the given provider configuration.
// Construction never fails; an invalid configuration is reported on the
// first Invoke instead, per the fail-soft contract.
func NewGateway(cfg model.ProviderConfig, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.InvokeTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Gateway{
		cfg:     cfg,
		timeout: timeout,
		logger:  logger.With("component", "llm"),
	}
}

// Invoke sends one prompt to the configured backend and returns the
// response text. It always returns within the configured timeout and
// never returns an error: failures come back as error strings.
func (g *Gateway) Invoke(ctx context.Context, prompt string) string {
	inv, err := g.client()
	if err != nil {
		// Configuration errors surface as a descriptive string result.
		g.logger.Warn("invocation rejected", "error", err)
		return "Error: " + err.Error()
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	text, err := inv.Complete(callCtx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && callCtx.Err() != nil {
			g.logger.Warn("invocation timed out", "provider", inv.Name(), "timeout", g.timeout)
			return fmt.Sprintf("Error: %s invocation timed out after %s", inv.Name(), g.timeout)
		}
		g.logger.Warn("invocation failed", "provider", inv.Name(), "error", err, "elapsed", time.Since(start))
		return fmt.Sprintf("%s Error: %s", inv.Name(), err.Error())
	}
	return text
}

// Reconfigure swaps the provider configuration. The cached client is kept
// when the fingerprint is unchanged and rebuilt lazily otherwise.
func (g *Gateway) Reconfigure(cfg model.ProviderConfig) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cfg.Fingerprint() != g.fingerprint {
		g.invoker = nil
		g.fingerprint = ""
	}
	g.cfg = cfg
	if cfg.InvokeTimeout > 0 {
		g.timeout = cfg.InvokeTimeout
	}
}

// client returns the cached backend, building it on first use or after a
// configuration change.
func (g *Gateway) client() (Invoker, error) {
	g.mu.RLock()
	inv, fp := g.invoker, g.fingerprint
	cfg := g.cfg
	g.mu.RUnlock()

	want := cfg.Fingerprint()
	if inv != nil && fp == want {
		return inv, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.invoker != nil && g.fingerprint == want {
		return g.invoker, nil
	}

	if err := g.cfg.Validate(); err != nil {
		return nil, err
	}
	built, err := newInvoker(g.cfg)
	if err != nil {
		return nil, err
	}
	if g.invoker != nil {
		g.logger.Info("rebuilding model client", "provider", g.cfg.Name)
	}
	g.invoker = built
	g.fingerprint = want
	return built, nil
}

// IsErrorResult reports whether a gateway result string encodes a failure
// rather than model output.
func IsErrorResult(s string) bool {
	for _, prefix := range []string{"Error:", "Azure Error:", "Gemini Error:"} {
		if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}
