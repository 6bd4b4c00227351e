// Package agent holds the five model-backed capabilities the claim
// pipeline composes: claim extraction, internal evidence extraction, web
// evidence aggregation, the two debate roles, and arbitration. Each is a
// thin prompt-in/text-out transform over the invocation gateway and is
// fail-soft: model failures come back as error-marked strings or safe
// default verdicts, never as panics.
package agent

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// maxReportChars bounds how much report text is embedded in a prompt
const maxReportChars = 5000

// noEvidenceSentinel is the fixed reply when the report does not support
// the claim.
const noEvidenceSentinel = "No direct evidence in report."

// Invoker is the slice of the model gateway the agents need
type Invoker interface {
	Invoke(ctx context.Context, prompt string) string
}

// Searcher produces a web-evidence block for a claim
type Searcher interface {
	Aggregate(ctx context.Context, claim string) string
}

// Agents bundles the capabilities around one gateway and one aggregator
type Agents struct {
	invoker  Invoker
	searcher Searcher
	logger   *slog.Logger
	now      func() time.Time // injectable for deterministic prompts in tests
}

// New creates the agent set. searcher may be nil when web evidence is
// not needed (SearchWeb then degrades to its sentinel).
func New(invoker Invoker, searcher Searcher, logger *slog.Logger) *Agents {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agents{
		invoker:  invoker,
		searcher: searcher,
		logger:   logger.With("component", "agent"),
		now:      time.Now,
	}
}

// currentDate renders today for prompt framing; debate and arbitration
// prompts carry it so the model weighs evidence over its training cutoff.
func (a *Agents) currentDate() string {
	return a.now().Format("January 2, 2006")
}

// truncateReport caps report text embedded in prompts
func truncateReport(report string) string {
	if len(report) <= maxReportChars {
		return report
	}
	return report[:maxReportChars]
}

// stripFences removes Markdown code fences models wrap JSON in
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
