// Package pipeline runs claims through the three-stage adversarial
// verification state machine and schedules whole batches of them.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/pmordasov/veracity/internal/agent"
	"github.com/pmordasov/veracity/internal/model"
	"github.com/pmordasov/veracity/internal/validate"
)

// sourceURLPattern matches the "(Source: <url>)" suffix the aggregator
// appends to every evidence line.
var sourceURLPattern = regexp.MustCompile(`\(Source: (https?://[^)\s]+)\)`)

// Verifier runs one claim through the full three-stage pipeline.
// Stages 1 and 2 each fan out into exactly two goroutines; stage 3 is
// sequential. ProcessClaim never returns an error: panics and
// cancellation degrade to an explicit error record so a batch always
// yields one output per input.
type Verifier struct {
	agents    *agent.Agents
	validator *validate.Validator // nil disables source metadata
	maxURLs   int
	logger    *slog.Logger
}

// NewVerifier creates a verifier. validator may be nil when source
// accessibility checking is disabled.
func NewVerifier(agents *agent.Agents, validator *validate.Validator, maxURLs int, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	if maxURLs <= 0 {
		maxURLs = 5
	}
	return &Verifier{
		agents:    agents,
		validator: validator,
		maxURLs:   maxURLs,
		logger:    logger.With("component", "verifier"),
	}
}

// ProcessClaim verifies a single claim against the report it came from.
// idx is the claim's position in the batch, carried through logs.
func (v *Verifier) ProcessClaim(ctx context.Context, claim string, idx int, report string) (analysis model.ClaimAnalysis) {
	start := time.Now()
	logger := v.logger.With("claim_index", idx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("pipeline panicked", "panic", fmt.Sprint(r))
			analysis = model.ErrorAnalysis(claim, fmt.Sprint(r))
		}
	}()

	logger.Info("claim pipeline started", "claim", truncateClaim(claim))
	analysis = model.NewClaimAnalysis(claim)

	// Stage 1: internal evidence and web evidence in parallel.
	stage1 := time.Now()
	var panicked panicBox
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer panicked.capture()
		analysis.ReportEvidence = v.agents.ExtractEvidence(ctx, report, claim)
	}()
	go func() {
		defer wg.Done()
		defer panicked.capture()
		analysis.WebEvidence = v.agents.SearchWeb(ctx, claim)
	}()
	wg.Wait()
	if msg, ok := panicked.message(); ok {
		logger.Error("stage 1 panicked", "panic", msg)
		return model.ErrorAnalysis(claim, msg)
	}
	logger.Debug("stage 1 done", "elapsed", time.Since(stage1))
	if err := ctx.Err(); err != nil {
		return model.ErrorAnalysis(claim, err.Error())
	}

	// Stage 2: both debate roles in parallel, fed stage 1 web evidence.
	stage2 := time.Now()
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer panicked.capture()
		analysis.DevilsAdvocateSummary = v.agents.DevilsAdvocate(ctx, claim, analysis.WebEvidence)
	}()
	go func() {
		defer wg.Done()
		defer panicked.capture()
		analysis.AdvocateSummary = v.agents.Advocate(ctx, claim, analysis.WebEvidence)
	}()
	wg.Wait()
	if msg, ok := panicked.message(); ok {
		logger.Error("stage 2 panicked", "panic", msg)
		return model.ErrorAnalysis(claim, msg)
	}
	logger.Debug("stage 2 done", "elapsed", time.Since(stage2))
	if err := ctx.Err(); err != nil {
		return model.ErrorAnalysis(claim, err.Error())
	}

	// Stage 3: arbitration, with source metadata when validation is on.
	stage3 := time.Now()
	sourceMeta := v.sourceMetadata(ctx, analysis.WebEvidence)
	verdict := v.agents.Arbitrate(ctx, claim,
		analysis.DevilsAdvocateSummary, analysis.AdvocateSummary,
		analysis.WebEvidence, sourceMeta)

	analysis.ArbiterScore = verdict.Score
	analysis.ArbiterJustification = verdict.Justification
	analysis.SourceReliability = verdict.Reliability
	analysis.ReliabilityReason = verdict.ReliabilityReason
	analysis.Degraded = analysis.Degraded || verdict.Degraded
	logger.Debug("stage 3 done", "elapsed", time.Since(stage3))

	logger.Info("claim pipeline finished",
		"score", analysis.ArbiterScore,
		"reliability", string(analysis.SourceReliability),
		"degraded", analysis.Degraded,
		"elapsed", time.Since(start))
	return analysis
}

// sourceMetadata extracts result URLs from the web evidence block and
// renders authority and accessibility metadata for the arbiter.
func (v *Verifier) sourceMetadata(ctx context.Context, webEvidence string) string {
	if v.validator == nil || webEvidence == "" {
		return ""
	}
	urls := extractSourceURLs(webEvidence, v.maxURLs)
	if len(urls) == 0 {
		return ""
	}
	return validate.RenderMetadata(v.validator.Check(ctx, urls))
}

// extractSourceURLs pulls up to max distinct source URLs out of an
// aggregated evidence block, in order of appearance.
func extractSourceURLs(block string, max int) []string {
	matches := sourceURLPattern.FindAllStringSubmatch(block, -1)
	seen := make(map[string]bool, len(matches))
	var urls []string
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		urls = append(urls, m[1])
		if len(urls) == max {
			break
		}
	}
	return urls
}

// panicBox records the first panic seen across a stage's goroutines so
// the claim boundary can convert it into an error record.
type panicBox struct {
	mu  sync.Mutex
	msg string
	set bool
}

func (b *panicBox) capture() {
	if r := recover(); r != nil {
		b.mu.Lock()
		if !b.set {
			b.msg = fmt.Sprint(r)
			b.set = true
		}
		b.mu.Unlock()
	}
}

func (b *panicBox) message() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.msg, b.set
}

func truncateClaim(claim string) string {
	if len(claim) > 80 {
		return claim[:80] + "..."
	}
	return claim
}
