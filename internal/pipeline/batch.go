package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pmordasov/veracity/internal/model"
)

// ProgressFunc is called once per completed claim, in completion order.
// completed counts records delivered so far, including this one.
type ProgressFunc func(completed, total int, result model.ClaimAnalysis)

// Processor schedules claim pipelines across a batch. At most maxWorkers
// pipelines run at once; the whole batch is bounded by a single timeout.
type Processor struct {
	verifier   *Verifier
	maxWorkers int
	timeout    time.Duration
	logger     *slog.Logger
}

// NewProcessor creates a batch processor from the concurrency config
func NewProcessor(verifier *Verifier, cfg model.ConcurrencyConfig, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 5
	}
	timeout := cfg.BatchTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Processor{
		verifier:   verifier,
		maxWorkers: maxWorkers,
		timeout:    timeout,
		logger:     logger.With("component", "batch"),
	}
}

// Run verifies every claim and returns one record per claim. If the
// batch timeout expires first, in-flight pipelines are cancelled and
// only the records completed so far are returned. onProgress may be nil.
func (p *Processor) Run(ctx context.Context, claims []string, report string, onProgress ProgressFunc) []model.ClaimAnalysis {
	if len(claims) == 0 {
		return nil
	}

	runID := uuid.New().String()
	logger := p.logger.With("run_id", runID)
	start := time.Now()
	logger.Info("batch started", "claims", len(claims), "max_workers", p.maxWorkers, "timeout", p.timeout)

	batchCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type indexed struct {
		idx    int
		result model.ClaimAnalysis
	}

	results := make(chan indexed, len(claims))
	gate := make(chan struct{}, p.maxWorkers)

	for i, claim := range claims {
		go func() {
			select {
			case gate <- struct{}{}:
			case <-batchCtx.Done():
				return
			}
			defer func() { <-gate }()
			results <- indexed{idx: i, result: p.verifier.ProcessClaim(batchCtx, claim, i, report)}
		}()
	}

	// Single collector keeps onProgress callbacks serialized and in
	// completion order.
	completed := make([]model.ClaimAnalysis, 0, len(claims))
	ordered := make(map[int]model.ClaimAnalysis, len(claims))
	for len(ordered) < len(claims) {
		select {
		case r := <-results:
			ordered[r.idx] = r.result
			completed = append(completed, r.result)
			if onProgress != nil {
				onProgress(len(completed), len(claims), r.result)
			}
		case <-batchCtx.Done():
			logger.Warn("batch timed out, returning completed claims only",
				"completed", len(completed), "total", len(claims), "elapsed", time.Since(start))
			return completed
		}
	}

	// Input order for the final slice; progress callbacks already ran
	// in completion order.
	out := make([]model.ClaimAnalysis, 0, len(claims))
	for i := range claims {
		out = append(out, ordered[i])
	}

	logger.Info("batch finished", "claims", len(out), "elapsed", time.Since(start))
	return out
}
