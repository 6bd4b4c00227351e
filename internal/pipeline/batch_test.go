package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pmordasov/veracity/internal/agent"
	"github.com/pmordasov/veracity/internal/model"
)

func newTestProcessor(v *Verifier, maxWorkers int, timeout time.Duration) *Processor {
	return NewProcessor(v, model.ConcurrencyConfig{
		MaxWorkers:   maxWorkers,
		BatchTimeout: timeout,
	}, nil)
}

func TestRun_OneRecordPerClaim(t *testing.T) {
	inv := &scriptedInvoker{verdict: goodVerdict}
	p := newTestProcessor(newTestVerifier(inv, nil), 3, time.Minute)

	claims := []string{"claim a", "claim b", "claim c", "claim d"}
	results := p.Run(context.Background(), claims, "report", nil)

	if len(results) != len(claims) {
		t.Fatalf("got %d records for %d claims", len(results), len(claims))
	}
	for i, res := range results {
		if res.Claim != claims[i] {
			t.Errorf("record %d is for %q, want %q", i, res.Claim, claims[i])
		}
	}
}

func TestRun_EmptyBatch(t *testing.T) {
	p := newTestProcessor(newTestVerifier(&scriptedInvoker{verdict: goodVerdict}, nil), 3, time.Minute)
	if got := p.Run(context.Background(), nil, "report", nil); got != nil {
		t.Errorf("expected nil for empty batch, got %v", got)
	}
}

func TestRun_BoundsConcurrency(t *testing.T) {
	inv := &scriptedInvoker{verdict: goodVerdict, delay: 20 * time.Millisecond}
	p := newTestProcessor(newTestVerifier(inv, nil), 2, time.Minute)

	claims := make([]string, 8)
	for i := range claims {
		claims[i] = "claim"
	}
	p.Run(context.Background(), claims, "report", nil)

	if peak := inv.peak.Load(); peak > 2 {
		t.Errorf("observed %d concurrent pipelines, limit is 2", peak)
	}
}

func TestRun_ProgressInCompletionOrder(t *testing.T) {
	inv := &scriptedInvoker{verdict: goodVerdict}
	p := newTestProcessor(newTestVerifier(inv, nil), 2, time.Minute)

	var mu sync.Mutex
	var counts []int
	var total int
	p.Run(context.Background(), []string{"a", "b", "c"}, "report", func(completed, tot int, res model.ClaimAnalysis) {
		mu.Lock()
		counts = append(counts, completed)
		total = tot
		mu.Unlock()
	})

	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(counts) != 3 {
		t.Fatalf("progress fired %d times, want 3", len(counts))
	}
	for i, c := range counts {
		if c != i+1 {
			t.Errorf("completed counter out of order: %v", counts)
			break
		}
	}
}

// stallInvoker blocks evidence extraction for claims containing "slow"
// well past the batch deadline.
type stallInvoker struct {
	scriptedInvoker
	stall time.Duration
}

func (s *stallInvoker) Invoke(ctx context.Context, prompt string) string {
	if strings.Contains(prompt, "extract exact quotes") && strings.Contains(prompt, "slow") {
		time.Sleep(s.stall)
	}
	return s.scriptedInvoker.Invoke(ctx, prompt)
}

func TestRun_TimeoutReturnsCompletedOnly(t *testing.T) {
	inv := &stallInvoker{
		scriptedInvoker: scriptedInvoker{verdict: goodVerdict},
		stall:           2 * time.Second,
	}
	p := newTestProcessor(newTestVerifier(inv, nil), 3, 300*time.Millisecond)

	start := time.Now()
	results := p.Run(context.Background(), []string{"fast", "slow", "slow"}, "report", nil)

	if time.Since(start) >= 2*time.Second {
		t.Fatal("Run did not honor the batch timeout")
	}
	if len(results) != 1 {
		t.Fatalf("expected only the completed claim, got %d records", len(results))
	}
	if results[0].Claim != "fast" {
		t.Errorf("returned record is for %q, want the fast claim", results[0].Claim)
	}
}

var _ agent.Invoker = (*stallInvoker)(nil)
