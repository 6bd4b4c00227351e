package pipeline

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pmordasov/veracity/internal/agent"
	"github.com/pmordasov/veracity/internal/model"
)

const goodVerdict = `{"score": 2, "justification": "well supported", "reliability": "B", "reliability_justification": "news sources"}`

// scriptedInvoker answers each pipeline prompt by its role marker and
// tracks how many evidence extractions run at once.
type scriptedInvoker struct {
	verdict  string
	delay    time.Duration
	panicOn  string
	inflight atomic.Int32
	peak     atomic.Int32
}

func (s *scriptedInvoker) Invoke(ctx context.Context, prompt string) string {
	if s.panicOn != "" && strings.Contains(prompt, s.panicOn) {
		panic("scripted failure")
	}
	switch {
	case strings.Contains(prompt, "extract exact quotes"):
		cur := s.inflight.Add(1)
		for {
			peak := s.peak.Load()
			if cur <= peak || s.peak.CompareAndSwap(peak, cur) {
				break
			}
		}
		if s.delay > 0 {
			time.Sleep(s.delay)
		}
		s.inflight.Add(-1)
		return "exact quote from report"
	case strings.Contains(prompt, "Devil's Advocate"):
		return "argument against"
	case strings.Contains(prompt, "The Advocate"):
		return "argument for"
	case strings.Contains(prompt, "The Arbiter"):
		return s.verdict
	}
	return "ok"
}

type blockSearcher struct {
	block string
}

func (b *blockSearcher) Aggregate(ctx context.Context, claim string) string {
	return b.block
}

func newTestVerifier(inv agent.Invoker, s agent.Searcher) *Verifier {
	return NewVerifier(agent.New(inv, s, nil), nil, 5, nil)
}

func TestProcessClaim_PopulatesAllStages(t *testing.T) {
	inv := &scriptedInvoker{verdict: goodVerdict}
	s := &blockSearcher{block: "Search Query Used: q\n\n[Wikipedia] T: body (Source: https://example.com/a)"}
	v := newTestVerifier(inv, s)

	res := v.ProcessClaim(context.Background(), "some claim", 0, "report text")

	if res.ReportEvidence != "exact quote from report" {
		t.Errorf("ReportEvidence = %q", res.ReportEvidence)
	}
	if res.WebEvidence != s.block {
		t.Errorf("WebEvidence = %q", res.WebEvidence)
	}
	if res.DevilsAdvocateSummary != "argument against" || res.AdvocateSummary != "argument for" {
		t.Errorf("debate summaries = %q / %q", res.DevilsAdvocateSummary, res.AdvocateSummary)
	}
	if res.ArbiterScore != 2 || res.SourceReliability != model.ReliabilityGrade("B") {
		t.Errorf("verdict = %d/%s", res.ArbiterScore, res.SourceReliability)
	}
	if res.Degraded {
		t.Error("clean run should not be Degraded")
	}
}

func TestProcessClaim_RecoversStagePanic(t *testing.T) {
	inv := &scriptedInvoker{verdict: goodVerdict, panicOn: "Devil's Advocate"}
	v := newTestVerifier(inv, nil)

	res := v.ProcessClaim(context.Background(), "some claim", 0, "report")

	if res.ArbiterScore != model.ScoreUnknown {
		t.Errorf("Score = %d, want %d", res.ArbiterScore, model.ScoreUnknown)
	}
	if res.SourceReliability != model.ReliabilityUnknown {
		t.Errorf("Reliability = %q, want F", res.SourceReliability)
	}
	if !strings.HasPrefix(res.ArbiterJustification, "Processing Error: ") {
		t.Errorf("Justification = %q", res.ArbiterJustification)
	}
	if !res.Degraded {
		t.Error("panic record must be Degraded")
	}
}

func TestProcessClaim_CancelledContext(t *testing.T) {
	inv := &scriptedInvoker{verdict: goodVerdict}
	v := newTestVerifier(inv, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := v.ProcessClaim(ctx, "some claim", 0, "report")
	if !strings.HasPrefix(res.ArbiterJustification, "Processing Error: ") {
		t.Errorf("cancelled claim should be an error record: %q", res.ArbiterJustification)
	}
	if res.ArbiterScore != model.ScoreUnknown || !res.Degraded {
		t.Errorf("cancelled claim should carry the safe defaults: %+v", res)
	}
}

func TestExtractSourceURLs(t *testing.T) {
	block := "Search Query Used: q\n\n" +
		"[DuckDuckGo] A: x (Source: https://example.com/a)\n" +
		"[Wikipedia] B: y (Source: https://en.wikipedia.org/wiki/B)\n" +
		"[DuckDuckGo] A again: z (Source: https://example.com/a)\n" +
		"[Wikipedia] C: w (Source: https://example.org/c)"

	urls := extractSourceURLs(block, 2)
	if len(urls) != 2 {
		t.Fatalf("expected 2 URLs, got %d: %v", len(urls), urls)
	}
	if urls[0] != "https://example.com/a" || urls[1] != "https://en.wikipedia.org/wiki/B" {
		t.Errorf("wrong URLs or order: %v", urls)
	}

	if got := extractSourceURLs("no sources here", 5); got != nil {
		t.Errorf("expected nil for block without sources, got %v", got)
	}
}
