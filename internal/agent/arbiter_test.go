package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/pmordasov/veracity/internal/model"
)

func TestArbitrate_ValidResponse(t *testing.T) {
	inv := &fakeInvoker{response: `{"score": 2, "justification": "Multiple outlets confirm the launch.", "reliability": "b", "reliability_justification": "Established news sources."}`}
	a := newTestAgents(inv, nil)

	v := a.Arbitrate(context.Background(), "claim", "against", "for", "", "")
	if v.Score != 2 {
		t.Errorf("Score = %d, want 2", v.Score)
	}
	if v.Reliability != model.ReliabilityGrade("B") {
		t.Errorf("Reliability = %q, want B", v.Reliability)
	}
	if v.Degraded {
		t.Error("valid response should not be marked Degraded")
	}
	if v.Justification != "Multiple outlets confirm the launch." {
		t.Errorf("Justification = %q", v.Justification)
	}
}

func TestArbitrate_UnparseableResponse(t *testing.T) {
	inv := &fakeInvoker{response: "not json"}
	a := newTestAgents(inv, nil)

	v := a.Arbitrate(context.Background(), "claim", "against", "for", "", "")
	if v.Score != model.ScoreUnknown {
		t.Errorf("Score = %d, want %d", v.Score, model.ScoreUnknown)
	}
	if v.Reliability != model.ReliabilityUnknown {
		t.Errorf("Reliability = %q, want F", v.Reliability)
	}
	if !strings.Contains(v.Justification, "parsing") {
		t.Errorf("Justification should note the parse failure: %q", v.Justification)
	}
	if !v.Degraded {
		t.Error("unparseable response must be marked Degraded")
	}
}

func TestArbitrate_Clamping(t *testing.T) {
	tests := []struct {
		name     string
		response string
		score    int
		grade    model.ReliabilityGrade
	}{
		{
			name:     "score above range",
			response: `{"score": 9, "justification": "ok", "reliability": "C", "reliability_justification": "ok"}`,
			score:    model.ScoreMax,
			grade:    model.ReliabilityGrade("C"),
		},
		{
			name:     "score below range",
			response: `{"score": 0, "justification": "ok", "reliability": "A", "reliability_justification": "ok"}`,
			score:    model.ScoreMin,
			grade:    model.ReliabilityGrade("A"),
		},
		{
			name:     "non-integer score",
			response: `{"score": 3.7, "justification": "ok", "reliability": "A", "reliability_justification": "ok"}`,
			score:    model.ScoreUnknown,
			grade:    model.ReliabilityGrade("A"),
		},
		{
			name:     "invalid grade",
			response: `{"score": 3, "justification": "ok", "reliability": "Z", "reliability_justification": "ok"}`,
			score:    3,
			grade:    model.ReliabilityUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAgents(&fakeInvoker{response: tt.response}, nil)
			v := a.Arbitrate(context.Background(), "claim", "", "", "", "")
			if v.Score != tt.score {
				t.Errorf("Score = %d, want %d", v.Score, tt.score)
			}
			if v.Reliability != tt.grade {
				t.Errorf("Reliability = %q, want %q", v.Reliability, tt.grade)
			}
			if !v.Degraded {
				t.Error("clamped verdict must be marked Degraded")
			}
		})
	}
}

func TestArbitrate_PromptIncludesEvidenceSections(t *testing.T) {
	inv := &fakeInvoker{response: `{"score": 1, "justification": "ok", "reliability": "A", "reliability_justification": "ok"}`}
	a := newTestAgents(inv, nil)

	a.Arbitrate(context.Background(), "claim", "no", "yes", "web block", "- example.com | authority: primary | accessible")
	if len(inv.prompts) != 1 {
		t.Fatalf("expected 1 prompt, got %d", len(inv.prompts))
	}
	p := inv.prompts[0]
	if !strings.Contains(p, "External Evidence:\nweb block") {
		t.Error("prompt missing web evidence section")
	}
	if !strings.Contains(p, "Source Metadata") {
		t.Error("prompt missing source metadata section")
	}
	if !strings.Contains(p, "March 14, 2026") {
		t.Error("prompt missing fixed current date")
	}
}
