package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pmordasov/veracity/internal/model"
)

// Renderer writes batch results as JSON, a Markdown verdict table, and a
// terminal summary.
type Renderer struct {
	now func() time.Time
}

// NewRenderer creates a renderer
func NewRenderer() *Renderer {
	return &Renderer{now: time.Now}
}

// batchReport is the JSON envelope for a rendered batch
type batchReport struct {
	GeneratedAt time.Time             `json:"generated_at"`
	Claims      int                   `json:"claims"`
	Degraded    int                   `json:"degraded"`
	Results     []model.ClaimAnalysis `json:"results"`
}

// RenderJSON writes the full batch to path as indented JSON
func (r *Renderer) RenderJSON(results []model.ClaimAnalysis, path string) error {
	report := batchReport{
		GeneratedAt: r.now().UTC(),
		Claims:      len(results),
		Degraded:    countDegraded(results),
		Results:     results,
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// RenderMarkdown writes a verdict table followed by per-claim detail
// sections to path.
func (r *Renderer) RenderMarkdown(results []model.ClaimAnalysis, path string) error {
	var b strings.Builder

	b.WriteString("# Verification Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", r.now().UTC().Format(time.RFC3339))

	b.WriteString("| # | Claim | Verdict | Reliability |\n")
	b.WriteString("|---|-------|---------|-------------|\n")
	for i, res := range results {
		verdict := model.ScoreLabel(res.ArbiterScore)
		if res.Degraded {
			verdict += " (degraded)"
		}
		fmt.Fprintf(&b, "| %d | %s | %d - %s | %s |\n",
			i+1, escapeCell(res.Claim), res.ArbiterScore, verdict, res.SourceReliability)
	}
	b.WriteString("\n")

	for i, res := range results {
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, res.Claim)
		fmt.Fprintf(&b, "**Verdict:** %d (%s), reliability %s\n\n",
			res.ArbiterScore, model.ScoreLabel(res.ArbiterScore), res.SourceReliability)
		fmt.Fprintf(&b, "**Justification:** %s\n\n", res.ArbiterJustification)
		if res.ReliabilityReason != "" {
			fmt.Fprintf(&b, "**Source reliability:** %s\n\n", res.ReliabilityReason)
		}
		if res.ReportEvidence != "" {
			fmt.Fprintf(&b, "**Report evidence:** %s\n\n", res.ReportEvidence)
		}
		if res.AdvocateSummary != "" {
			fmt.Fprintf(&b, "**For:** %s\n\n", res.AdvocateSummary)
		}
		if res.DevilsAdvocateSummary != "" {
			fmt.Fprintf(&b, "**Against:** %s\n\n", res.DevilsAdvocateSummary)
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write markdown: %w", err)
	}
	return nil
}

// RenderSummary prints a one-line-per-claim summary to w
func (r *Renderer) RenderSummary(results []model.ClaimAnalysis, w io.Writer) {
	fmt.Fprintf(w, "\nVerified %d claims (%d degraded)\n", len(results), countDegraded(results))
	for i, res := range results {
		marker := " "
		if res.Degraded {
			marker = "!"
		}
		fmt.Fprintf(w, "%s %2d. [%d/%s] %s\n",
			marker, i+1, res.ArbiterScore, res.SourceReliability, truncateClaim(res.Claim))
	}
}

func countDegraded(results []model.ClaimAnalysis) int {
	n := 0
	for _, res := range results {
		if res.Degraded {
			n++
		}
	}
	return n
}

// escapeCell keeps claim text from breaking the Markdown table
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
