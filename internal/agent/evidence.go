package agent

import (
	"context"
	"fmt"
)

// ExtractEvidence pulls exact supporting quotes for a claim out of the
// report, or the fixed no-evidence sentinel. Gateway failures surface as
// error strings in the evidence field, which downstream stages tolerate.
func (a *Agents) ExtractEvidence(ctx context.Context, report, claim string) string {
	prompt := fmt.Sprintf(`Given the report below, extract exact quotes that support the claim: %q.
If no direct evidence exists in the text, say %q.

Report:
%s`, claim, noEvidenceSentinel, truncateReport(report))

	return a.invoker.Invoke(ctx, prompt)
}

// SearchWeb gathers external evidence for a claim through the aggregator
func (a *Agents) SearchWeb(ctx context.Context, claim string) string {
	if a.searcher == nil {
		return "No relevant results found for query: " + claim
	}
	return a.searcher.Aggregate(ctx, claim)
}
