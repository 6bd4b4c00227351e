package agent

import (
	"context"
	"fmt"
)

// DevilsAdvocate attacks the claim's validity using only the supplied
// external evidence.
func (a *Agents) DevilsAdvocate(ctx context.Context, claim, webEvidence string) string {
	prompt := fmt.Sprintf(`Role: Devil's Advocate.
Current Date: %s

Claim: %q
External Evidence: %s

Task: Write a critical summary (max 3 sentences) attacking the validity of this claim based on the evidence or logical fallacies.

CRITICAL INSTRUCTION:
- Base your arguments ONLY on the provided "External Evidence".
- Do NOT use your internal training data to judge the timing of events.
- If the evidence confirms an event happened (even if you think it's in the future), you must accept that evidence as the current reality.`,
		a.currentDate(), claim, webEvidence)

	return a.invoker.Invoke(ctx, prompt)
}

// Advocate defends the claim using only the supplied external evidence
func (a *Agents) Advocate(ctx context.Context, claim, webEvidence string) string {
	prompt := fmt.Sprintf(`Role: The Advocate.
Current Date: %s

Claim: %q
External Evidence: %s

Task: Write a supportive summary (max 3 sentences) defending this claim based on the evidence.

CRITICAL INSTRUCTION:
- Base your arguments ONLY on the provided "External Evidence".
- Do NOT use your internal training data to judge the timing of events.
- If the evidence confirms an event happened (even if you think it's in the future), you must accept that evidence as the current reality.`,
		a.currentDate(), claim, webEvidence)

	return a.invoker.Invoke(ctx, prompt)
}
