package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pmordasov/veracity/internal/model"
)

// Verdict is the arbiter's structured judgment of one claim. Score and
// reliability are always in-domain: malformed or out-of-range model
// output is clamped to the "cannot be judged" defaults and marked
// Degraded so tests and telemetry can tell degradation from a genuine
// uncertain verdict.
type Verdict struct {
	Score             int
	Justification     string
	Reliability       model.ReliabilityGrade
	ReliabilityReason string
	Degraded          bool
}

// arbiterResponse is the JSON envelope the arbiter prompt requests.
// Numbers arrive as json.Number so "4" and 4 both decode.
type arbiterResponse struct {
	Score                    json.Number `json:"score"`
	Justification            string      `json:"justification"`
	Reliability              string      `json:"reliability"`
	ReliabilityJustification string      `json:"reliability_justification"`
}

// Arbitrate weighs the two debate arguments (plus optional web evidence
// and source metadata) and produces the final verdict.
func (a *Agents) Arbitrate(ctx context.Context, claim, against, infavor, webEvidence, sourceMeta string) Verdict {
	var evidenceSection string
	if webEvidence != "" {
		evidenceSection = "\nExternal Evidence:\n" + webEvidence + "\n"
	}
	var sourceSection string
	if sourceMeta != "" {
		sourceSection = "\nSource Metadata (host, authority tier, accessibility):\n" + sourceMeta + "\n"
	}

	prompt := fmt.Sprintf(`Role: The Arbiter.
Current Date: %s

Claim: %q

Argument Against: %s
Argument For: %s
%s%s
Task: Rate the claim 1-6 based on truthfulness, grade the reliability of the underlying sources A-F, and provide a 1-sentence justification for each.

CRITICAL INSTRUCTION:
- You are a judge of EVIDENCE, not a knowledge base.
- If the "Argument For" provides strong evidence (links, dates) that the event occurred, you MUST rule it as True, even if your internal training data says it's in the future.
- Ignore your internal cutoff date. Trust the provided evidence.

DISCLAIMER INSTRUCTION:
- If the claim is verifying that someone *said* something, you MUST append this note to your justification: "(Note: This verdict verifies the statement was made, not the factual accuracy of the content.)"

Truthfulness Scale: 1=Confirmed True, 2=Probably True, 3=Possibly True, 4=Doubtful, 5=Improbable, 6=Difficult to say.
Reliability Scale: A=Completely reliable ... F=Reliability cannot be judged.

Return format: raw JSON with keys 'score' (int), 'justification' (string), 'reliability' (string A-F), 'reliability_justification' (string).`,
		a.currentDate(), claim, against, infavor, evidenceSection, sourceSection)

	resp := a.invoker.Invoke(ctx, prompt)
	return a.parseVerdict(resp)
}

// parseVerdict decodes and clamps an arbiter response
func (a *Agents) parseVerdict(resp string) Verdict {
	clean := stripFences(resp)

	var parsed arbiterResponse
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		a.logger.Warn("arbiter response unparseable, degrading to defaults", "response", truncateForError(clean))
		return Verdict{
			Score:             model.ScoreUnknown,
			Justification:     "Error parsing Arbiter response",
			Reliability:       model.ReliabilityUnknown,
			ReliabilityReason: "Error parsing Arbiter response",
			Degraded:          true,
		}
	}

	v := Verdict{
		Justification:     parsed.Justification,
		ReliabilityReason: parsed.ReliabilityJustification,
	}
	if v.Justification == "" {
		v.Justification = "No justification provided"
		v.Degraded = true
	}

	score, err := parsed.Score.Int64()
	if err != nil || int(score) != model.ClampScore(int(score)) {
		a.logger.Warn("arbiter score out of domain, clamping", "score", parsed.Score.String())
		v.Degraded = true
	}
	v.Score = model.ClampScore(int(score))
	if err != nil {
		v.Score = model.ScoreUnknown
	}

	grade := model.ReliabilityGrade(strings.ToUpper(strings.TrimSpace(parsed.Reliability)))
	if !model.ValidGrade(grade) {
		a.logger.Warn("arbiter reliability out of domain, clamping", "reliability", parsed.Reliability)
		grade = model.ReliabilityUnknown
		v.Degraded = true
	}
	v.Reliability = grade
	if v.ReliabilityReason == "" {
		v.ReliabilityReason = "No reliability justification provided"
	}

	return v
}
