package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pmordasov/veracity/internal/llm"
)

// ParseError reports that a model response could not be decoded. It
// carries the raw response so the caller can surface a useful diagnostic;
// claim extraction failures abort the batch because everything downstream
// needs claims.
type ParseError struct {
	Raw string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse model response as JSON: %s", truncateForError(e.Raw))
}

func truncateForError(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}

// ExtractClaims turns a report into an ordered list of standalone,
// search-ready claims. Attributed statements are split into attribution
// and substance; pronouns and missing context are resolved so each claim
// is independently verifiable.
func (a *Agents) ExtractClaims(ctx context.Context, report string) ([]string, error) {
	prompt := fmt.Sprintf(`Analyze the following report and extract a list of ALL distinct, checkable factual claims.

CRITICAL INSTRUCTION: REWRITE CLAIMS FOR CONTEXT
- Do NOT just copy sentences. You must REWRITE them to be standalone facts.
- SPLIT ATTRIBUTED CLAIMS: if a person is quoted making a factual claim, split it into TWO claims:
  1. The Attribution: "<Person> stated that <substance>."
  2. The Substance: "<substance as a standalone fact>."
- RESOLVE PRONOUNS & ENTITIES: replace "he", "they", "the bill" with the specific person, group, or name the report identifies.
- ADD MISSING CONTEXT: attribute opinions and allegations to their speaker; include dates and locations when the report provides them.

Return ONLY a raw JSON list of strings. Do not use Markdown formatting.

Report:
%s`, truncateReport(report))

	resp := a.invoker.Invoke(ctx, prompt)
	if llm.IsErrorResult(resp) {
		a.logger.Error("claim extraction failed", "response", truncateForError(resp))
		return nil, &ParseError{Raw: resp}
	}

	clean := stripFences(resp)
	var claims []string
	if err := json.Unmarshal([]byte(clean), &claims); err != nil {
		a.logger.Error("claim extraction returned malformed JSON", "response", truncateForError(clean))
		return nil, &ParseError{Raw: clean}
	}
	return claims, nil
}
