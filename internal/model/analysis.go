package model

// Arbiter score domain. 6 is the safe default: the claim could not be judged.
const (
	ScoreMin     = 1
	ScoreMax     = 6
	ScoreUnknown = 6
)

// ReliabilityGrade rates the sources behind a verdict, A (best) to F (worst/unknown)
type ReliabilityGrade string

const (
	ReliabilityA       ReliabilityGrade = "A"
	ReliabilityB       ReliabilityGrade = "B"
	ReliabilityC       ReliabilityGrade = "C"
	ReliabilityD       ReliabilityGrade = "D"
	ReliabilityE       ReliabilityGrade = "E"
	ReliabilityF       ReliabilityGrade = "F"
	ReliabilityUnknown ReliabilityGrade = ReliabilityF
)

// ValidGrade reports whether g is one of the six allowed grades
func ValidGrade(g ReliabilityGrade) bool {
	switch g {
	case ReliabilityA, ReliabilityB, ReliabilityC, ReliabilityD, ReliabilityE, ReliabilityF:
		return true
	}
	return false
}

// ClampScore forces an arbiter score into [ScoreMin, ScoreMax]
func ClampScore(score int) int {
	if score < ScoreMin || score > ScoreMax {
		return ScoreUnknown
	}
	return score
}

// ScoreLabel maps an arbiter score to its human-readable verdict
func ScoreLabel(score int) string {
	switch score {
	case 1:
		return "Confirmed True"
	case 2:
		return "Probably True"
	case 3:
		return "Possibly True"
	case 4:
		return "Doubtful"
	case 5:
		return "Improbable"
	default:
		return "Difficult to say"
	}
}

// ClaimAnalysis is the complete record for one verified claim.
// It is owned exclusively by one pipeline run: stages fill fields in order,
// then the record is handed to the batch collector and never touched again.
type ClaimAnalysis struct {
	Claim string `json:"claim"`

	// Stage 1
	ReportEvidence string `json:"report_evidence"`
	WebEvidence    string `json:"web_evidence"`

	// Stage 2
	DevilsAdvocateSummary string `json:"devils_advocate_summary"`
	AdvocateSummary       string `json:"advocate_summary"`

	// Stage 3
	ArbiterScore         int              `json:"arbiter_score"`
	ArbiterJustification string           `json:"arbiter_justification"`
	SourceReliability    ReliabilityGrade `json:"source_reliability_score"`
	ReliabilityReason    string           `json:"source_reliability_justification"`

	// Degraded marks records produced through a fail-soft path
	// (pipeline panic, arbiter parse failure) rather than a clean run.
	Degraded bool `json:"degraded,omitempty"`
}

// NewClaimAnalysis returns a record with the safe defaults required by the
// fail-soft contract: score 6, reliability F.
func NewClaimAnalysis(claim string) ClaimAnalysis {
	return ClaimAnalysis{
		Claim:             claim,
		ArbiterScore:      ScoreUnknown,
		SourceReliability: ReliabilityUnknown,
	}
}

// ErrorAnalysis builds the explicit error record for a claim that could not
// be processed. The justification carries the processing-error prefix so
// callers can tell failures from genuine "difficult to say" verdicts.
func ErrorAnalysis(claim, message string) ClaimAnalysis {
	a := NewClaimAnalysis(claim)
	a.ArbiterJustification = "Processing Error: " + message
	a.Degraded = true
	return a
}
