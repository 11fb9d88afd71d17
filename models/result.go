package models

// Verdict - исход судейства: победа одной из сторон или переигровка.
type Verdict string

const (
	VerdictA       Verdict = "A"
	VerdictB       Verdict = "B"
	VerdictRematch Verdict = "rematch"
)

func (v Verdict) IsValid() bool {
	return v == VerdictA || v == VerdictB || v == VerdictRematch
}

func (v Verdict) IsDecisive() bool {
	return v == VerdictA || v == VerdictB
}

// Slot возвращает слот победителя. Для переигровки ok=false.
func (v Verdict) Slot() (Slot, bool) {
	switch v {
	case VerdictA:
		return SlotA, true
	case VerdictB:
		return SlotB, true
	}
	return "", false
}

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

func (c Confidence) IsValid() bool {
	return c == ConfidenceHigh || c == ConfidenceMedium || c == ConfidenceLow
}

type Scorecard struct {
	Correct int `json:"correct"`
	Clarity int `json:"clarity"`
	Steps   int `json:"steps"`
}

type Scores struct {
	A Scorecard `json:"A"`
	B Scorecard `json:"B"`
}

type DuelResult struct {
	Winner     Verdict    `json:"winner"`
	Confidence Confidence `json:"confidence"`
	Reason     string     `json:"reason"`
	Scores     Scores     `json:"scores"`
	// Forced отмечает решение, принятое тай-брейком после лимита переигровок.
	Forced bool `json:"forced,omitempty"`
}

// JudgeRequest - то, что передается судье для вынесения решения.
type JudgeRequest struct {
	TournamentID string     `json:"tournament_id"`
	DuelID       string     `json:"duel_id"`
	RematchCount int        `json:"rematch_count"`
	Question     Question   `json:"question"`
	SubmissionA  Submission `json:"submission_a"`
	SubmissionB  Submission `json:"submission_b"`
}
