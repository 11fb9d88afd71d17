package services

import (
	"context"
	"fmt"

	"github.com/Dosada05/duel-tournament/models"
)

// Judge - граница с внешним судьей (AI-сервис оценки или ручное решение оператора).
// Переходы автомата зависят только от Winner; Confidence, Reason и Scores сохраняются для аудита.
type Judge interface {
	Evaluate(ctx context.Context, req models.JudgeRequest) (*models.DuelResult, error)
}

// validateResult проверяет контракт ответа судьи.
func validateResult(res *models.DuelResult) error {
	if res == nil {
		return fmt.Errorf("%w: empty result", ErrInvalidVerdict)
	}
	if !res.Winner.IsValid() {
		return fmt.Errorf("%w: unknown winner %q", ErrInvalidVerdict, res.Winner)
	}
	if res.Confidence != "" && !res.Confidence.IsValid() {
		return fmt.Errorf("%w: unknown confidence %q", ErrInvalidVerdict, res.Confidence)
	}
	return nil
}

func buildJudgeRequest(d *models.Duel) models.JudgeRequest {
	req := models.JudgeRequest{
		TournamentID: d.TournamentID,
		DuelID:       d.ID,
		RematchCount: d.RematchCount,
		SubmissionA:  models.Submission{Missing: true},
		SubmissionB:  models.Submission{Missing: true},
	}
	if d.Question != nil {
		req.Question = *d.Question
	}
	if d.SubmissionA != nil {
		req.SubmissionA = *d.SubmissionA
	}
	if d.SubmissionB != nil {
		req.SubmissionB = *d.SubmissionB
	}
	return req
}

// forceTiebreak превращает переигровку в решение, когда лимит переигровок исчерпан:
// больше correct, затем clarity, затем steps; при полном равенстве побеждает слот A.
func forceTiebreak(res models.DuelResult, rematches int) models.DuelResult {
	a, b := res.Scores.A, res.Scores.B
	winner := models.VerdictA
	switch {
	case a.Correct != b.Correct:
		if b.Correct > a.Correct {
			winner = models.VerdictB
		}
	case a.Clarity != b.Clarity:
		if b.Clarity > a.Clarity {
			winner = models.VerdictB
		}
	case a.Steps != b.Steps:
		if b.Steps > a.Steps {
			winner = models.VerdictB
		}
	}
	forced := res
	forced.Winner = winner
	forced.Forced = true
	forced.Confidence = models.ConfidenceLow
	forced.Reason = fmt.Sprintf("forced tiebreak after %d rematches; judge said: %s", rematches, res.Reason)
	return forced
}
