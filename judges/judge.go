// Package judges содержит реализации судьи дуэлей: HTTP-клиент сервиса оценки,
// ручные решения оператора и обертку с повторами.
package judges

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/duel-tournament/models"
)

// Evaluator выносит решение по дуэли. Совпадает с services.Judge.
type Evaluator interface {
	Evaluate(ctx context.Context, req models.JudgeRequest) (*models.DuelResult, error)
}

var (
	// ErrNoVerdict - решения пока нет ни у оператора, ни у сервиса оценки.
	ErrNoVerdict = errors.New("no verdict available for duel")
	// ErrMalformedVerdict - ответ судьи нарушает контракт; повтор не поможет.
	ErrMalformedVerdict = errors.New("malformed verdict")
)

func checkResult(res *models.DuelResult) error {
	if res == nil {
		return fmt.Errorf("%w: empty result", ErrMalformedVerdict)
	}
	if !res.Winner.IsValid() {
		return fmt.Errorf("%w: winner %q", ErrMalformedVerdict, res.Winner)
	}
	if !res.Confidence.IsValid() {
		return fmt.Errorf("%w: confidence %q", ErrMalformedVerdict, res.Confidence)
	}
	return nil
}
