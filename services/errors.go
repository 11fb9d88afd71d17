package services

import (
	"errors"
	"fmt"

	"github.com/Dosada05/duel-tournament/repositories"
)

// Ошибки сервисного слоя, которые маппятся в HTTP-ответы.
var (
	ErrDuelNotFound     = errors.New("duel not found")
	ErrValidationFailed = errors.New("validation failed")

	// Ошибки конечного автомата дуэли. Повтор без исправления предусловия не поможет.
	ErrSlotsNotReady       = errors.New("both team slots must be filled before scheduling")
	ErrInvalidTransition   = errors.New("invalid duel status transition")
	ErrDuplicateSubmission = errors.New("submission already recorded for this slot")
	ErrInvalidSlot         = errors.New("slot must be A or B")

	// Нарушение целостности: продвижение остановлено, чаще всего это повторная обработка выше по цепочке.
	ErrSlotConflict = errors.New("downstream slot already holds a different team")

	// Временные ошибки судьи: дуэль остается в awaiting_judgement и может быть отправлена на судейство снова.
	ErrJudgingFailed  = errors.New("judging adapter call failed")
	ErrInvalidVerdict = errors.New("judge returned an invalid verdict")

	ErrBracketExists      = errors.New("bracket already exists for this tournament")
	ErrTournamentNotFound = errors.New("tournament bracket not found")
)

func handleRepositoryError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, repositories.ErrDuelNotFound):
		return fmt.Errorf("%w: %s", ErrDuelNotFound, msg)
	case errors.Is(err, repositories.ErrBracketExists):
		return fmt.Errorf("%w: %s", ErrBracketExists, msg)
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}
