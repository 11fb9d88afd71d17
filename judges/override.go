package judges

import (
	"context"
	"fmt"
	"sync"

	"github.com/Dosada05/duel-tournament/models"
)

type overrideKey struct {
	tournamentID string
	duelID       string
	rematchCount int
}

// OverrideJudge отдает решение оператора, если оно задано для текущей попытки дуэли,
// иначе спрашивает fallback. Решение привязано к rematchCount и не переносится на переигровку.
type OverrideJudge struct {
	mu        sync.RWMutex
	overrides map[overrideKey]models.DuelResult
	fallback  Evaluator
}

// NewOverrideJudge создает судью с ручными решениями. fallback может быть nil.
func NewOverrideJudge(fallback Evaluator) *OverrideJudge {
	return &OverrideJudge{
		overrides: make(map[overrideKey]models.DuelResult),
		fallback:  fallback,
	}
}

func (j *OverrideJudge) SetOverride(tournamentID, duelID string, rematchCount int, res models.DuelResult) error {
	if res.Confidence == "" {
		res.Confidence = models.ConfidenceHigh
	}
	if err := checkResult(&res); err != nil {
		return err
	}
	if rematchCount < 0 {
		return fmt.Errorf("%w: negative rematch count", ErrMalformedVerdict)
	}
	res.Forced = false

	j.mu.Lock()
	defer j.mu.Unlock()
	j.overrides[overrideKey{tournamentID, duelID, rematchCount}] = res
	return nil
}

func (j *OverrideJudge) ClearOverride(tournamentID, duelID string, rematchCount int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.overrides, overrideKey{tournamentID, duelID, rematchCount})
}

func (j *OverrideJudge) Evaluate(ctx context.Context, req models.JudgeRequest) (*models.DuelResult, error) {
	j.mu.RLock()
	res, ok := j.overrides[overrideKey{req.TournamentID, req.DuelID, req.RematchCount}]
	j.mu.RUnlock()
	if ok {
		return &res, nil
	}
	if j.fallback == nil {
		return nil, fmt.Errorf("%w: duel %s attempt %d", ErrNoVerdict, req.DuelID, req.RematchCount)
	}
	return j.fallback.Evaluate(ctx, req)
}
