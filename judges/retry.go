package judges

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Dosada05/duel-tournament/models"
	"github.com/cenkalti/backoff/v4"
)

const (
	defaultRetryAttempts = 3
	defaultRetryInterval = 500 * time.Millisecond
	maxRetryInterval     = 10 * time.Second
)

// RetryingJudge повторяет вызов судьи с экспоненциальной задержкой.
// Некорректный ответ и ErrNoVerdict не повторяются.
type RetryingJudge struct {
	inner       Evaluator
	logger      *slog.Logger
	maxAttempts int
	interval    time.Duration
}

// NewRetryingJudge оборачивает судью повторами. При maxAttempts/interval <= 0 берутся значения по умолчанию.
func NewRetryingJudge(inner Evaluator, logger *slog.Logger, maxAttempts int, interval time.Duration) *RetryingJudge {
	if maxAttempts <= 0 {
		maxAttempts = defaultRetryAttempts
	}
	if interval <= 0 {
		interval = defaultRetryInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryingJudge{inner: inner, logger: logger, maxAttempts: maxAttempts, interval: interval}
}

func (r *RetryingJudge) Evaluate(ctx context.Context, req models.JudgeRequest) (*models.DuelResult, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.interval
	eb.MaxInterval = maxRetryInterval
	eb.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(r.maxAttempts-1)), ctx)

	attempt := 0
	op := func() (*models.DuelResult, error) {
		attempt++
		res, err := r.inner.Evaluate(ctx, req)
		if err != nil && (errors.Is(err, ErrMalformedVerdict) || errors.Is(err, ErrNoVerdict)) {
			return nil, backoff.Permanent(err)
		}
		return res, err
	}
	notify := func(err error, delay time.Duration) {
		r.logger.Warn("judge call failed, retrying",
			"tournament_id", req.TournamentID,
			"duel_id", req.DuelID,
			"attempt", attempt,
			"max_attempts", r.maxAttempts,
			"delay", delay,
			"error", err,
		)
	}

	res, err := backoff.RetryNotifyWithData(op, policy, notify)
	if err != nil {
		return nil, err
	}
	return res, nil
}
