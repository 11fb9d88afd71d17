package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/duel-tournament/metrics"
	"github.com/Dosada05/duel-tournament/models"
	"github.com/Dosada05/duel-tournament/repositories"
	"golang.org/x/sync/singleflight"
)

// DefaultMaxRematches - сколько раз подряд судья может назначить переигровку, прежде чем решит тай-брейк.
const DefaultMaxRematches = 3

type DuelService interface {
	Get(ctx context.Context, tournamentID, duelID string) (*models.Duel, error)
	List(ctx context.Context, tournamentID string, filter repositories.DuelFilter) ([]*models.Duel, error)
	Schedule(ctx context.Context, tournamentID, duelID string) (*models.Duel, error)
	Start(ctx context.Context, tournamentID, duelID string) (*models.Duel, error)
	Submit(ctx context.Context, tournamentID, duelID string, slot models.Slot, answer string) (*models.Duel, error)
	Expire(ctx context.Context, tournamentID, duelID string) (*models.Duel, error)
	// Judge запрашивает решение судьи. Если судейство прошло, а продвижение победителя нет,
	// возвращается засуженная дуэль вместе с ошибкой.
	Judge(ctx context.Context, tournamentID, duelID string) (*models.Duel, error)
	Advance(ctx context.Context, tournamentID, duelID string) (*models.Duel, error)
}

type DuelServiceConfig struct {
	MaxRematches int
	Now          func() time.Time
	// Archiver необязателен: без него завершенный турнир не архивируется.
	Archiver BracketArchiver
}

type duelService struct {
	duels     repositories.DuelRepository
	judge     Judge
	publisher EventPublisher
	metrics   *metrics.DuelMetrics
	logger    *slog.Logger
	archiver  BracketArchiver

	maxRematches int
	now          func() time.Time

	locks  *duelLocks
	flight singleflight.Group
}

func NewDuelService(
	duels repositories.DuelRepository,
	judge Judge,
	publisher EventPublisher,
	m *metrics.DuelMetrics,
	logger *slog.Logger,
	cfg DuelServiceConfig,
) DuelService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxRematches < 0 {
		cfg.MaxRematches = 0
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &duelService{
		duels:        duels,
		judge:        judge,
		publisher:    publisher,
		metrics:      m,
		logger:       logger,
		archiver:     cfg.Archiver,
		maxRematches: cfg.MaxRematches,
		now:          cfg.Now,
		locks:        newDuelLocks(),
	}
}

// transition описывает, что изменила мутация: пройденные статусы и заполненный слот.
type transition struct {
	path       []models.DuelStatus
	slotFilled *models.Slot
}

func moveTo(statuses ...models.DuelStatus) transition {
	return transition{path: statuses}
}

// errUnchanged возвращается из мутации, когда запись не нужна (повторное продвижение).
var errUnchanged = errors.New("duel unchanged")

// mutate выполняет переход под замком дуэли: чтение, изменение и запись либо целиком, либо никак.
func (s *duelService) mutate(
	ctx context.Context,
	tournamentID, duelID string,
	fn func(d *models.Duel, now time.Time) (transition, error),
) (*models.Duel, error) {
	unlock, err := s.locks.lock(ctx, lockKey(tournamentID, duelID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	d, err := s.duels.GetByID(ctx, tournamentID, duelID)
	if err != nil {
		return nil, handleRepositoryError(err, "duel %s/%s", tournamentID, duelID)
	}

	now := s.now()
	old := d.Status
	tr, err := fn(d, now)
	if errors.Is(err, errUnchanged) {
		return d, nil
	}
	if err != nil {
		return nil, err
	}

	d.UpdatedAt = now
	if err := s.duels.Update(ctx, d); err != nil {
		return nil, handleRepositoryError(err, "update duel %s/%s", tournamentID, duelID)
	}

	s.recordTransitions(ctx, d, old, tr, now)
	return d, nil
}

// snapshot читает дуэль под замком: не видит половину чужого перехода.
func (s *duelService) snapshot(ctx context.Context, tournamentID, duelID string) (*models.Duel, error) {
	unlock, err := s.locks.lock(ctx, lockKey(tournamentID, duelID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	d, err := s.duels.GetByID(ctx, tournamentID, duelID)
	if err != nil {
		return nil, handleRepositoryError(err, "duel %s/%s", tournamentID, duelID)
	}
	return d, nil
}

func (s *duelService) recordTransitions(ctx context.Context, d *models.Duel, old models.DuelStatus, tr transition, now time.Time) {
	from := old
	for _, to := range tr.path {
		s.metrics.Transition(from, to)
		switch {
		case to == models.DuelStatusRematchScheduled:
			s.metrics.Rematch()
		case to == models.DuelStatusJudged && d.Result != nil && d.Result.Forced:
			s.metrics.ForcedTiebreak()
		}
		s.logger.Info("duel status changed",
			"tournament_id", d.TournamentID,
			"duel_id", d.ID,
			"from", from,
			"to", to,
			"rematch_count", d.RematchCount,
		)
		ev := models.NewDuelEvent(models.EventDuelStatusChange, d, from, now)
		ev.NewStatus = to
		s.publish(ctx, ev)
		from = to
	}

	if tr.slotFilled != nil {
		s.metrics.Advanced()
		team := d.Team(*tr.slotFilled)
		s.logger.Info("duel slot filled",
			"tournament_id", d.TournamentID,
			"duel_id", d.ID,
			"slot", *tr.slotFilled,
			"team_id", *team,
		)
		ev := models.NewDuelEvent(models.EventDuelSlotFilled, d, d.Status, now)
		ev.Winner = tr.slotFilled
		ev.WinnerTeamID = team
		s.publish(ctx, ev)
	}
}

// publish не откатывает переход: ошибка доставки события только логируется.
func (s *duelService) publish(ctx context.Context, ev models.DuelEvent) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("failed to publish duel event",
			"event_type", ev.Type,
			"tournament_id", ev.TournamentID,
			"duel_id", ev.DuelID,
			"error", err,
		)
	}
}

func (s *duelService) Get(ctx context.Context, tournamentID, duelID string) (*models.Duel, error) {
	return s.snapshot(ctx, tournamentID, duelID)
}

func (s *duelService) List(ctx context.Context, tournamentID string, filter repositories.DuelFilter) ([]*models.Duel, error) {
	duels, err := s.duels.ListByTournament(ctx, tournamentID, filter)
	if err != nil {
		return nil, handleRepositoryError(err, "list duels of tournament %s", tournamentID)
	}
	if duels == nil {
		return []*models.Duel{}, nil
	}
	return duels, nil
}

func (s *duelService) Schedule(ctx context.Context, tournamentID, duelID string) (*models.Duel, error) {
	return s.mutate(ctx, tournamentID, duelID, func(d *models.Duel, now time.Time) (transition, error) {
		if d.Status != models.DuelStatusPending {
			return transition{}, invalidTransition(d, models.DuelStatusScheduled)
		}
		if !d.SlotsReady() {
			return transition{}, fmt.Errorf("%w: duel %s", ErrSlotsNotReady, d.ID)
		}
		d.Status = models.DuelStatusScheduled
		return moveTo(models.DuelStatusScheduled), nil
	})
}

func (s *duelService) Start(ctx context.Context, tournamentID, duelID string) (*models.Duel, error) {
	return s.mutate(ctx, tournamentID, duelID, func(d *models.Duel, now time.Time) (transition, error) {
		if d.Status != models.DuelStatusScheduled {
			return transition{}, invalidTransition(d, models.DuelStatusActive)
		}
		if d.Question == nil {
			return transition{}, fmt.Errorf("%w: duel %s has no question", ErrInvalidTransition, d.ID)
		}
		start := now
		d.StartTime = &start
		d.EndTime = nil
		d.Status = models.DuelStatusActive
		return moveTo(models.DuelStatusActive), nil
	})
}

func (s *duelService) Submit(ctx context.Context, tournamentID, duelID string, slot models.Slot, answer string) (*models.Duel, error) {
	if !slot.IsValid() {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidSlot, slot)
	}
	return s.mutate(ctx, tournamentID, duelID, func(d *models.Duel, now time.Time) (transition, error) {
		if d.Status != models.DuelStatusActive {
			return transition{}, fmt.Errorf("%w: duel %s is %s, submissions are accepted only while active", ErrInvalidTransition, d.ID, d.Status)
		}
		if deadline, ok := d.Deadline(); ok && now.After(deadline) {
			return transition{}, fmt.Errorf("%w: duel %s time limit elapsed at %s", ErrInvalidTransition, d.ID, deadline.Format(time.RFC3339))
		}
		if d.Submission(slot) != nil {
			return transition{}, fmt.Errorf("%w: duel %s slot %s", ErrDuplicateSubmission, d.ID, slot)
		}
		d.SetSubmission(slot, &models.Submission{Answer: answer, SubmittedAt: now})

		if d.SubmissionA == nil || d.SubmissionB == nil {
			return transition{}, nil
		}
		d.Status = models.DuelStatusAwaitingJudgement
		return moveTo(models.DuelStatusAwaitingJudgement), nil
	})
}

func (s *duelService) Expire(ctx context.Context, tournamentID, duelID string) (*models.Duel, error) {
	return s.mutate(ctx, tournamentID, duelID, func(d *models.Duel, now time.Time) (transition, error) {
		if d.Status != models.DuelStatusActive {
			return transition{}, invalidTransition(d, models.DuelStatusAwaitingJudgement)
		}
		deadline, ok := d.Deadline()
		if !ok || now.Before(deadline) {
			return transition{}, fmt.Errorf("%w: duel %s time limit has not elapsed", ErrInvalidTransition, d.ID)
		}
		// Отсутствующий ответ - пустой и максимально штрафуемый, судья все равно выносит решение.
		for _, slot := range []models.Slot{models.SlotA, models.SlotB} {
			if d.Submission(slot) == nil {
				d.SetSubmission(slot, &models.Submission{SubmittedAt: now, Missing: true})
			}
		}
		d.Status = models.DuelStatusAwaitingJudgement
		return moveTo(models.DuelStatusAwaitingJudgement), nil
	})
}

func (s *duelService) Judge(ctx context.Context, tournamentID, duelID string) (*models.Duel, error) {
	v, err, _ := s.flight.Do(lockKey(tournamentID, duelID), func() (interface{}, error) {
		return s.judgeOnce(ctx, tournamentID, duelID)
	})
	d, _ := v.(*models.Duel)
	// Результат singleflight общий для всех ожидающих.
	return d.Clone(), err
}

func (s *duelService) judgeOnce(ctx context.Context, tournamentID, duelID string) (*models.Duel, error) {
	snap, err := s.snapshot(ctx, tournamentID, duelID)
	if err != nil {
		return nil, err
	}
	if snap.Status != models.DuelStatusAwaitingJudgement {
		return nil, invalidTransition(snap, models.DuelStatusJudged)
	}

	// Замок не держится во время вызова судьи.
	started := time.Now()
	res, err := s.judge.Evaluate(ctx, buildJudgeRequest(snap))
	if err == nil {
		err = validateResult(res)
	}
	if err != nil {
		s.metrics.ObserveJudge("error", time.Since(started))
		s.logger.Warn("judging failed, duel stays awaiting judgement",
			"tournament_id", tournamentID,
			"duel_id", duelID,
			"rematch_count", snap.RematchCount,
			"error", err,
		)
		if errors.Is(err, ErrInvalidVerdict) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: duel %s: %w", ErrJudgingFailed, duelID, err)
	}
	s.metrics.ObserveJudge(string(res.Winner), time.Since(started))

	verdict := *res
	judged, err := s.mutate(ctx, tournamentID, duelID, func(d *models.Duel, now time.Time) (transition, error) {
		if d.Status != snap.Status || d.RematchCount != snap.RematchCount {
			return transition{}, fmt.Errorf("%w: duel %s changed while being judged", ErrInvalidTransition, d.ID)
		}
		return s.applyVerdict(d, verdict, now)
	})
	if err != nil {
		return nil, err
	}
	if judged.Status != models.DuelStatusJudged {
		return judged, nil
	}
	if err := s.advance(ctx, judged); err != nil {
		return judged, err
	}
	if judged.NextDuelID == nil {
		s.complete(ctx, judged)
	}
	return judged, nil
}

// applyVerdict переводит ожидающую дуэль по вердикту. Только Winner влияет на переход.
func (s *duelService) applyVerdict(d *models.Duel, res models.DuelResult, now time.Time) (transition, error) {
	if res.Winner == models.VerdictRematch {
		d.RematchHistory = append(d.RematchHistory, res)
		if d.RematchCount < s.maxRematches {
			d.RematchCount++
			d.SubmissionA, d.SubmissionB = nil, nil
			d.EndTime = nil
			// Вопрос тот же; повтор стартует сразу, лимит времени отсчитывается заново.
			start := now
			d.StartTime = &start
			d.Status = models.DuelStatusActive
			return moveTo(models.DuelStatusRematchScheduled, models.DuelStatusActive), nil
		}
		res = forceTiebreak(res, d.RematchCount)
	}

	slot, ok := res.Winner.Slot()
	if !ok {
		return transition{}, fmt.Errorf("%w: %q", ErrInvalidVerdict, res.Winner)
	}
	winner, loser := d.Team(slot), d.Team(slot.Opposite())
	if winner == nil || loser == nil {
		return transition{}, fmt.Errorf("%w: duel %s", ErrSlotsNotReady, d.ID)
	}

	judgedAt := now
	d.Result = &res
	d.Winner = &slot
	d.WinnerTeamID = winner
	d.LoserTeamID = loser
	d.JudgedAt = &judgedAt
	d.EndTime = &judgedAt
	d.Status = models.DuelStatusJudged
	return moveTo(models.DuelStatusJudged), nil
}

func invalidTransition(d *models.Duel, to models.DuelStatus) error {
	return fmt.Errorf("%w: duel %s cannot move from %s to %s", ErrInvalidTransition, d.ID, d.Status, to)
}
