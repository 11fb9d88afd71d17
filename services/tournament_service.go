package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/duel-tournament/brackets"
	"github.com/Dosada05/duel-tournament/models"
	"github.com/Dosada05/duel-tournament/repositories"
	"golang.org/x/sync/errgroup"
)

const DefaultJudgeConcurrency = 4

type TournamentService interface {
	InitializeBracket(ctx context.Context, tournamentID string, input InitializeBracketInput) (*Bracket, error)
	GetBracket(ctx context.Context, tournamentID string) (*Bracket, error)
	JudgeRound(ctx context.Context, tournamentID string, round int) (*RoundReport, error)
	// Sweep - внешний таймер: истекшие активные дуэли уходят на судейство, зависшие судятся повторно.
	Sweep(ctx context.Context) (*SweepReport, error)
}

type InitializeBracketInput struct {
	TeamIDs []string `json:"team_ids"`
	// Questions необязательны: без них берется пул из QuestionRepository.
	Questions []*models.Question `json:"questions,omitempty"`
}

type Bracket struct {
	TournamentID   string         `json:"tournament_id"`
	Quarterfinals  []*models.Duel `json:"quarterfinals"`
	Semifinals     []*models.Duel `json:"semifinals"`
	Final          *models.Duel   `json:"final"`
	ChampionTeamID *string        `json:"champion_team_id,omitempty"`
}

type DuelOutcome struct {
	DuelID string            `json:"duel_id"`
	Status models.DuelStatus `json:"status,omitempty"`
	Winner *models.Slot      `json:"winner,omitempty"`
	Error  string            `json:"error,omitempty"`
}

type RoundReport struct {
	TournamentID string        `json:"tournament_id"`
	Round        int           `json:"round"`
	Outcomes     []DuelOutcome `json:"outcomes"`
}

// Failed возвращает число дуэлей, которые не удалось засудить.
func (r *RoundReport) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Error != "" {
			n++
		}
	}
	return n
}

type SweepReport struct {
	Expired int `json:"expired"`
	Judged  int `json:"judged"`
	Failed  int `json:"failed"`
}

type TournamentServiceConfig struct {
	JudgeConcurrency int
	Now              func() time.Time
}

type tournamentService struct {
	duelRepo     repositories.DuelRepository
	questionRepo repositories.QuestionRepository
	generator    brackets.BracketGenerator
	duelService  DuelService
	publisher    EventPublisher
	logger       *slog.Logger

	concurrency int
	now         func() time.Time
}

func NewTournamentService(
	duelRepo repositories.DuelRepository,
	questionRepo repositories.QuestionRepository,
	generator brackets.BracketGenerator,
	duelService DuelService,
	publisher EventPublisher,
	logger *slog.Logger,
	cfg TournamentServiceConfig,
) TournamentService {
	if generator == nil {
		generator = brackets.NewSingleEliminationGenerator()
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.JudgeConcurrency <= 0 {
		cfg.JudgeConcurrency = DefaultJudgeConcurrency
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &tournamentService{
		duelRepo:     duelRepo,
		questionRepo: questionRepo,
		generator:    generator,
		duelService:  duelService,
		publisher:    publisher,
		logger:       logger,
		concurrency:  cfg.JudgeConcurrency,
		now:          cfg.Now,
	}
}

func (s *tournamentService) InitializeBracket(ctx context.Context, tournamentID string, input InitializeBracketInput) (*Bracket, error) {
	if strings.TrimSpace(tournamentID) == "" {
		return nil, fmt.Errorf("%w: tournament id is required", ErrValidationFailed)
	}

	questions := input.Questions
	if len(questions) == 0 {
		pool, err := s.questionRepo.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("load question pool: %w", err)
		}
		questions = pool
	}
	for _, q := range questions {
		if q == nil || strings.TrimSpace(q.ID) == "" {
			return nil, fmt.Errorf("%w: every question needs an id", ErrValidationFailed)
		}
	}

	plan, err := s.generator.GenerateBracket(ctx, brackets.GenerateBracketParams{TeamIDs: input.TeamIDs, Questions: questions})
	if err != nil {
		return nil, fmt.Errorf("build bracket for tournament %s: %w", tournamentID, err)
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("build bracket for tournament %s: %w", tournamentID, err)
	}

	now := s.now()
	planned := plan.All()
	duels := make([]*models.Duel, 0, len(planned))
	for _, bd := range planned {
		duels = append(duels, &models.Duel{
			ID:           bd.ID,
			TournamentID: tournamentID,
			Round:        bd.Round,
			OrderInRound: bd.OrderInRound,
			SeedA:        bd.SeedA,
			SeedB:        bd.SeedB,
			TeamA:        bd.TeamA,
			TeamB:        bd.TeamB,
			Question:     bd.Question,
			Status:       models.DuelStatusPending,
			NextDuelID:   bd.NextDuelID,
			NextSlot:     bd.NextSlot,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}

	// Сетка пишется целиком или не пишется вовсе.
	if err := s.duelRepo.CreateBracket(ctx, duels); err != nil {
		return nil, handleRepositoryError(err, "create bracket for tournament %s", tournamentID)
	}

	s.logger.Info("bracket initialized",
		"tournament_id", tournamentID,
		"generator", s.generator.GetName(),
		"duels", len(duels),
		"questions", len(questions),
	)
	for _, d := range duels {
		if err := s.publisher.Publish(ctx, models.NewDuelEvent(models.EventDuelCreated, d, "", now)); err != nil {
			s.logger.Warn("failed to publish duel event", "tournament_id", tournamentID, "duel_id", d.ID, "error", err)
		}
	}
	return groupBracket(tournamentID, duels), nil
}

func (s *tournamentService) GetBracket(ctx context.Context, tournamentID string) (*Bracket, error) {
	duels, err := s.duelRepo.ListByTournament(ctx, tournamentID, repositories.DuelFilter{})
	if err != nil {
		return nil, handleRepositoryError(err, "list duels of tournament %s", tournamentID)
	}
	if len(duels) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTournamentNotFound, tournamentID)
	}
	return groupBracket(tournamentID, duels), nil
}

func groupBracket(tournamentID string, duels []*models.Duel) *Bracket {
	b := &Bracket{
		TournamentID:  tournamentID,
		Quarterfinals: []*models.Duel{},
		Semifinals:    []*models.Duel{},
	}
	for _, d := range duels {
		switch d.Round {
		case models.RoundQuarterfinal:
			b.Quarterfinals = append(b.Quarterfinals, d)
		case models.RoundSemifinal:
			b.Semifinals = append(b.Semifinals, d)
		case models.RoundFinal:
			b.Final = d
		}
	}
	if b.Final != nil && b.Final.Status == models.DuelStatusJudged {
		b.ChampionTeamID = b.Final.WinnerTeamID
	}
	return b
}

func (s *tournamentService) JudgeRound(ctx context.Context, tournamentID string, round int) (*RoundReport, error) {
	if round < models.RoundQuarterfinal || round > models.RoundFinal {
		return nil, fmt.Errorf("%w: round must be between %d and %d", ErrValidationFailed, models.RoundQuarterfinal, models.RoundFinal)
	}
	awaiting := models.DuelStatusAwaitingJudgement
	duels, err := s.duelRepo.ListByTournament(ctx, tournamentID, repositories.DuelFilter{Round: &round, Status: &awaiting})
	if err != nil {
		return nil, handleRepositoryError(err, "list round %d of tournament %s", round, tournamentID)
	}

	report := &RoundReport{TournamentID: tournamentID, Round: round}
	report.Outcomes = s.judgeAll(ctx, duels)
	s.logger.Info("round judged",
		"tournament_id", tournamentID,
		"round", round,
		"duels", len(duels),
		"failed", report.Failed(),
	)
	return report, nil
}

// judgeAll судит дуэли параллельно. Ошибка одной дуэли не отменяет остальные.
func (s *tournamentService) judgeAll(ctx context.Context, duels []*models.Duel) []DuelOutcome {
	outcomes := make([]DuelOutcome, len(duels))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, d := range duels {
		outcomes[i].DuelID = d.ID
		g.Go(func() error {
			judged, err := s.duelService.Judge(ctx, d.TournamentID, d.ID)
			if judged != nil {
				outcomes[i].Status = judged.Status
				outcomes[i].Winner = judged.Winner
			}
			if err != nil {
				outcomes[i].Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (s *tournamentService) Sweep(ctx context.Context) (*SweepReport, error) {
	report := &SweepReport{}

	active, err := s.duelRepo.ListByStatus(ctx, models.DuelStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active duels: %w", err)
	}
	now := s.now()
	for _, d := range active {
		deadline, ok := d.Deadline()
		if !ok || now.Before(deadline) {
			continue
		}
		if _, err := s.duelService.Expire(ctx, d.TournamentID, d.ID); err != nil {
			// Дуэль могла успеть перейти сама (оба ответа пришли в последний момент).
			if !errors.Is(err, ErrInvalidTransition) {
				report.Failed++
				s.logger.Warn("failed to expire duel", "tournament_id", d.TournamentID, "duel_id", d.ID, "error", err)
			}
			continue
		}
		report.Expired++
	}

	awaiting, err := s.duelRepo.ListByStatus(ctx, models.DuelStatusAwaitingJudgement)
	if err != nil {
		return nil, fmt.Errorf("list duels awaiting judgement: %w", err)
	}
	for _, o := range s.judgeAll(ctx, awaiting) {
		if o.Error != "" {
			report.Failed++
			continue
		}
		report.Judged++
	}
	return report, nil
}
