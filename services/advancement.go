package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/duel-tournament/models"
	"github.com/Dosada05/duel-tournament/repositories"
)

func (s *duelService) Advance(ctx context.Context, tournamentID, duelID string) (*models.Duel, error) {
	d, err := s.snapshot(ctx, tournamentID, duelID)
	if err != nil {
		return nil, err
	}
	if d.Status != models.DuelStatusJudged || d.Winner == nil {
		return nil, fmt.Errorf("%w: duel %s is %s, only judged duels advance", ErrInvalidTransition, d.ID, d.Status)
	}
	if d.NextDuelID == nil {
		return d, nil
	}
	if err := s.advance(ctx, d); err != nil {
		return nil, err
	}
	return s.snapshot(ctx, tournamentID, *d.NextDuelID)
}

// advance записывает победителя в слот следующей дуэли под ее собственным замком.
// Повторная запись той же команды ничего не меняет, другая команда в слоте - ErrSlotConflict.
func (s *duelService) advance(ctx context.Context, src *models.Duel) error {
	if src.NextDuelID == nil || src.NextSlot == nil {
		return nil
	}
	if src.WinnerTeamID == nil {
		return fmt.Errorf("%w: duel %s has no winner", ErrInvalidTransition, src.ID)
	}
	team, slot, nextID := *src.WinnerTeamID, *src.NextSlot, *src.NextDuelID

	_, err := s.mutate(ctx, src.TournamentID, nextID, func(next *models.Duel, now time.Time) (transition, error) {
		if current := next.Team(slot); current != nil && *current != "" {
			if *current == team {
				return transition{}, errUnchanged
			}
			return transition{}, fmt.Errorf("%w: duel %s slot %s holds %s, %s advanced from %s",
				ErrSlotConflict, next.ID, slot, *current, team, src.ID)
		}
		if other := next.Team(slot.Opposite()); other != nil && *other == team {
			return transition{}, fmt.Errorf("%w: team %s already sits in duel %s slot %s",
				ErrSlotConflict, team, next.ID, slot.Opposite())
		}
		if next.Status != models.DuelStatusPending {
			return transition{}, fmt.Errorf("%w: duel %s is %s with an empty slot", ErrInvalidTransition, next.ID, next.Status)
		}
		next.SetTeam(slot, team)
		filled := slot
		return transition{slotFilled: &filled}, nil
	})
	if errors.Is(err, ErrSlotConflict) {
		s.metrics.SlotConflict()
		s.logger.Error("advancement halted by slot conflict",
			"tournament_id", src.TournamentID,
			"duel_id", src.ID,
			"next_duel_id", nextID,
			"next_slot", slot,
			"team_id", team,
			"error", err,
		)
	}
	return err
}

// complete вызывается после судейства финала: публикует завершение и архивирует сетку.
func (s *duelService) complete(ctx context.Context, final *models.Duel) {
	s.logger.Info("tournament completed",
		"tournament_id", final.TournamentID,
		"champion_team_id", *final.WinnerTeamID,
	)
	s.publish(ctx, models.NewDuelEvent(models.EventTournamentDone, final, final.Status, s.now()))

	if s.archiver == nil {
		return
	}
	duels, err := s.duels.ListByTournament(ctx, final.TournamentID, repositories.DuelFilter{})
	if err != nil {
		s.logger.Error("failed to load bracket for archive", "tournament_id", final.TournamentID, "error", err)
		return
	}
	location, err := s.archiver.ArchiveBracket(ctx, final.TournamentID, duels)
	if err != nil {
		s.logger.Error("failed to archive bracket", "tournament_id", final.TournamentID, "error", err)
		return
	}
	s.logger.Info("bracket archived", "tournament_id", final.TournamentID, "location", location)
}
