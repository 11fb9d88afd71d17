package models

import (
	"time"

	"github.com/google/uuid"
)

// DuelEvent публикуется при каждой смене статуса дуэли и при продвижении победителя.
type DuelEvent struct {
	ID           uuid.UUID  `json:"id"`
	Type         string     `json:"type"`
	TournamentID string     `json:"tournament_id"`
	DuelID       string     `json:"duel_id"`
	OldStatus    DuelStatus `json:"old_status,omitempty"`
	NewStatus    DuelStatus `json:"new_status"`
	Winner       *Slot      `json:"winner,omitempty"`
	WinnerTeamID *string    `json:"winner_team_id,omitempty"`
	RematchCount int        `json:"rematch_count"`
	OccurredAt   time.Time  `json:"occurred_at"`
}

const (
	EventDuelCreated      = "DUEL_CREATED"
	EventDuelStatusChange = "DUEL_STATUS_CHANGED"
	EventDuelSlotFilled   = "DUEL_SLOT_FILLED"
	EventTournamentDone   = "TOURNAMENT_COMPLETED"
)

// NewDuelEvent собирает событие по текущему состоянию дуэли.
func NewDuelEvent(eventType string, d *Duel, old DuelStatus, at time.Time) DuelEvent {
	ev := DuelEvent{
		ID:           uuid.New(),
		Type:         eventType,
		TournamentID: d.TournamentID,
		DuelID:       d.ID,
		OldStatus:    old,
		NewStatus:    d.Status,
		RematchCount: d.RematchCount,
		OccurredAt:   at,
	}
	if d.Winner != nil {
		w := *d.Winner
		ev.Winner = &w
	}
	if d.WinnerTeamID != nil {
		id := *d.WinnerTeamID
		ev.WinnerTeamID = &id
	}
	return ev
}
