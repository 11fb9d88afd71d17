package services

import (
	"context"

	"github.com/Dosada05/duel-tournament/models"
)

// EventPublisher доставляет события смены статуса дуэлей внешним слоям (сетка, уведомления).
type EventPublisher interface {
	Publish(ctx context.Context, event models.DuelEvent) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, models.DuelEvent) error { return nil }

// BracketArchiver сохраняет итоговую сетку завершенного турнира и возвращает ее адрес.
type BracketArchiver interface {
	ArchiveBracket(ctx context.Context, tournamentID string, duels []*models.Duel) (string, error)
}
