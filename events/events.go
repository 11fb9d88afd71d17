// Package events переносит события смены статуса дуэлей через watermill
// и раздает их клиентам websocket-хаба по комнатам турниров.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Dosada05/duel-tournament/brackets"
	"github.com/Dosada05/duel-tournament/models"
	"github.com/ThreeDotsLabs/watermill/message"
)

const TopicDuelEvents = "duel.events"

const (
	metadataEventType    = "event_type"
	metadataTournamentID = "tournament_id"
)

// Publisher отправляет DuelEvent в топик. Удовлетворяет services.EventPublisher.
type Publisher struct {
	pub   message.Publisher
	topic string
}

func NewPublisher(pub message.Publisher) *Publisher {
	return &Publisher{pub: pub, topic: TopicDuelEvents}
}

func (p *Publisher) Publish(ctx context.Context, ev models.DuelEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode duel event %s: %w", ev.ID, err)
	}
	msg := message.NewMessage(ev.ID.String(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(metadataEventType, ev.Type)
	msg.Metadata.Set(metadataTournamentID, ev.TournamentID)

	if err := p.pub.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("publish duel event %s: %w", ev.ID, err)
	}
	return nil
}

// RoomBroadcaster - то, что нужно форвардеру от websocket-хаба.
type RoomBroadcaster interface {
	BroadcastToRoom(roomID string, message interface{})
}

// Forwarder читает топик событий и рассылает каждое событие в комнату его турнира.
type Forwarder struct {
	sub    message.Subscriber
	hub    RoomBroadcaster
	topic  string
	logger *slog.Logger
}

func NewForwarder(sub message.Subscriber, hub RoomBroadcaster, logger *slog.Logger) *Forwarder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{sub: sub, hub: hub, topic: TopicDuelEvents, logger: logger}
}

// Run блокируется до отмены ctx или закрытия подписки.
func (f *Forwarder) Run(ctx context.Context) error {
	messages, err := f.sub.Subscribe(ctx, f.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", f.topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			f.forward(msg)
		}
	}
}

func (f *Forwarder) forward(msg *message.Message) {
	// Битое сообщение подтверждается: повторная доставка его не починит.
	defer msg.Ack()

	var ev models.DuelEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		f.logger.Error("dropping undecodable duel event", "message_uuid", msg.UUID, "error", err)
		return
	}
	room := brackets.RoomForTournament(ev.TournamentID)
	f.hub.BroadcastToRoom(room, brackets.WebSocketMessage{
		Type:    ev.Type,
		Payload: ev,
		RoomID:  room,
	})
}
