package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MatchEvent is a room lifecycle or round event destined for the bus
type MatchEvent struct {
	ID        uuid.UUID
	Type      string
	RoomID    string
	CreatedAt time.Time
	Payload   json.RawMessage
}

// NewMatchEvent marshals payload into a new event
func NewMatchEvent(eventType, roomID string, at time.Time, payload any) (MatchEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return MatchEvent{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return MatchEvent{
		ID:        uuid.New(),
		Type:      eventType,
		RoomID:    roomID,
		CreatedAt: at,
		Payload:   data,
	}, nil
}

// envelope is the wire form shared by every publisher
type envelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	RoomID    string          `json:"roomId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Encode returns the JSON envelope for event
func Encode(event MatchEvent) ([]byte, error) {
	data, err := json.Marshal(envelope{
		EventID:   event.ID.String(),
		EventType: event.Type,
		RoomID:    event.RoomID,
		Timestamp: event.CreatedAt,
		Payload:   event.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return data, nil
}

// Subject returns the bus subject for an event type
func Subject(prefix, eventType string) string {
	return fmt.Sprintf("%s.room.%s", prefix, eventType)
}

// Publisher delivers match events
type Publisher interface {
	Publish(ctx context.Context, event MatchEvent) error
	Close() error
}

// LogPublisher only logs events; used when no bus is configured
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, event MatchEvent) error {
	log.Debug().
		Str("event_id", event.ID.String()).
		Str("event_type", event.Type).
		Str("room_id", event.RoomID).
		RawJSON("payload", event.Payload).
		Msg("match event")
	return nil
}

func (LogPublisher) Close() error { return nil }
