package broker

import (
	"time"

	"github.com/mcdev12/rpsls/go/internal/events"
	"github.com/mcdev12/rpsls/go/internal/game"
	"github.com/mcdev12/rpsls/go/internal/room"
	"github.com/rs/zerolog/log"
)

// RoomObserver turns registry notifications into match events
type RoomObserver struct {
	queue *AsyncPublisher
}

var _ room.Observer = (*RoomObserver)(nil)

// NewRoomObserver creates an observer feeding queue
func NewRoomObserver(queue *AsyncPublisher) *RoomObserver {
	return &RoomObserver{queue: queue}
}

func (o *RoomObserver) PlayerJoined(roomID string, m room.Member, role game.Role, members int, at time.Time) {
	o.emit(events.TypePlayerJoined, roomID, at, events.PlayerJoinedPayload{
		RoomID:       roomID,
		ConnectionID: m.ID(),
		Username:     m.Username(),
		Role:         role.String(),
		Members:      members,
		JoinedAt:     at,
	})
}

func (o *RoomObserver) PlayerLeft(roomID string, m room.Member, members int, roundVoided bool, at time.Time) {
	o.emit(events.TypePlayerLeft, roomID, at, events.PlayerLeftPayload{
		RoomID:       roomID,
		ConnectionID: m.ID(),
		Username:     m.Username(),
		Members:      members,
		RoundVoided:  roundVoided,
		LeftAt:       at,
	})
}

func (o *RoomObserver) RoundResolved(roomID string, round int, p1, p2 game.Choice, outcome game.Outcome, at time.Time) {
	o.emit(events.TypeRoundResolved, roomID, at, events.RoundResolvedPayload{
		RoomID:        roomID,
		Round:         round,
		Player1Choice: string(p1),
		Player2Choice: string(p2),
		Winner:        string(outcome),
		ResolvedAt:    at,
	})
}

func (o *RoomObserver) emit(eventType, roomID string, at time.Time, payload any) {
	event, err := NewMatchEvent(eventType, roomID, at, payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to build match event")
		return
	}
	o.queue.Enqueue(event)
}
