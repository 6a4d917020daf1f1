package gateway

import (
	"encoding/json"
	"errors"

	"github.com/mcdev12/rpsls/go/internal/events"
	"github.com/mcdev12/rpsls/go/internal/game"
	"github.com/mcdev12/rpsls/go/internal/room"
	"github.com/rs/zerolog/log"
)

// handleClientMessage routes one inbound frame. Events are handled in the
// order the connection sent them.
func (c *Connection) handleClientMessage(message []byte) {
	var env events.Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		c.Send(events.Failure(events.CodeBadRequest, "malformed message"))
		return
	}

	log.Debug().
		Str("connection_id", c.id).
		Str("event", string(env.Event)).
		Msg("received client event")

	switch env.Event {
	case events.JoinRoom:
		c.handleJoin(env.Data)
	case events.LeaveRoom:
		c.handleLeave()
	case events.Player1Choice:
		c.handleChoice(game.Player1, env.Data)
	case events.Player2Choice:
		c.handleChoice(game.Player2, env.Data)
	case events.GamePlay:
		c.handleRelay(events.Status, events.OpponentPicked)
	case events.Restart:
		c.handleRelay(events.RestartMessage, events.OpponentRestart)
	case events.Ping:
		c.Send(events.Message{Event: events.Pong})
	default:
		c.Send(events.Failure(events.CodeUnknownEvent, "unknown event "+string(env.Event)))
	}
}

func (c *Connection) handleJoin(data json.RawMessage) {
	roomID, err := events.ParseRoomID(data)
	if err != nil {
		c.Send(events.Failure(events.CodeBadRequest, err.Error()))
		return
	}

	current := c.currentRoom()
	if current == roomID {
		c.Send(events.Failure(events.CodeAlreadyJoined, "already in room "+roomID))
		return
	}

	// admission into the new room comes first so a refused switch keeps the current seat
	_, err = c.manager.registry.Join(c, roomID)
	switch {
	case err == nil:
	case errors.Is(err, room.ErrRoomFull):
		// the room already told this connection with a full event
		return
	case errors.Is(err, room.ErrAlreadyJoined):
		c.Send(events.Failure(events.CodeAlreadyJoined, "already in room "+roomID))
		return
	default:
		log.Error().Err(err).Str("room_id", roomID).Str("connection_id", c.id).Msg("join failed")
		c.Send(events.Failure(events.CodeBadRequest, "could not join room"))
		return
	}

	if current != "" {
		// one room per connection
		if err := c.manager.registry.Leave(c, current); err != nil {
			log.Warn().Err(err).Str("room_id", current).Str("connection_id", c.id).Msg("failed to leave previous room")
		}
	}
	c.setRoom(roomID)
}

func (c *Connection) handleLeave() {
	current := c.currentRoom()
	if current == "" {
		c.Send(events.Failure(events.CodeNotJoined, "not in a room"))
		return
	}
	if err := c.manager.registry.Leave(c, current); err != nil {
		log.Warn().Err(err).Str("room_id", current).Str("connection_id", c.id).Msg("leave failed")
	}
	c.setRoom("")
}

func (c *Connection) handleChoice(role game.Role, data json.RawMessage) {
	rm, ok := c.joinedRoom()
	if !ok {
		return
	}

	payload, err := events.ParseChoice(data)
	if err != nil {
		c.Send(events.Failure(events.CodeBadRequest, err.Error()))
		return
	}
	choice, err := game.ParseChoice(payload.Choice)
	if err != nil {
		c.Send(events.Failure(events.CodeInvalidChoice, err.Error()))
		return
	}

	if err := rm.SubmitChoice(c, role, choice); err != nil {
		c.sendRoomError(err)
	}
}

func (c *Connection) handleRelay(name events.Name, text string) {
	rm, ok := c.joinedRoom()
	if !ok {
		return
	}
	if err := rm.Relay(c, name, text); err != nil {
		c.sendRoomError(err)
	}
}

// joinedRoom resolves the connection's room or tells the client it has none
func (c *Connection) joinedRoom() (*room.Room, bool) {
	current := c.currentRoom()
	if current != "" {
		if rm, ok := c.manager.registry.Room(current); ok {
			return rm, true
		}
	}
	c.Send(events.Failure(events.CodeNotJoined, "join a room first"))
	return nil, false
}

func (c *Connection) sendRoomError(err error) {
	switch {
	case errors.Is(err, game.ErrInvalidChoice):
		c.Send(events.Failure(events.CodeInvalidChoice, err.Error()))
	case errors.Is(err, room.ErrRoleMismatch):
		c.Send(events.Failure(events.CodeRoleMismatch, "that role belongs to your opponent"))
	case errors.Is(err, room.ErrNotMember):
		c.Send(events.Failure(events.CodeNotJoined, "join a room first"))
	default:
		log.Error().Err(err).Str("connection_id", c.id).Msg("room operation failed")
		c.Send(events.Failure(events.CodeBadRequest, "request failed"))
	}
}
