package events

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Name identifies a socket event
type Name string

// Inbound events (client → server)
const (
	JoinRoom      Name = "join-room"
	LeaveRoom     Name = "leave-room"
	Player1Choice Name = "player1-choice"
	Player2Choice Name = "player2-choice"
	GamePlay      Name = "game-play"
	Restart       Name = "restart"
	Ping          Name = "ping"
)

// Outbound events (server → client)
const (
	UpdatedUsers   Name = "updated-users"
	Full           Name = "full"
	Status         Name = "status"
	RestartMessage Name = "restart-message"
	Disconnected   Name = "disconnected"
	Result         Name = "result"
	RoundVoid      Name = "round-void"
	Error          Name = "error"
	Pong           Name = "pong"
)

// Player-facing notices
const (
	FullMessage       = "Sorry! Two players are already in this room."
	OpponentPicked    = "Opponent picked! Your turn."
	OpponentRestart   = "Opponent wants to play again"
	OpponentLeft      = "Opponent left the game"
	RoundVoidedNotice = "Round cancelled because your opponent left"
)

// Error codes carried in ErrorPayload
const (
	CodeInvalidChoice = "invalid-choice"
	CodeRoleMismatch  = "role-mismatch"
	CodeNotJoined     = "not-joined"
	CodeAlreadyJoined = "already-joined"
	CodeBadRequest    = "bad-request"
	CodeUnknownEvent  = "unknown-event"
)

// Envelope is an inbound frame as received from a client
type Envelope struct {
	Event Name            `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Message is an outbound frame
type Message struct {
	Event Name `json:"event"`
	Data  any  `json:"data,omitempty"`
}

// ChoicePayload is sent with player1-choice / player2-choice in both directions
type ChoicePayload struct {
	Choice string `json:"choice"`
}

// ResultPayload carries the round winner
type ResultPayload struct {
	Winner string `json:"winner"`
}

// ErrorPayload describes a rejected client event
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JoinPayload is the object form of the join-room payload
type JoinPayload struct {
	Room string `json:"room"`
}

// Text builds an outbound event whose payload is a plain string
func Text(name Name, text string) Message {
	return Message{Event: name, Data: text}
}

// Failure builds an error event
func Failure(code, message string) Message {
	return Message{Event: Error, Data: ErrorPayload{Code: code, Message: message}}
}

// ParseRoomID accepts either a bare JSON string or {"room": "..."}
func ParseRoomID(data json.RawMessage) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("room identifier is required")
	}

	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		var p JoinPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return "", fmt.Errorf("parse room identifier: %w", err)
		}
		id = p.Room
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("room identifier is required")
	}
	return id, nil
}

// ParseChoice decodes a {choice} payload
func ParseChoice(data json.RawMessage) (ChoicePayload, error) {
	var p ChoicePayload
	if len(data) == 0 {
		return p, fmt.Errorf("choice payload is required")
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse choice payload: %w", err)
	}
	return p, nil
}
