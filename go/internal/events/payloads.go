package events

import "time"

// Match event payloads published on the match bus

// Match event types
const (
	TypePlayerJoined  = "PlayerJoined"
	TypePlayerLeft    = "PlayerLeft"
	TypeRoundResolved = "RoundResolved"
)

// PlayerJoinedPayload is the payload for a PlayerJoined event
type PlayerJoinedPayload struct {
	RoomID       string    `json:"room_id"`
	ConnectionID string    `json:"connection_id"`
	Username     string    `json:"username"`
	Role         string    `json:"role"`
	Members      int       `json:"members"`
	JoinedAt     time.Time `json:"joined_at"`
}

// PlayerLeftPayload is the payload for a PlayerLeft event
type PlayerLeftPayload struct {
	RoomID       string    `json:"room_id"`
	ConnectionID string    `json:"connection_id"`
	Username     string    `json:"username"`
	Members      int       `json:"members"`
	RoundVoided  bool      `json:"round_voided"`
	LeftAt       time.Time `json:"left_at"`
}

// RoundResolvedPayload is the payload for a RoundResolved event
type RoundResolvedPayload struct {
	RoomID        string    `json:"room_id"`
	Round         int       `json:"round"`
	Player1Choice string    `json:"player1_choice"`
	Player2Choice string    `json:"player2_choice"`
	Winner        string    `json:"winner"`
	ResolvedAt    time.Time `json:"resolved_at"`
}
