package room

import (
	"errors"
	"sync"
	"time"

	"github.com/mcdev12/rpsls/go/internal/events"
	"github.com/mcdev12/rpsls/go/internal/game"
)

// MaxMembers is the capacity of every room
const MaxMembers = 2

var (
	// ErrRoomFull is returned when a third connection tries to join
	ErrRoomFull = errors.New("room is full")
	// ErrAlreadyJoined is returned when a member joins a room it is already in
	ErrAlreadyJoined = errors.New("already joined")
	// ErrNotMember is returned for room operations by a connection outside the room
	ErrNotMember = errors.New("not a member of this room")
	// ErrRoleMismatch is returned when a member submits under the other player's role
	ErrRoleMismatch = errors.New("role does not belong to this member")
)

// Member is a connection that can sit in a room.
// Send must not block: it is called while the room lock is held.
type Member interface {
	ID() string
	Username() string
	Send(msg events.Message)
}

type seat struct {
	member   Member
	role     game.Role
	joinedAt time.Time
}

// Room pairs at most two members and owns their round
type Room struct {
	id       string
	registry *Registry

	mu        sync.Mutex
	seats     []seat
	round     game.Round
	closed    bool
	createdAt time.Time
}

// ID returns the caller supplied room identifier
func (rm *Room) ID() string {
	return rm.id
}

// Members returns member ids in join order
func (rm *Room) Members() []string {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.memberIDsLocked()
}

// Size returns the current member count
func (rm *Room) Size() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.seats)
}

// RoleOf returns the role assigned to m at join
func (rm *Room) RoleOf(m Member) (game.Role, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if s := rm.seatLocked(m); s != nil {
		return s.role, true
	}
	return 0, false
}

// PendingChoices returns how many choices the in-flight round holds
func (rm *Room) PendingChoices() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.round.Pending()
}

// RoundsPlayed returns how many rounds this room has resolved
func (rm *Room) RoundsPlayed() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.round.Resolved()
}

// SubmitChoice files choice under role, echoes it to the room and, once both
// players have picked, broadcasts the result and starts a fresh round.
func (rm *Room) SubmitChoice(m Member, role game.Role, choice game.Choice) error {
	if !choice.Valid() {
		return game.ErrInvalidChoice
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	s := rm.seatLocked(m)
	if s == nil {
		return ErrNotMember
	}
	if rm.registry.strictRoles && s.role != role {
		return ErrRoleMismatch
	}

	other := game.Player2
	if role == game.Player2 {
		other = game.Player1
	}
	otherChoice, _ := rm.round.Choice(other)

	outcome, resolved := rm.round.Submit(role, choice)

	rm.broadcastLocked(events.Message{
		Event: ChoiceEvent(role),
		Data:  events.ChoicePayload{Choice: string(choice)},
	}, nil)

	if !resolved {
		return nil
	}

	rm.broadcastLocked(events.Message{
		Event: events.Result,
		Data:  events.ResultPayload{Winner: string(outcome)},
	}, nil)

	p1, p2 := choice, otherChoice
	if role == game.Player2 {
		p1, p2 = otherChoice, choice
	}
	rm.registry.observer.RoundResolved(rm.id, rm.round.Resolved(), p1, p2, outcome, rm.registry.clock.Now())
	return nil
}

// Relay sends a text notice from m to the other member(s)
func (rm *Room) Relay(m Member, name events.Name, text string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.seatLocked(m) == nil {
		return ErrNotMember
	}
	rm.broadcastLocked(events.Text(name, text), m)
	return nil
}

// ResetRound discards any choices of the in-flight round
func (rm *Room) ResetRound() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.round.Reset()
}

func (rm *Room) admitLocked(m Member) (game.Role, error) {
	if rm.seatLocked(m) != nil {
		return 0, ErrAlreadyJoined
	}
	if len(rm.seats) >= MaxMembers {
		m.Send(events.Text(events.Full, events.FullMessage))
		return 0, ErrRoomFull
	}

	role := rm.freeRoleLocked()
	rm.seats = append(rm.seats, seat{
		member:   m,
		role:     role,
		joinedAt: rm.registry.clock.Now(),
	})

	rm.broadcastLocked(events.Message{
		Event: events.UpdatedUsers,
		Data:  rm.memberIDsLocked(),
	}, nil)

	return role, nil
}

// removeLocked drops m and reports whether a half-played round was discarded
func (rm *Room) removeLocked(m Member) (voided bool, err error) {
	idx := -1
	for i, s := range rm.seats {
		if s.member.ID() == m.ID() {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, ErrNotMember
	}

	rm.seats = append(rm.seats[:idx], rm.seats[idx+1:]...)

	voided = rm.round.Pending() > 0
	rm.round.Reset()

	rm.broadcastLocked(events.Text(events.Disconnected, events.OpponentLeft), nil)
	if voided {
		rm.broadcastLocked(events.Text(events.RoundVoid, events.RoundVoidedNotice), nil)
	}

	return voided, nil
}

func (rm *Room) freeRoleLocked() game.Role {
	for _, role := range game.Roles {
		taken := false
		for _, s := range rm.seats {
			if s.role == role {
				taken = true
				break
			}
		}
		if !taken {
			return role
		}
	}
	return game.Player2
}

func (rm *Room) seatLocked(m Member) *seat {
	for i := range rm.seats {
		if rm.seats[i].member.ID() == m.ID() {
			return &rm.seats[i]
		}
	}
	return nil
}

func (rm *Room) memberIDsLocked() []string {
	ids := make([]string, 0, len(rm.seats))
	for _, s := range rm.seats {
		ids = append(ids, s.member.ID())
	}
	return ids
}

// broadcastLocked sends msg to every member except skip
func (rm *Room) broadcastLocked(msg events.Message, skip Member) {
	for _, s := range rm.seats {
		if skip != nil && s.member.ID() == skip.ID() {
			continue
		}
		s.member.Send(msg)
	}
}

// ChoiceEvent returns the event name used to echo a role's choice
func ChoiceEvent(role game.Role) events.Name {
	if role == game.Player2 {
		return events.Player2Choice
	}
	return events.Player1Choice
}
