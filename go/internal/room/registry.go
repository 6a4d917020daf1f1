package room

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/rpsls/go/internal/game"
	"github.com/rs/zerolog/log"
)

// Observer is told about membership changes and resolved rounds.
// Calls happen under the room lock and must not block.
type Observer interface {
	PlayerJoined(roomID string, m Member, role game.Role, members int, at time.Time)
	PlayerLeft(roomID string, m Member, members int, roundVoided bool, at time.Time)
	RoundResolved(roomID string, round int, p1, p2 game.Choice, outcome game.Outcome, at time.Time)
}

// NopObserver ignores every notification
type NopObserver struct{}

func (NopObserver) PlayerJoined(string, Member, game.Role, int, time.Time)                       {}
func (NopObserver) PlayerLeft(string, Member, int, bool, time.Time)                              {}
func (NopObserver) RoundResolved(string, int, game.Choice, game.Choice, game.Outcome, time.Time) {}

// Options configures a Registry
type Options struct {
	// StrictRoles rejects choices submitted under the role of the other member
	StrictRoles bool
	Observer    Observer
	Clock       clockwork.Clock
}

// DefaultOptions returns strict role binding with no observer
func DefaultOptions() Options {
	return Options{
		StrictRoles: true,
		Observer:    NopObserver{},
		Clock:       clockwork.NewRealClock(),
	}
}

// Registry tracks live rooms keyed by identifier
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room

	strictRoles bool
	observer    Observer
	clock       clockwork.Clock
}

// Stats is a point-in-time view of the registry
type Stats struct {
	Rooms   int            `json:"active_rooms"`
	Members int            `json:"total_members"`
	ByRoom  map[string]int `json:"room_members"`
}

// NewRegistry creates an empty registry
func NewRegistry(opts Options) *Registry {
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Registry{
		rooms:       make(map[string]*Room),
		strictRoles: opts.StrictRoles,
		observer:    opts.Observer,
		clock:       opts.Clock,
	}
}

// Join admits m into roomID, creating the room on first join.
// On success every member receives the updated member list; when the room
// is full only m is told and ErrRoomFull is returned.
func (r *Registry) Join(m Member, roomID string) (*Room, error) {
	for {
		rm := r.getOrCreate(roomID)

		rm.mu.Lock()
		if rm.closed {
			// emptied and dropped between lookup and lock
			rm.mu.Unlock()
			continue
		}

		role, err := rm.admitLocked(m)
		if err != nil {
			rm.mu.Unlock()
			log.Debug().
				Err(err).
				Str("room_id", roomID).
				Str("connection_id", m.ID()).
				Msg("join rejected")
			return nil, err
		}

		members := len(rm.seats)
		r.observer.PlayerJoined(roomID, m, role, members, r.clock.Now())
		rm.mu.Unlock()

		log.Info().
			Str("room_id", roomID).
			Str("connection_id", m.ID()).
			Str("username", m.Username()).
			Str("role", role.String()).
			Int("members", members).
			Msg("player joined room")

		return rm, nil
	}
}

// Leave removes m from roomID, discarding any half-played round and telling
// the remaining member. The room is dropped once empty.
func (r *Registry) Leave(m Member, roomID string) error {
	rm, ok := r.Room(roomID)
	if !ok {
		return ErrNotMember
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	voided, err := rm.removeLocked(m)
	if err != nil {
		return err
	}

	members := len(rm.seats)
	r.observer.PlayerLeft(roomID, m, members, voided, r.clock.Now())

	if members == 0 {
		rm.closed = true
		r.drop(rm)
	}

	log.Info().
		Str("room_id", roomID).
		Str("connection_id", m.ID()).
		Int("members", members).
		Bool("round_voided", voided).
		Msg("player left room")

	return nil
}

// Room returns the live room for id
func (r *Registry) Room(id string) (*Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[id]
	return rm, ok
}

// Stats returns counts of live rooms and members
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		rooms = append(rooms, rm)
	}
	r.mu.Unlock()

	stats := Stats{ByRoom: make(map[string]int, len(rooms))}
	for _, rm := range rooms {
		n := rm.Size()
		if n == 0 {
			continue
		}
		stats.Rooms++
		stats.Members += n
		stats.ByRoom[rm.id] = n
	}
	return stats
}

func (r *Registry) getOrCreate(id string) *Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rm, ok := r.rooms[id]; ok {
		return rm
	}

	rm := &Room{
		id:        id,
		registry:  r,
		createdAt: r.clock.Now(),
	}
	r.rooms[id] = rm
	log.Debug().Str("room_id", id).Msg("room created")
	return rm
}

// drop removes rm from the map; callers hold rm.mu
func (r *Registry) drop(rm *Room) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.rooms[rm.id]; ok && cur == rm {
		delete(r.rooms, rm.id)
		log.Debug().Str("room_id", rm.id).Msg("room destroyed")
	}
}
