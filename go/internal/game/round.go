package game

import "fmt"

// Role is the seat a choice is filed under
type Role int

const (
	Player1 Role = iota
	Player2
)

// Roles lists both seats in order
var Roles = []Role{Player1, Player2}

// String returns the wire name of the role
func (r Role) String() string {
	switch r {
	case Player1:
		return "player1"
	case Player2:
		return "player2"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Valid reports whether r is a known seat
func (r Role) Valid() bool {
	return r == Player1 || r == Player2
}

// Round holds the in-flight choices of one room.
// It is not safe for concurrent use; the owning room serializes access.
type Round struct {
	choices [2]Choice
	filled  [2]bool
	number  int
}

// Submit stores choice for role, overwriting any earlier pick in this round.
// When both slots are filled the round is resolved, both slots are cleared,
// and the outcome is returned with ok set.
func (r *Round) Submit(role Role, choice Choice) (outcome Outcome, ok bool) {
	if !role.Valid() {
		return "", false
	}
	r.choices[role] = choice
	r.filled[role] = true

	if !r.filled[Player1] || !r.filled[Player2] {
		return "", false
	}

	outcome = Resolve(r.choices[Player1], r.choices[Player2])
	r.Reset()
	r.number++
	return outcome, true
}

// Choice returns the pick currently stored for role
func (r *Round) Choice(role Role) (Choice, bool) {
	if !role.Valid() || !r.filled[role] {
		return "", false
	}
	return r.choices[role], true
}

// Pending returns how many slots are filled
func (r *Round) Pending() int {
	n := 0
	for _, f := range r.filled {
		if f {
			n++
		}
	}
	return n
}

// Resolved returns the number of rounds resolved so far
func (r *Round) Resolved() int {
	return r.number
}

// Reset clears both slots
func (r *Round) Reset() {
	r.choices = [2]Choice{}
	r.filled = [2]bool{}
}
