package room_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/mcdev12/rpsls/go/internal/events"
	"github.com/mcdev12/rpsls/go/internal/game"
	"github.com/mcdev12/rpsls/go/internal/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pair(t *testing.T, reg *room.Registry, roomID string) (*room.Room, *fakeMember, *fakeMember) {
	t.Helper()
	a, b := newMember(roomID+"-A"), newMember(roomID+"-B")
	rm, err := reg.Join(a, roomID)
	require.NoError(t, err)
	_, err = reg.Join(b, roomID)
	require.NoError(t, err)
	return rm, a, b
}

func TestRoom_RoundResolution(t *testing.T) {
	reg := newRegistry()
	rm, a, b := pair(t, reg, "R1")

	require.NoError(t, rm.SubmitChoice(a, game.Player1, game.Rock))
	assert.Empty(t, a.received(events.Result))

	require.NoError(t, rm.SubmitChoice(b, game.Player2, game.Scissors))

	for _, m := range []*fakeMember{a, b} {
		res, ok := m.last(events.Result)
		require.True(t, ok)
		assert.Equal(t, events.ResultPayload{Winner: "player1"}, res.Data)

		// both picks were echoed to both ends, before the result
		assert.Equal(t, []events.Name{
			events.UpdatedUsers, events.Player1Choice, events.Player2Choice, events.Result,
		}, trimJoin(m.names()))
	}

	assert.Equal(t, 0, rm.PendingChoices())
	assert.Equal(t, 1, rm.RoundsPlayed())

	// the next submission starts a clean round
	require.NoError(t, rm.SubmitChoice(b, game.Player2, game.Paper))
	assert.Len(t, a.received(events.Result), 1)
	assert.Equal(t, 1, rm.PendingChoices())
}

// trimJoin drops the leading updated-users events so both members compare equal
func trimJoin(names []events.Name) []events.Name {
	out := []events.Name{events.UpdatedUsers}
	for _, n := range names {
		if n != events.UpdatedUsers {
			out = append(out, n)
		}
	}
	return out
}

func TestRoom_OverwriteBeforeOpponent(t *testing.T) {
	reg := newRegistry()
	rm, a, b := pair(t, reg, "R1")

	require.NoError(t, rm.SubmitChoice(a, game.Player1, game.Scissors))
	require.NoError(t, rm.SubmitChoice(a, game.Player1, game.Rock))
	require.NoError(t, rm.SubmitChoice(b, game.Player2, game.Paper))

	res, ok := b.last(events.Result)
	require.True(t, ok)
	assert.Equal(t, events.ResultPayload{Winner: "player2"}, res.Data)
	assert.Len(t, b.received(events.Result), 1)
}

func TestRoom_Draw(t *testing.T) {
	reg := newRegistry()
	rm, a, b := pair(t, reg, "R1")

	rm.SubmitChoice(a, game.Player1, game.Lizard)
	rm.SubmitChoice(b, game.Player2, game.Lizard)

	res, ok := a.last(events.Result)
	require.True(t, ok)
	assert.Equal(t, events.ResultPayload{Winner: "draw"}, res.Data)
}

func TestRoom_SubmitErrors(t *testing.T) {
	reg := newRegistry()
	rm, a, b := pair(t, reg, "R1")
	outsider := newMember("X")

	assert.ErrorIs(t, rm.SubmitChoice(outsider, game.Player1, game.Rock), room.ErrNotMember)
	assert.ErrorIs(t, rm.SubmitChoice(a, game.Player2, game.Rock), room.ErrRoleMismatch)
	assert.ErrorIs(t, rm.SubmitChoice(b, game.Player1, game.Rock), room.ErrRoleMismatch)
	assert.ErrorIs(t, rm.SubmitChoice(a, game.Player1, "banana"), game.ErrInvalidChoice)

	assert.Equal(t, 0, rm.PendingChoices())
	assert.Empty(t, a.received(events.Player1Choice))
}

func TestRoom_LooseRolesFollowEventName(t *testing.T) {
	opts := room.DefaultOptions()
	opts.StrictRoles = false
	reg := room.NewRegistry(opts)
	rm, a, b := pair(t, reg, "R1")

	// the second joiner may play as player1 when roles are not bound
	require.NoError(t, rm.SubmitChoice(b, game.Player1, game.Paper))
	require.NoError(t, rm.SubmitChoice(a, game.Player2, game.Rock))

	res, ok := a.last(events.Result)
	require.True(t, ok)
	assert.Equal(t, events.ResultPayload{Winner: "player1"}, res.Data)
}

func TestRoom_Relay(t *testing.T) {
	reg := newRegistry()
	rm, a, b := pair(t, reg, "R1")

	require.NoError(t, rm.Relay(a, events.Status, events.OpponentPicked))
	require.NoError(t, rm.Relay(b, events.RestartMessage, events.OpponentRestart))

	assert.Empty(t, a.received(events.Status))
	status, ok := b.last(events.Status)
	require.True(t, ok)
	assert.Equal(t, events.OpponentPicked, status.Data)

	assert.Empty(t, b.received(events.RestartMessage))
	restart, ok := a.last(events.RestartMessage)
	require.True(t, ok)
	assert.Equal(t, events.OpponentRestart, restart.Data)

	assert.ErrorIs(t, rm.Relay(newMember("X"), events.Status, "x"), room.ErrNotMember)
}

func TestRoom_RestartRelayDoesNotResetRound(t *testing.T) {
	reg := newRegistry()
	rm, a, _ := pair(t, reg, "R1")

	require.NoError(t, rm.SubmitChoice(a, game.Player1, game.Rock))
	require.NoError(t, rm.Relay(a, events.RestartMessage, events.OpponentRestart))
	assert.Equal(t, 1, rm.PendingChoices())

	rm.ResetRound()
	rm.ResetRound()
	assert.Equal(t, 0, rm.PendingChoices())
}

func TestRoom_DisconnectMidRound(t *testing.T) {
	reg := newRegistry()
	rm, a, b := pair(t, reg, "R1")

	require.NoError(t, rm.SubmitChoice(a, game.Player1, game.Rock))
	require.NoError(t, reg.Leave(a, "R1"))

	disc, ok := b.last(events.Disconnected)
	require.True(t, ok)
	assert.Equal(t, events.OpponentLeft, disc.Data)
	_, ok = b.last(events.RoundVoid)
	assert.True(t, ok)
	assert.Equal(t, 0, rm.PendingChoices())

	// a fresh player takes the free seat; no choice from the broken round leaks
	c := newMember("C")
	_, err := reg.Join(c, "R1")
	require.NoError(t, err)

	require.NoError(t, rm.SubmitChoice(b, game.Player2, game.Paper))
	assert.Empty(t, b.received(events.Result))

	require.NoError(t, rm.SubmitChoice(c, game.Player1, game.Scissors))
	res, ok := c.last(events.Result)
	require.True(t, ok)
	assert.Equal(t, events.ResultPayload{Winner: "player1"}, res.Data)
}

func TestRoom_LeaveWithoutPendingRoundHasNoVoidNotice(t *testing.T) {
	reg := newRegistry()
	_, a, b := pair(t, reg, "R1")

	require.NoError(t, reg.Leave(a, "R1"))
	_, ok := b.last(events.RoundVoid)
	assert.False(t, ok)
}

func TestRoom_RoomsAreIsolated(t *testing.T) {
	reg := newRegistry()
	r1, a1, b1 := pair(t, reg, "R1")
	r2, a2, b2 := pair(t, reg, "R2")

	// player1 picks in R1 only; a player2 pick in R2 must not resolve R1's round
	require.NoError(t, r1.SubmitChoice(a1, game.Player1, game.Rock))
	require.NoError(t, r2.SubmitChoice(b2, game.Player2, game.Paper))

	assert.Empty(t, a1.received(events.Result))
	assert.Empty(t, b2.received(events.Result))
	assert.Equal(t, 1, r1.PendingChoices())
	assert.Equal(t, 1, r2.PendingChoices())

	require.NoError(t, r1.SubmitChoice(b1, game.Player2, game.Scissors))
	require.NoError(t, r2.SubmitChoice(a2, game.Player1, game.Spock))

	res1, _ := a1.last(events.Result)
	res2, _ := a2.last(events.Result)
	assert.Equal(t, events.ResultPayload{Winner: "player1"}, res1.Data)
	assert.Equal(t, events.ResultPayload{Winner: "player2"}, res2.Data)

	// echoes never cross rooms
	for _, m := range b2.received(events.Player1Choice) {
		assert.Equal(t, events.ChoicePayload{Choice: "spock"}, m.Data)
	}
}

func TestRoom_ConcurrentSubmissionsAcrossRooms(t *testing.T) {
	reg := newRegistry()

	const rooms = 16
	const rounds = 50

	type table struct {
		rm   *room.Room
		a, b *fakeMember
	}
	tables := make([]table, rooms)
	for i := range tables {
		rm, a, b := pair(t, reg, fmt.Sprintf("R%d", i))
		tables[i] = table{rm: rm, a: a, b: b}
	}

	var wg sync.WaitGroup
	for i, tb := range tables {
		// even rooms: player1 always wins, odd rooms: player2 always wins
		p1, p2 := game.Rock, game.Scissors
		if i%2 == 1 {
			p1, p2 = game.Scissors, game.Rock
		}

		wg.Add(2)
		go func(tb table, c game.Choice) {
			defer wg.Done()
			for k := 0; k < rounds; k++ {
				assert.NoError(t, tb.rm.SubmitChoice(tb.a, game.Player1, c))
			}
		}(tb, p1)
		go func(tb table, c game.Choice) {
			defer wg.Done()
			for k := 0; k < rounds; k++ {
				assert.NoError(t, tb.rm.SubmitChoice(tb.b, game.Player2, c))
			}
		}(tb, p2)
	}
	wg.Wait()

	for i, tb := range tables {
		want := "player1"
		if i%2 == 1 {
			want = "player2"
		}
		results := tb.a.received(events.Result)
		assert.NotEmpty(t, results)
		assert.LessOrEqual(t, len(results), rounds)
		for _, res := range results {
			assert.Equal(t, events.ResultPayload{Winner: want}, res.Data, "room %d", i)
		}
		assert.Equal(t, len(results), tb.rm.RoundsPlayed())
		assert.Equal(t, results, tb.b.received(events.Result))
	}
}
