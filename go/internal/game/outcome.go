package game

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidChoice is returned when a submitted choice is not one of the five symbols
var ErrInvalidChoice = errors.New("invalid choice")

// Choice is a symbol a player can throw
type Choice string

const (
	Rock     Choice = "rock"
	Paper    Choice = "paper"
	Scissors Choice = "scissors"
	Lizard   Choice = "lizard"
	Spock    Choice = "spock"
)

// Choices lists every valid choice
var Choices = []Choice{Rock, Paper, Scissors, Lizard, Spock}

// beats maps each choice to the choices it defeats
var beats = map[Choice][]Choice{
	Scissors: {Paper, Lizard},
	Paper:    {Rock, Spock},
	Rock:     {Lizard, Scissors},
	Lizard:   {Spock, Paper},
	Spock:    {Scissors, Rock},
}

// ParseChoice normalizes s and checks it against the known symbols
func ParseChoice(s string) (Choice, error) {
	c := Choice(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidChoice, s)
	}
	return c, nil
}

// Valid reports whether c is one of the five symbols
func (c Choice) Valid() bool {
	_, ok := beats[c]
	return ok
}

// Beats reports whether c defeats other
func (c Choice) Beats(other Choice) bool {
	for _, b := range beats[c] {
		if b == other {
			return true
		}
	}
	return false
}

// Outcome is the result of a resolved round
type Outcome string

const (
	Draw        Outcome = "draw"
	Player1Wins Outcome = "player1"
	Player2Wins Outcome = "player2"
)

// Resolve decides a round. It is total: when player1's choice does not beat
// player2's (including unrecognized values) player2 wins.
func Resolve(p1, p2 Choice) Outcome {
	if p1 == p2 {
		return Draw
	}
	if p1.Beats(p2) {
		return Player1Wins
	}
	return Player2Wins
}
