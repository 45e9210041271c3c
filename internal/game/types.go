// internal/game/types.go
//
// Core type definitions for the round engine.
// Defines:
//   - Outcome: playing / won / lost.
//   - Band, Direction, Tier: feedback for a non-matching guess.
//   - GuessResult: what a single accepted guess produced.
//   - Round: state for one in-progress or finished round.

package game

import (
	"time"

	"github.com/robalobadob/numguess/internal/secret"
)

// Outcome is the coarse state of a round.
type Outcome string

const (
	OutcomeInProgress Outcome = "playing"
	OutcomeWon        Outcome = "won"
	OutcomeLost       Outcome = "lost"
)

// Terminal reports whether no further guesses are accepted.
func (o Outcome) Terminal() bool { return o == OutcomeWon || o == OutcomeLost }

// Band is the distance classification of a miss.
type Band string

const (
	BandVeryClose Band = "very_close"
	BandWarm      Band = "warm"
	BandCold      Band = "cold"
)

// Direction tells the player which way to move next.
type Direction string

const (
	DirectionHigher Direction = "higher"
	DirectionLower  Direction = "lower"
)

// Tier is the feedback for a guess that did not match.
type Tier struct {
	Band      Band      `json:"band"`
	Direction Direction `json:"direction"`
}

func (t Tier) String() string {
	if t.Band == "" {
		return ""
	}
	return string(t.Band) + "(" + string(t.Direction) + ")"
}

// GuessResult is produced for every accepted guess.
// Tier is the zero value when Match is true.
type GuessResult struct {
	Guess     int     `json:"guess"`
	Match     bool    `json:"match"`
	Tier      Tier    `json:"tier"`
	Attempt   int     `json:"attempt"`   // 1-based number of this guess
	Remaining int     `json:"remaining"` // attempts left after this guess
	Outcome   Outcome `json:"state"`
}

// Round holds the state of a single guessing round.
// Secret is assigned once in New and never changes.
type Round struct {
	ID         string       `json:"id"`
	Preset     string       `json:"preset,omitempty"`
	Range      secret.Range `json:"range"`
	Secret     int          `json:"-"`
	Budget     int          `json:"budget"`
	Attempts   int          `json:"attempts"`
	Guesses    []int        `json:"guesses"` // accepted guesses, in order
	Outcome    Outcome      `json:"state"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt,omitzero"`
}

// Clone returns a deep copy safe to hand to another goroutine.
func (rd *Round) Clone() *Round {
	c := *rd
	c.Guesses = append([]int(nil), rd.Guesses...)
	return &c
}
