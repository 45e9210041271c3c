// internal/game/engine.go
//
// Core engine for a single guessing round.
// Responsibilities:
//   - Create rounds from a secret.Source, a range and an attempt budget.
//   - Validate raw guesses (whole number, inside the range).
//   - Classify misses into very close / warm / cold with a direction.
//   - Track state transitions: playing -> won/lost.
//   - Score won rounds.
//
// Rejected guesses never consume an attempt.
package game

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/numguess/internal/secret"
)

const (
	// NearThreshold and WarmThreshold are inclusive upper bounds of their bands.
	NearThreshold = 5
	WarmThreshold = 15

	BaseScore         = 1000
	PenaltyPerAttempt = 100
	MinScore          = 100
)

// New constructs a round with a secret drawn from src.
func New(src secret.Source, r secret.Range, budget int) (*Round, error) {
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if budget <= 0 {
		return nil, fmt.Errorf("%w: attempt budget must be positive, got %d", ErrConfig, budget)
	}
	n, err := src.Generate(r)
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	if !r.Contains(n) {
		return nil, fmt.Errorf("%w: source returned %d outside %s", ErrConfig, n, r)
	}
	return &Round{
		ID:        uuid.NewString(),
		Range:     r,
		Secret:    n,
		Budget:    budget,
		Guesses:   []int{},
		Outcome:   OutcomeInProgress,
		StartedAt: time.Now().UTC(),
	}, nil
}

// NewFromPreset is New with the range and budget of p.
func NewFromPreset(src secret.Source, p Preset) (*Round, error) {
	rd, err := New(src, p.Range, p.Budget)
	if err != nil {
		return nil, err
	}
	rd.Preset = p.Name
	return rd, nil
}

// Submit validates raw and, if accepted, applies it to the round.
//
// Returns ErrRoundOver on a finished round and a *ValidationError for input
// that is not a whole number or lies outside the range.
func (rd *Round) Submit(raw string) (GuessResult, error) {
	if rd.Outcome.Terminal() {
		return GuessResult{}, ErrRoundOver
	}
	guess, err := rd.parse(raw)
	if err != nil {
		return GuessResult{}, err
	}

	rd.Attempts++
	rd.Guesses = append(rd.Guesses, guess)
	res := GuessResult{Guess: guess, Attempt: rd.Attempts}

	if guess == rd.Secret {
		res.Match = true
		rd.finish(OutcomeWon)
	} else {
		res.Tier = Classify(rd.Secret, guess)
		if rd.Attempts >= rd.Budget {
			rd.finish(OutcomeLost)
		}
	}
	res.Remaining = rd.Budget - rd.Attempts
	res.Outcome = rd.Outcome
	return res, nil
}

func (rd *Round) parse(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	n, err := strconv.Atoi(s)
	if err != nil {
		// A well-formed integer too large for int is still an integer.
		if errors.Is(err, strconv.ErrRange) {
			return 0, &ValidationError{Kind: KindOutOfRange, Input: raw, Range: rd.Range}
		}
		return 0, &ValidationError{Kind: KindNotANumber, Input: raw, Range: rd.Range}
	}
	if !rd.Range.Contains(n) {
		return 0, &ValidationError{Kind: KindOutOfRange, Input: raw, Range: rd.Range}
	}
	return n, nil
}

func (rd *Round) finish(o Outcome) {
	rd.Outcome = o
	rd.FinishedAt = time.Now().UTC()
}

// Classify returns the feedback tier for a guess that is not the secret.
func Classify(secretValue, guess int) Tier {
	dir := DirectionLower
	if guess < secretValue {
		dir = DirectionHigher
	}
	// distance as uint64 so extreme ints do not wrap
	d := uint64(secretValue) - uint64(guess)
	if guess > secretValue {
		d = uint64(guess) - uint64(secretValue)
	}
	switch {
	case d <= NearThreshold:
		return Tier{Band: BandVeryClose, Direction: dir}
	case d <= WarmThreshold:
		return Tier{Band: BandWarm, Direction: dir}
	default:
		return Tier{Band: BandCold, Direction: dir}
	}
}

// ScoreFor is the score of a round won in the given number of attempts.
func ScoreFor(attempts int) int {
	s := BaseScore - PenaltyPerAttempt*attempts
	if s < MinScore {
		return MinScore
	}
	return s
}

// Score is only defined for won rounds.
func (rd *Round) Score() (int, error) {
	if rd.Outcome != OutcomeWon {
		return 0, ErrNotWon
	}
	return ScoreFor(rd.Attempts), nil
}

// FinalScore is Score for a won round and 0 otherwise.
func (rd *Round) FinalScore() int {
	s, err := rd.Score()
	if err != nil {
		return 0
	}
	return s
}

// Remaining reports how many attempts are left.
func (rd *Round) Remaining() int { return rd.Budget - rd.Attempts }

// Reveal returns the secret once the round is over.
func (rd *Round) Reveal() (int, bool) {
	if !rd.Outcome.Terminal() {
		return 0, false
	}
	return rd.Secret, true
}
