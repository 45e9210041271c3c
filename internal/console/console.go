// Package console plays rounds interactively over a line-based reader and writer.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/robalobadob/numguess/internal/game"
	"github.com/robalobadob/numguess/internal/secret"
	"github.com/robalobadob/numguess/internal/session"
)

// errInputClosed ends the session when the reader hits EOF.
var errInputClosed = errors.New("input closed")

const rule = "=================================================="

type Options struct {
	Preset game.Preset
	Name   string // prompted for when empty
	Source secret.Source
	In     io.Reader
	Out    io.Writer
	Logger *zerolog.Logger
}

type player struct {
	opts  Options
	name  string
	in    *bufio.Scanner
	out   io.Writer
	log   zerolog.Logger
	stats session.Stats
}

// Run plays rounds until the player declines another or input ends, then
// prints the final statistics. Configuration errors abort before the first round.
func Run(opts Options) (session.Stats, error) {
	if opts.Source == nil {
		opts.Source = secret.Crypto()
	}
	if err := opts.Preset.Range.Validate(); err != nil {
		return session.Stats{}, fmt.Errorf("%w: %w", game.ErrConfig, err)
	}
	if opts.Preset.Budget <= 0 {
		return session.Stats{}, fmt.Errorf("%w: attempt budget must be positive", game.ErrConfig)
	}
	p := &player{
		opts: opts,
		in:   bufio.NewScanner(opts.In),
		out:  opts.Out,
		log:  zerolog.Nop(),
	}
	if opts.Logger != nil {
		p.log = *opts.Logger
	}
	return p.run()
}

func (p *player) run() (session.Stats, error) {
	p.welcome()

	p.name = strings.TrimSpace(p.opts.Name)
	if p.name == "" {
		p.printf("\nEnter your name: ")
		line, err := p.readLine()
		if err == nil {
			p.name = strings.TrimSpace(line)
		}
		if p.name == "" {
			p.name = "Player"
		}
	}
	p.printf("\nHello, %s! Let's start the game!\n", p.name)

	for {
		score, err := p.playRound()
		if errors.Is(err, errInputClosed) {
			break
		}
		if err != nil {
			return p.stats, err
		}
		p.stats.RecordRound(score)
		if !p.playAgain() {
			break
		}
		p.printf("\nAlright %s, let's play again!\n", p.name)
	}

	p.finalStats()
	return p.stats, nil
}

func (p *player) welcome() {
	r := p.opts.Preset.Range
	p.printf("%s\n       WELCOME TO THE NUMBER GUESSING GAME\n%s\n", rule, rule)
	p.printf("\nI'm thinking of a number between %d and %d.\n", r.Min, r.Max)
	p.printf("You have %d attempts to guess it.\n", p.opts.Preset.Budget)
	p.printf("After each guess, I'll tell you if you need to go higher or lower.\n")
	p.printf("\n%s\n", strings.Repeat("-", len(rule)))
}

// playRound returns the round's final score. An abandoned round (input
// closed mid-round) returns errInputClosed and is not recorded.
func (p *player) playRound() (int, error) {
	rd, err := game.NewFromPreset(p.opts.Source, p.opts.Preset)
	if err != nil {
		return 0, err
	}

	for !rd.Outcome.Terminal() {
		p.printf("\nAttempt %d/%d - Enter your guess: ", rd.Attempts+1, rd.Budget)
		line, err := p.readLine()
		if err != nil {
			p.log.Debug().Str("roundId", rd.ID).Int("attempts", rd.Attempts).Msg("round abandoned")
			return 0, err
		}
		res, err := rd.Submit(line)
		if ve, ok := game.AsValidation(err); ok {
			if ve.Kind == game.KindOutOfRange {
				p.printf("Please enter a number between %d and %d.\n", ve.Range.Min, ve.Range.Max)
			} else {
				p.printf("Invalid input! Please enter a whole number.\n")
			}
			continue
		}
		if err != nil {
			return 0, err
		}
		if !res.Match {
			p.printf("%s\n", Hint(res.Tier))
		}
	}

	score := rd.FinalScore()
	p.log.Debug().
		Str("roundId", rd.ID).
		Str("outcome", string(rd.Outcome)).
		Int("attempts", rd.Attempts).
		Int("score", score).
		Msg("round finished")

	if rd.Outcome == game.OutcomeWon {
		p.printf("\nCONGRATULATIONS, %s!\n", strings.ToUpper(p.name))
		p.printf("You guessed the number in %d attempt(s)!\n", rd.Attempts)
		p.printf("Your score: %d points\n", score)
	} else {
		n, _ := rd.Reveal()
		p.printf("\nSorry, %s! You've run out of attempts.\n", p.name)
		p.printf("The secret number was: %d\n", n)
		p.printf("Better luck next time!\n")
	}
	return score, nil
}

// Hint renders feedback for a miss.
func Hint(t game.Tier) string {
	if t.Direction == game.DirectionHigher {
		switch t.Band {
		case game.BandVeryClose:
			return "Too low, but you're very close!"
		case game.BandWarm:
			return "Too low, getting warmer!"
		default:
			return "Too low! Go higher!"
		}
	}
	switch t.Band {
	case game.BandVeryClose:
		return "Too high, but you're very close!"
	case game.BandWarm:
		return "Too high, getting warmer!"
	default:
		return "Too high! Go lower!"
	}
}

func (p *player) playAgain() bool {
	for {
		p.printf("\nDo you want to play again? (yes/no): ")
		line, err := p.readLine()
		if err != nil {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
		p.printf("Please enter 'yes' or 'no'.\n")
	}
}

func (p *player) finalStats() {
	s := p.stats
	p.printf("\n%s\n            FINAL STATISTICS\n%s\n", rule, rule)
	p.printf("  Games Played:  %d\n", s.GamesPlayed)
	p.printf("  Games Won:     %d\n", s.GamesWon)
	p.printf("  Win Rate:      %s\n", s.WinRateString())
	p.printf("  Total Score:   %d points\n", s.TotalScore)
	p.printf("%s\n", rule)
	p.printf("\nThank you for playing! Goodbye!\n")
}

func (p *player) readLine() (string, error) {
	if p.in.Scan() {
		return p.in.Text(), nil
	}
	if err := p.in.Err(); err != nil {
		return "", err
	}
	return "", errInputClosed
}

func (p *player) printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}
