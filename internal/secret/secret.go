// internal/secret/secret.go
//
// Secret selection for a round.
// Responsibilities:
//   - Range: the inclusive domain of valid secrets and guesses.
//   - Source: capability that picks a secret within a Range.
//   - Crypto: default uniform source backed by crypto/rand.
//   - Fixed / SourceFunc: deterministic sources for tests and fixed rounds.

package secret

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrInvalidRange is returned when Min > Max.
	ErrInvalidRange = errors.New("invalid range")
	// ErrFixedOutOfRange is returned by Fixed when its value is outside the requested range.
	ErrFixedOutOfRange = errors.New("fixed secret outside range")
)

// Range is an inclusive [Min, Max] pair.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// NewRange validates and returns a Range.
func NewRange(min, max int) (Range, error) {
	r := Range{Min: min, Max: max}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

// Validate reports ErrInvalidRange when Min > Max.
func (r Range) Validate() error {
	if r.Min > r.Max {
		return fmt.Errorf("%w: min %d > max %d", ErrInvalidRange, r.Min, r.Max)
	}
	return nil
}

// Contains reports whether n lies in [Min, Max].
func (r Range) Contains(n int) bool { return n >= r.Min && n <= r.Max }

// Span is Max-Min, computed without overflow. The range holds Span()+1
// integers; for the full int range that count does not fit in a uint64.
func (r Range) Span() uint64 { return uint64(r.Max) - uint64(r.Min) }

func (r Range) String() string { return fmt.Sprintf("[%d, %d]", r.Min, r.Max) }

// Source picks a secret uniformly within r.
type Source interface {
	Generate(r Range) (int, error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func(r Range) (int, error)

func (f SourceFunc) Generate(r Range) (int, error) { return f(r) }

type cryptoSource struct{}

// Crypto returns the default Source, drawing from crypto/rand.
func Crypto() Source { return cryptoSource{} }

func (cryptoSource) Generate(r Range) (int, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	lo := big.NewInt(int64(r.Min))
	size := new(big.Int).Sub(big.NewInt(int64(r.Max)), lo)
	size.Add(size, big.NewInt(1))
	n, err := rand.Int(rand.Reader, size)
	if err != nil {
		return 0, fmt.Errorf("read random: %w", err)
	}
	return int(n.Add(n, lo).Int64()), nil
}

// Fixed always yields n.
type Fixed int

func (f Fixed) Generate(r Range) (int, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	if !r.Contains(int(f)) {
		return 0, fmt.Errorf("%w: %d not in %s", ErrFixedOutOfRange, int(f), r)
	}
	return int(f), nil
}
