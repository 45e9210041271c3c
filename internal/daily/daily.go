// Package daily implements the daily challenge: every player gets the same
// secret on a given UTC date.
package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"time"

	"github.com/robalobadob/numguess/internal/secret"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Offset returns a deterministic value in [0, span] for a date using
// HMAC(salt, YYYY-MM-DD) % (span+1).
func Offset(date time.Time, salt string, span uint64) uint64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	// first 8 bytes as uint64 for the modulus
	v := binary.BigEndian.Uint64(sum[:8])
	if span == math.MaxUint64 {
		return v
	}
	return v % (span + 1)
}

// Source is a secret.Source that yields the daily secret for Date.
type Source struct {
	Date time.Time
	Salt string
}

func (s Source) Generate(r secret.Range) (int, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	// uint64 addition wraps back into [Min, Max] for ranges wider than MaxInt.
	return int(uint64(r.Min) + Offset(s.Date, s.Salt, r.Span())), nil
}
