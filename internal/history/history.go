// Package history persists finished rounds to SQLite.
package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/robalobadob/numguess/internal/game"
)

// Entry is one finished round as stored in the rounds table.
type Entry struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"-"`
	Preset     string    `json:"preset,omitempty"`
	Min        int       `json:"min"`
	Max        int       `json:"max"`
	Budget     int       `json:"budget"`
	Attempts   int       `json:"attempts"`
	Outcome    string    `json:"state"`
	Score      int       `json:"score"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// tsLayout is fixed-width so timestamps sort lexically.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// FromRound builds an Entry for a finished round.
func FromRound(owner string, rd *game.Round) Entry {
	return Entry{
		ID:         rd.ID,
		OwnerID:    owner,
		Preset:     rd.Preset,
		Min:        rd.Range.Min,
		Max:        rd.Range.Max,
		Budget:     rd.Budget,
		Attempts:   rd.Attempts,
		Outcome:    string(rd.Outcome),
		Score:      rd.FinalScore(),
		StartedAt:  rd.StartedAt,
		FinishedAt: rd.FinishedAt,
	}
}

// Insert stores e. Re-inserting the same round ID is ignored.
func (s *Store) Insert(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT OR IGNORE INTO rounds
            (id, owner_id, preset, range_min, range_max, budget, attempts, outcome, score, started_at, finished_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OwnerID, e.Preset, e.Min, e.Max, e.Budget, e.Attempts, e.Outcome, e.Score,
		e.StartedAt.UTC().Format(tsLayout), e.FinishedAt.UTC().Format(tsLayout),
	)
	return err
}

// Recent returns owner's most recently finished rounds, newest first.
func (s *Store) Recent(ctx context.Context, owner string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, owner_id, preset, range_min, range_max, budget, attempts, outcome, score, started_at, finished_at
        FROM rounds
        WHERE owner_id=?
        ORDER BY finished_at DESC
        LIMIT ?`, owner, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		var started, finished string
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Preset, &e.Min, &e.Max, &e.Budget,
			&e.Attempts, &e.Outcome, &e.Score, &started, &finished); err != nil {
			return nil, err
		}
		e.StartedAt, _ = time.Parse(tsLayout, started)
		e.FinishedAt, _ = time.Parse(tsLayout, finished)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Reassign moves rounds from one owner to another, e.g. when a guest signs up.
func (s *Store) Reassign(ctx context.Context, from, to string) error {
	if from == "" || to == "" || from == to {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `UPDATE rounds SET owner_id=? WHERE owner_id=?`, to, from)
	return err
}
