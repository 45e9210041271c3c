// internal/store/memory.go
//
// In-memory store for live rounds and per-owner session stats.
//
// Characteristics:
//   - Rounds are keyed by Round.ID and bound to the owner that created them.
//     A round is invisible to any other owner.
//   - Update runs its callback under the store lock, so a round is only ever
//     mutated by one request at a time.
//   - Get returns a copy; callers never share a *game.Round with the store.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"sync"

	"github.com/robalobadob/numguess/internal/game"
	"github.com/robalobadob/numguess/internal/session"
)

// ErrNotFound is returned for unknown rounds or rounds owned by someone else.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for live rounds.
type Store interface {
	// Create stores a new round for owner.
	Create(ctx context.Context, owner string, rd *game.Round) error

	// Get returns a copy of the round.
	Get(ctx context.Context, owner, id string) (*game.Round, error)

	// Update applies fn to the stored round while holding exclusive access.
	// The round after fn is returned as a copy.
	Update(ctx context.Context, owner, id string, fn func(*game.Round) error) (*game.Round, error)

	// Delete discards a round. Deleting an unknown round is not an error.
	Delete(ctx context.Context, owner, id string) error

	// Record folds a finished round's score into owner's session stats.
	Record(ctx context.Context, owner string, score int) (session.Stats, error)

	// Stats returns owner's session stats (zero value if none yet).
	Stats(ctx context.Context, owner string) (session.Stats, error)
}

type entry struct {
	owner string
	round *game.Round
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu       sync.Mutex
	rounds   map[string]*entry
	sessions map[string]*session.Stats
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{
		rounds:   make(map[string]*entry),
		sessions: make(map[string]*session.Stats),
	}
}

func (m *memory) Create(ctx context.Context, owner string, rd *game.Round) error {
	if rd == nil || rd.ID == "" {
		return errors.New("round without id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rounds[rd.ID]; ok {
		return errors.New("duplicate round id")
	}
	m.rounds[rd.ID] = &entry{owner: owner, round: rd.Clone()}
	return nil
}

func (m *memory) Get(ctx context.Context, owner, id string) (*game.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rounds[id]
	if !ok || e.owner != owner {
		return nil, ErrNotFound
	}
	return e.round.Clone(), nil
}

func (m *memory) Update(ctx context.Context, owner, id string, fn func(*game.Round) error) (*game.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rounds[id]
	if !ok || e.owner != owner {
		return nil, ErrNotFound
	}
	err := fn(e.round)
	return e.round.Clone(), err
}

func (m *memory) Delete(ctx context.Context, owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.rounds[id]; ok && e.owner == owner {
		delete(m.rounds, id)
	}
	return nil
}

func (m *memory) Record(ctx context.Context, owner string, score int) (session.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[owner]
	if !ok {
		s = &session.Stats{}
		m.sessions[owner] = s
	}
	s.RecordRound(score)
	return *s, nil
}

func (m *memory) Stats(ctx context.Context, owner string) (session.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[owner]; ok {
		return *s, nil
	}
	return session.Stats{}, nil
}
