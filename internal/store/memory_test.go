package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/numguess/internal/game"
	"github.com/robalobadob/numguess/internal/secret"
	"github.com/robalobadob/numguess/internal/session"
)

func newRound(t *testing.T) *game.Round {
	t.Helper()
	rd, err := game.New(secret.Fixed(50), secret.Range{Min: 1, Max: 100}, 10)
	require.NoError(t, err)
	return rd
}

func TestCreateGetOwnership(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	rd := newRound(t)
	require.NoError(t, st.Create(ctx, "alice", rd))
	assert.Error(t, st.Create(ctx, "alice", rd))

	got, err := st.Get(ctx, "alice", rd.ID)
	require.NoError(t, err)
	assert.Equal(t, rd.ID, got.ID)

	_, err = st.Get(ctx, "bob", rd.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.Get(ctx, "alice", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	rd := newRound(t)
	require.NoError(t, st.Create(ctx, "alice", rd))

	got, err := st.Get(ctx, "alice", rd.ID)
	require.NoError(t, err)
	_, err = got.Submit("10")
	require.NoError(t, err)

	again, err := st.Get(ctx, "alice", rd.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Attempts)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	rd := newRound(t)
	require.NoError(t, st.Create(ctx, "alice", rd))

	var res game.GuessResult
	after, err := st.Update(ctx, "alice", rd.ID, func(r *game.Round) error {
		var err error
		res, err = r.Submit("50")
		return err
	})
	require.NoError(t, err)
	assert.True(t, res.Match)
	assert.Equal(t, game.OutcomeWon, after.Outcome)

	_, err = st.Update(ctx, "alice", rd.ID, func(r *game.Round) error {
		_, err := r.Submit("50")
		return err
	})
	assert.ErrorIs(t, err, game.ErrRoundOver)

	_, err = st.Update(ctx, "bob", rd.ID, func(*game.Round) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateSerializesGuesses(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	rd, err := game.New(secret.Fixed(100), secret.Range{Min: 1, Max: 100}, 20)
	require.NoError(t, err)
	require.NoError(t, st.Create(ctx, "alice", rd))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = st.Update(ctx, "alice", rd.ID, func(r *game.Round) error {
				_, err := r.Submit("1")
				return err
			})
		}()
	}
	wg.Wait()

	got, err := st.Get(ctx, "alice", rd.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, got.Attempts)
	assert.Equal(t, game.OutcomeLost, got.Outcome)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	rd := newRound(t)
	require.NoError(t, st.Create(ctx, "alice", rd))

	require.NoError(t, st.Delete(ctx, "bob", rd.ID))
	_, err := st.Get(ctx, "alice", rd.ID)
	require.NoError(t, err)

	require.NoError(t, st.Delete(ctx, "alice", rd.ID))
	_, err = st.Get(ctx, "alice", rd.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordAndStats(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	s, err := st.Stats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, session.Stats{}, s)

	for _, score := range []int{700, 0, 900} {
		_, err := st.Record(ctx, "alice", score)
		require.NoError(t, err)
	}
	s, err = st.Stats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, session.Stats{GamesPlayed: 3, GamesWon: 2, TotalScore: 1600}, s)

	other, err := st.Stats(ctx, "bob")
	require.NoError(t, err)
	assert.Zero(t, other.GamesPlayed)
}
