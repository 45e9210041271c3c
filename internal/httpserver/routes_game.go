// internal/httpserver/routes_game.go
//
// Round endpoints:
//   - POST /game/new       → start a round ({preset?})
//   - POST /game/guess     → submit a raw guess ({gameId, guess})
//   - GET  /game/{id}      → current state of a live round
//   - GET  /session/stats  → session (and lifetime, when logged in) stats
//   - GET  /games/mine     → recently finished rounds
//
// A round that reaches won/lost is recorded (session stats, history, user
// row) and then dropped from the live store.

package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/numguess/internal/game"
	"github.com/robalobadob/numguess/internal/history"
	"github.com/robalobadob/numguess/internal/session"
	"github.com/robalobadob/numguess/internal/store"
)

func (s *Server) mountGame(r chi.Router) {
	r.Post("/game/new", s.handleNewGame)
	r.Post("/game/guess", s.handleGuess)
	r.Get("/game/{id}", s.handleGetGame)
	r.Get("/session/stats", s.handleStats)
	r.Get("/games/mine", s.handleMyGames)
}

// rawGuess accepts either a JSON string or a JSON number, keeping the text
// so the engine does all validation.
type rawGuess string

func (g *rawGuess) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*g = rawGuess(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*g = ""
		return nil
	}
	*g = rawGuess(b)
	return nil
}

type newGameReq struct {
	Preset string `json:"preset"`
}

type newGameRes struct {
	GameID string `json:"gameId"`
	Preset string `json:"preset"`
	Min    int    `json:"min"`
	Max    int    `json:"max"`
	Budget int    `json:"budget"`
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	if req.Preset == "" {
		req.Preset = s.cfg.Preset
	}

	p, err := game.PresetByName(req.Preset)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unknown_preset", "presets": game.PresetNames()})
		return
	}
	rd, err := game.NewFromPreset(s.source, p)
	if err != nil {
		log.Error().Err(err).Msg("new round")
		writeError(w, http.StatusInternalServerError, "new_round_failed")
		return
	}
	owner := s.owner(w, r)
	if err := s.store.Create(r.Context(), owner, rd); err != nil {
		log.Error().Err(err).Msg("save round")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	s.metrics.RoundStarted(rd.Preset)
	log.Debug().Str("roundId", rd.ID).Str("owner", owner).Str("preset", rd.Preset).Msg("round started")

	writeJSON(w, http.StatusOK, newGameRes{
		GameID: rd.ID, Preset: rd.Preset, Min: rd.Range.Min, Max: rd.Range.Max, Budget: rd.Budget,
	})
}

type guessReq struct {
	GameID string   `json:"gameId"`
	Guess  rawGuess `json:"guess"`
}

type guessRes struct {
	game.GuessResult
	Tier   *game.Tier `json:"tier,omitempty"`
	Score  *int       `json:"score,omitempty"`
	Secret *int       `json:"secret,omitempty"`
}

// handleGuess applies a guess to a live round. Invalid input is a 422 and
// costs no attempt.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	owner := s.owner(w, r)

	var res game.GuessResult
	rd, err := s.store.Update(r.Context(), owner, req.GameID, func(rd *game.Round) error {
		var err error
		res, err = rd.Submit(string(req.Guess))
		return err
	})
	if !s.writeGuessError(w, err) {
		return
	}
	s.metrics.Guess("accepted")

	out := newGuessRes(res, rd)
	if rd.Outcome.Terminal() {
		s.finishRound(r.Context(), owner, currentUser(r), rd)
		if err := s.store.Delete(r.Context(), owner, rd.ID); err != nil {
			log.Warn().Err(err).Str("roundId", rd.ID).Msg("drop finished round")
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// writeGuessError maps a Submit error to a response. It reports true when
// err is nil and the caller should continue.
func (s *Server) writeGuessError(w http.ResponseWriter, err error) bool {
	if err == nil {
		return true
	}
	if ve, ok := game.AsValidation(err); ok {
		s.metrics.Guess(string(ve.Kind))
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   "invalid_guess",
			"kind":    ve.Kind,
			"message": ve.Error(),
			"min":     ve.Range.Min,
			"max":     ve.Range.Max,
		})
		return false
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, game.ErrRoundOver):
		writeError(w, http.StatusConflict, "round_over")
	default:
		log.Error().Err(err).Msg("apply guess")
		writeError(w, http.StatusInternalServerError, "guess_failed")
	}
	return false
}

func newGuessRes(res game.GuessResult, rd *game.Round) guessRes {
	out := guessRes{GuessResult: res}
	if !res.Match {
		t := res.Tier
		out.Tier = &t
	}
	if rd.Outcome.Terminal() {
		score := rd.FinalScore()
		out.Score = &score
		if n, ok := rd.Reveal(); ok {
			out.Secret = &n
		}
	}
	return out
}

// finishRound records a terminal round. Persistence failures are logged, not returned.
func (s *Server) finishRound(ctx context.Context, owner string, me *authUser, rd *game.Round) {
	score := rd.FinalScore()
	if _, err := s.store.Record(ctx, owner, score); err != nil {
		log.Warn().Err(err).Str("owner", owner).Msg("record session stats")
	}
	if err := s.history.Insert(ctx, history.FromRound(owner, rd)); err != nil {
		log.Warn().Err(err).Str("roundId", rd.ID).Msg("insert history")
	}
	if me != nil {
		if _, err := s.users.RecordRound(ctx, me.ID, score); err != nil {
			log.Warn().Err(err).Str("user", me.ID).Msg("bump user stats")
		}
	}
	s.metrics.RoundFinished(string(rd.Outcome), score)
	log.Info().
		Str("roundId", rd.ID).
		Str("owner", owner).
		Str("outcome", string(rd.Outcome)).
		Int("attempts", rd.Attempts).
		Int("score", score).
		Msg("round finished")
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	rd, err := s.store.Get(r.Context(), s.owner(w, r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, rd)
}

// statsView adds the derived win rate to session.Stats.
type statsView struct {
	session.Stats
	WinRate     float64 `json:"winRate"`
	WinRateText string  `json:"winRateText"`
}

func viewStats(st session.Stats) statsView {
	return statsView{Stats: st, WinRate: st.WinRate(), WinRateText: st.WinRateString()}
}

type statsRes struct {
	Session  statsView  `json:"session"`
	Lifetime *statsView `json:"lifetime,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Stats(r.Context(), s.owner(w, r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stats_failed")
		return
	}
	out := statsRes{Session: viewStats(st)}
	if me := currentUser(r); me != nil {
		if u, err := s.users.ByID(r.Context(), me.ID); err == nil {
			v := viewStats(u.Stats())
			out.Lifetime = &v
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMyGames(w http.ResponseWriter, r *http.Request) {
	rows, err := s.history.Recent(r.Context(), s.owner(w, r), 50)
	if err != nil {
		log.Error().Err(err).Msg("recent rounds")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
