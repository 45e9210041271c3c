// internal/httpserver/routes_daily.go
//
// HTTP routes for the daily challenge.
// Exposes three endpoints under /daily:
//   - POST /daily/new         → start today's round (creates or reuses session)
//   - POST /daily/guess       → submit a guess for today's round
//   - GET  /daily/leaderboard → top results for today (or ?date=YYYY-MM-DD)
//
// Each player gets one daily round per UTC date (enforced by DB + in-memory
// session). The secret is derived from date + salt, so everyone shares it.

package httpserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/numguess/internal/daily"
	"github.com/robalobadob/numguess/internal/game"
)

const dailyPreset = "daily"

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv      *Server
	store    *daily.Store
	salt     string
	sessions map[string]*dailySession // keyed by owner|date
	mu       sync.Mutex               // guards sessions and the rounds inside them
}

// dailySession holds transient state for today's round of one player.
type dailySession struct {
	Owner string
	Date  string
	Round *game.Round
	Start time.Time
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router, st *daily.Store) {
	dd := &dailyServer{
		srv:      s,
		store:    st,
		salt:     s.cfg.DailySalt,
		sessions: make(map[string]*dailySession),
	}
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", dd.handleNew)
		r.Post("/guess", dd.handleGuess)
		r.Get("/leaderboard", dd.handleLeaderboard)
	})
}

type dailyNewRes struct {
	GameID string `json:"gameId"`
	Date   string `json:"date"`
	Played bool   `json:"played"`
	Min    int    `json:"min,omitempty"`
	Max    int    `json:"max,omitempty"`
	Budget int    `json:"budget,omitempty"`
}

// handleNew creates or reuses today's session.
// If the player already has a stored result for today, Played is true.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	owner := d.srv.owner(w, r)
	now := d.srv.now()
	date := daily.DateKey(now)

	played, err := d.store.AlreadyPlayed(r.Context(), owner, date)
	if err != nil {
		log.Error().Err(err).Msg("daily already played")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if played {
		writeJSON(w, http.StatusOK, dailyNewRes{Date: date, Played: true})
		return
	}

	key := owner + "|" + date
	d.mu.Lock()
	defer d.mu.Unlock()
	if sess, ok := d.sessions[key]; ok {
		writeJSON(w, http.StatusOK, dailyNewRes{
			GameID: sess.Round.ID, Date: date, Min: sess.Round.Range.Min, Max: sess.Round.Range.Max, Budget: sess.Round.Budget,
		})
		return
	}
	d.pruneLocked(date)

	rd, err := game.NewFromPreset(daily.Source{Date: now, Salt: d.salt}, game.Classic)
	if err != nil {
		log.Error().Err(err).Msg("new daily round")
		writeError(w, http.StatusInternalServerError, "new_round_failed")
		return
	}
	rd.Preset = dailyPreset
	d.sessions[key] = &dailySession{Owner: owner, Date: date, Round: rd, Start: now}
	d.srv.metrics.RoundStarted(dailyPreset)

	writeJSON(w, http.StatusOK, dailyNewRes{
		GameID: rd.ID, Date: date, Min: rd.Range.Min, Max: rd.Range.Max, Budget: rd.Budget,
	})
}

// pruneLocked drops sessions from earlier dates. Caller holds d.mu.
func (d *dailyServer) pruneLocked(today string) {
	for k, sess := range d.sessions {
		if sess.Date != today {
			delete(d.sessions, k)
		}
	}
}

// handleGuess applies a guess to today's session and stores the result once
// the round is over.
func (d *dailyServer) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	owner := d.srv.owner(w, r)
	date := daily.DateKey(d.srv.now())
	key := owner + "|" + date

	d.mu.Lock()
	sess, ok := d.sessions[key]
	if !ok || sess.Round.ID != req.GameID {
		d.mu.Unlock()
		writeError(w, http.StatusConflict, "no_session")
		return
	}
	res, err := sess.Round.Submit(string(req.Guess))
	rd := sess.Round.Clone()
	d.mu.Unlock()

	if !d.srv.writeGuessError(w, err) {
		return
	}
	d.srv.metrics.Guess("accepted")

	out := newGuessRes(res, rd)
	if rd.Outcome.Terminal() {
		elapsed := int(d.srv.now().Sub(sess.Start).Milliseconds())
		if err := d.store.InsertResult(r.Context(), daily.Result{
			UserID: owner, Date: date, Attempts: rd.Attempts, Score: rd.FinalScore(), ElapsedMs: elapsed,
		}); err != nil {
			log.Warn().Err(err).Str("owner", owner).Msg("insert daily result")
		}
		d.srv.finishRound(r.Context(), owner, currentUser(r), rd)
	}
	writeJSON(w, http.StatusOK, out)
}

type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(d.srv.now())
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "bad_date")
		return
	}
	rows, err := d.store.Leaderboard(r.Context(), date, 20)
	if err != nil {
		log.Error().Err(err).Msg("daily leaderboard")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, lbRes{Date: date, Top: rows})
}
