// internal/httpserver/server.go
//
// HTTP server wiring for the guessing backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, access log).
//   - Public endpoints: "/", "/health", "/metrics".
//   - Game endpoints (optional auth): /game/*, /session/stats, /games/mine.
//   - Daily challenge endpoints (optional auth): mounted under /daily.
//   - Auth endpoints: /auth/*.
//
// Notes:
//   - Every request is attributed to an owner: the logged-in user's ID, or an
//     anonymous ID kept in a long-lived cookie. Rounds and session stats are
//     confined to their owner.

package httpserver

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/numguess/internal/auth"
	"github.com/robalobadob/numguess/internal/config"
	"github.com/robalobadob/numguess/internal/daily"
	"github.com/robalobadob/numguess/internal/history"
	"github.com/robalobadob/numguess/internal/metrics"
	"github.com/robalobadob/numguess/internal/secret"
	"github.com/robalobadob/numguess/internal/store"
)

// Deps are the collaborators a Server needs. Zero-valued optional fields get defaults.
type Deps struct {
	Config  config.Config
	Store   store.Store
	DB      *sql.DB
	Metrics *metrics.Metrics // optional
	Source  secret.Source    // optional, defaults to secret.Crypto()
	Clock   func() time.Time // optional, defaults to time.Now
}

// Server bundles router, live round store and persistence.
type Server struct {
	r       *chi.Mux
	cfg     config.Config
	store   store.Store
	users   *auth.Users
	history *history.Store
	signer  *auth.Signer
	metrics *metrics.Metrics
	source  secret.Source
	now     func() time.Time
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	s := &Server{
		r:       chi.NewRouter(),
		cfg:     d.Config,
		store:   d.Store,
		users:   auth.NewUsers(d.DB),
		history: history.NewStore(d.DB),
		signer:  auth.NewSigner(d.Config.JWTSecret, d.Config.JWTTTL),
		metrics: d.Metrics,
		source:  d.Source,
		now:     d.Clock,
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.source == nil {
		s.source = secret.Crypto()
	}
	if s.now == nil {
		s.now = time.Now
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(accessLog)
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(10 * time.Second))
	s.r.Use(s.cors)

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service":   "numguess",
			"endpoints": []string{"/health", "POST /game/new", "POST /game/guess", "/session/stats", "/daily/*", "/auth/*"},
		})
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	s.r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	// Game + daily: guests can play.
	s.r.Group(func(r chi.Router) {
		r.Use(s.withOptionalAuth)
		s.mountGame(r)
		s.mountDaily(r, daily.NewStore(d.DB))
	})

	s.mountAuthRoutes()

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// accessLog writes one zerolog line per request.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("reqId", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------- owners ------------------------------------

const (
	anonCookieName = "numguess_anon"
	// anonPrefix keeps guest owner keys disjoint from user IDs.
	anonPrefix = "anon:"
)

// owner returns the logged-in user's ID, or "anon:" plus the guest cookie.
func (s *Server) owner(w http.ResponseWriter, r *http.Request) string {
	if me := currentUser(r); me != nil {
		return me.ID
	}
	return anonPrefix + s.ensureAnonID(w, r)
}

// anonID returns the guest cookie value when it has the shape genID produces.
func anonID(r *http.Request) (string, bool) {
	c, err := r.Cookie(anonCookieName)
	if err != nil || !validAnonID(c.Value) {
		return "", false
	}
	return c.Value, true
}

func validAnonID(v string) bool {
	if len(v) != anonIDLen {
		return false
	}
	b, err := base64.RawURLEncoding.DecodeString(v)
	return err == nil && len(b) == anonIDBytes
}

// ensureAnonID returns a valid anon cookie or sets a fresh one.
func (s *Server) ensureAnonID(w http.ResponseWriter, r *http.Request) string {
	if id, ok := anonID(r); ok {
		return id
	}
	id := genID()
	http.SetCookie(w, &http.Cookie{
		Name:     anonCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Production,
		SameSite: s.sameSite(),
		Expires:  time.Now().Add(180 * 24 * time.Hour),
	})
	return id
}

func (s *Server) clearAnonCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     anonCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Production,
		SameSite: s.sameSite(),
		MaxAge:   -1,
	})
}

func (s *Server) sameSite() http.SameSite {
	if s.cfg.Production {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

const (
	anonIDBytes = 16
	anonIDLen   = 22
)

// genID creates a 22-char URL-safe, crypto-random identifier (no padding).
func genID() string {
	var b [anonIDBytes]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ------------------------------- helpers -----------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
