package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/numguess/internal/config"
	"github.com/robalobadob/numguess/internal/daily"
	"github.com/robalobadob/numguess/internal/database/dbtest"
	"github.com/robalobadob/numguess/internal/game"
	"github.com/robalobadob/numguess/internal/secret"
	"github.com/robalobadob/numguess/internal/store"
)

var testNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.FromEnv(func(string) string { return "" })
	srv := New(Deps{
		Config: cfg,
		Store:  store.NewMemoryStore(),
		DB:     dbtest.New(t),
		Source: secret.Fixed(50),
		Clock:  func() time.Time { return testNow },
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

type client struct {
	t    *testing.T
	base string
	hc   *http.Client
}

func newClient(t *testing.T, ts *httptest.Server) *client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{t: t, base: ts.URL, hc: &http.Client{Jar: jar}}
}

func (c *client) do(method, path string, body any) (int, map[string]any) {
	c.t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, rdr)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.hc.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(c.t, json.Unmarshal(raw, &out), string(raw))
	} else {
		out["_raw"] = string(raw)
	}
	return resp.StatusCode, out
}

func (c *client) newGame(preset string) string {
	c.t.Helper()
	code, body := c.do(http.MethodPost, "/game/new", map[string]string{"preset": preset})
	require.Equal(c.t, http.StatusOK, code, body)
	return body["gameId"].(string)
}

func (c *client) guess(id string, g any) (int, map[string]any) {
	return c.do(http.MethodPost, "/game/guess", map[string]any{"gameId": id, "guess": g})
}

func TestHealth(t *testing.T) {
	c := newClient(t, newTestServer(t))
	code, body := c.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["ok"])

	code, body = c.do(http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", body["error"])
}

func TestWinFlow(t *testing.T) {
	c := newClient(t, newTestServer(t))

	code, body := c.do(http.MethodPost, "/game/new", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "classic", body["preset"])
	assert.Equal(t, 1.0, body["min"])
	assert.Equal(t, 100.0, body["max"])
	assert.Equal(t, 10.0, body["budget"])
	id := body["gameId"].(string)

	code, body = c.guess(id, "25")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["match"])
	assert.Equal(t, map[string]any{"band": "cold", "direction": "higher"}, body["tier"])
	assert.Equal(t, "playing", body["state"])
	assert.NotContains(t, body, "secret")

	code, body = c.guess(id, 75)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"band": "cold", "direction": "lower"}, body["tier"])

	code, body = c.guess(id, "abc")
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "not_a_number", body["kind"])

	code, body = c.guess(id, "500")
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "out_of_range", body["kind"])

	code, body = c.do(http.MethodGet, "/game/"+id, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2.0, body["attempts"])
	assert.NotContains(t, body, "secret")

	code, body = c.guess(id, "50")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["match"])
	assert.Equal(t, "won", body["state"])
	assert.Equal(t, 3.0, body["attempt"])
	assert.Equal(t, 700.0, body["score"])
	assert.Equal(t, 50.0, body["secret"])
	assert.NotContains(t, body, "tier")

	// Finished rounds are dropped from the live store.
	code, _ = c.guess(id, "50")
	assert.Equal(t, http.StatusNotFound, code)

	code, body = c.do(http.MethodGet, "/session/stats", nil)
	require.Equal(t, http.StatusOK, code)
	sess := body["session"].(map[string]any)
	assert.Equal(t, 1.0, sess["gamesPlayed"])
	assert.Equal(t, 1.0, sess["gamesWon"])
	assert.Equal(t, 700.0, sess["totalScore"])
	assert.Equal(t, "100.0%", sess["winRateText"])
	assert.NotContains(t, body, "lifetime")
}

func TestLossAndSessionAggregate(t *testing.T) {
	c := newClient(t, newTestServer(t))

	win := c.newGame("")
	_, _ = c.guess(win, 25)
	_, _ = c.guess(win, 75)
	_, body := c.guess(win, 50)
	require.Equal(t, 700.0, body["score"])

	lost := c.newGame("quick")
	for i := 1; i <= 7; i++ {
		code, body := c.guess(lost, i)
		require.Equal(t, http.StatusOK, code)
		if i < 7 {
			require.Equal(t, "playing", body["state"])
		} else {
			assert.Equal(t, "lost", body["state"])
			assert.Equal(t, 0.0, body["score"])
			assert.Equal(t, 50.0, body["secret"])
		}
	}

	oneShot := c.newGame("classic")
	_, body = c.guess(oneShot, 50)
	require.Equal(t, 900.0, body["score"])

	_, body = c.do(http.MethodGet, "/session/stats", nil)
	sess := body["session"].(map[string]any)
	assert.Equal(t, 3.0, sess["gamesPlayed"])
	assert.Equal(t, 2.0, sess["gamesWon"])
	assert.Equal(t, 1600.0, sess["totalScore"])
	assert.Equal(t, "66.7%", sess["winRateText"])

	req, err := http.NewRequest(http.MethodGet, c.base+"/games/mine", nil)
	require.NoError(t, err)
	resp, err := c.hc.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var rows []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rows))
	assert.Len(t, rows, 3)
}

func TestRoundsAreConfinedToOwner(t *testing.T) {
	ts := newTestServer(t)
	alice, bob := newClient(t, ts), newClient(t, ts)

	id := alice.newGame("")
	code, _ := bob.guess(id, 50)
	assert.Equal(t, http.StatusNotFound, code)

	code, body := alice.guess(id, 50)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "won", body["state"])
}

func TestBadRequests(t *testing.T) {
	c := newClient(t, newTestServer(t))

	code, body := c.do(http.MethodPost, "/game/new", map[string]string{"preset": "impossible"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "unknown_preset", body["error"])

	req, err := http.NewRequest(http.MethodPost, c.base+"/game/guess", strings.NewReader("{"))
	require.NoError(t, err)
	resp, err := c.hc.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	code, _ = c.guess("missing", 10)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t, ts)

	code, _ := c.do(http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	// Guest round before signing up is claimed by the new account.
	guest := c.newGame("")
	_, _ = c.guess(guest, 50)

	creds := map[string]string{"username": "alice", "password": "password123"}
	code, body := c.do(http.MethodPost, "/auth/signup", creds)
	require.Equal(t, http.StatusCreated, code, body)

	code, _ = c.do(http.MethodPost, "/auth/signup", creds)
	assert.Equal(t, http.StatusConflict, code)

	code, body = c.do(http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice", body["username"])

	id := c.newGame("")
	_, _ = c.guess(id, 25)
	_, body = c.guess(id, 50)
	require.Equal(t, 800.0, body["score"])

	_, body = c.do(http.MethodGet, "/session/stats", nil)
	life := body["lifetime"].(map[string]any)
	assert.Equal(t, 1.0, life["gamesPlayed"])
	assert.Equal(t, 800.0, life["totalScore"])

	resp, err := c.hc.Get(c.base + "/games/mine")
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rows))
	resp.Body.Close()
	assert.Len(t, rows, 2)

	code, _ = c.do(http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = c.do(http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	other := newClient(t, ts)
	code, _ = other.do(http.MethodPost, "/auth/login", map[string]string{"username": "alice", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = other.do(http.MethodPost, "/auth/login", creds)
	assert.Equal(t, http.StatusOK, code)
	code, _ = other.do(http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestDailyFlow(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t, ts)

	want, err := daily.Source{Date: testNow, Salt: "local_dev_salt"}.Generate(game.Classic.Range)
	require.NoError(t, err)

	code, body := c.do(http.MethodPost, "/daily/new", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "2026-10-17", body["date"])
	assert.Equal(t, false, body["played"])
	id := body["gameId"].(string)

	// Same session is reused.
	_, again := c.do(http.MethodPost, "/daily/new", nil)
	assert.Equal(t, id, again["gameId"])

	code, _ = c.do(http.MethodPost, "/daily/guess", map[string]any{"gameId": "wrong", "guess": want})
	assert.Equal(t, http.StatusConflict, code)

	code, body = c.do(http.MethodPost, "/daily/guess", map[string]any{"gameId": id, "guess": "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, body = c.do(http.MethodPost, "/daily/guess", map[string]any{"gameId": id, "guess": want})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "won", body["state"])
	assert.Equal(t, 900.0, body["score"])

	code, _ = c.do(http.MethodPost, "/daily/guess", map[string]any{"gameId": id, "guess": want})
	assert.Equal(t, http.StatusConflict, code)

	_, body = c.do(http.MethodPost, "/daily/new", nil)
	assert.Equal(t, true, body["played"])

	code, body = c.do(http.MethodGet, "/daily/leaderboard", nil)
	require.Equal(t, http.StatusOK, code)
	top := body["top"].([]any)
	require.Len(t, top, 1)
	assert.Equal(t, 900.0, top[0].(map[string]any)["score"])

	code, _ = c.do(http.MethodGet, "/daily/leaderboard?date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	_, body = c.do(http.MethodGet, "/session/stats", nil)
	assert.Equal(t, 1.0, body["session"].(map[string]any)["gamesWon"])
}

func (c *client) setCookie(name, value string) {
	u, err := url.Parse(c.base)
	require.NoError(c.t, err)
	c.hc.Jar.SetCookies(u, []*http.Cookie{{Name: name, Value: value, Path: "/"}})
}

func (c *client) cookie(name string) string {
	u, err := url.Parse(c.base)
	require.NoError(c.t, err)
	for _, ck := range c.hc.Jar.Cookies(u) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

func (c *client) myGames() []map[string]any {
	c.t.Helper()
	resp, err := c.hc.Get(c.base + "/games/mine")
	require.NoError(c.t, err)
	defer resp.Body.Close()
	var rows []map[string]any
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&rows))
	return rows
}

func TestGuestCannotAssumeUserIdentity(t *testing.T) {
	ts := newTestServer(t)
	victim := newClient(t, ts)

	code, body := victim.do(http.MethodPost, "/auth/signup", map[string]string{"username": "victim", "password": "password123"})
	require.Equal(t, http.StatusCreated, code, body)
	victimID := body["id"].(string)

	want, err := daily.Source{Date: testNow, Salt: "local_dev_salt"}.Generate(game.Classic.Range)
	require.NoError(t, err)
	_, body = victim.do(http.MethodPost, "/daily/new", nil)
	code, _ = victim.do(http.MethodPost, "/daily/guess", map[string]any{"gameId": body["gameId"], "guess": want})
	require.Equal(t, http.StatusOK, code)
	id := victim.newGame("")
	_, body = victim.guess(id, 50)
	require.Equal(t, "won", body["state"])

	_, body = victim.do(http.MethodGet, "/daily/leaderboard", nil)
	top := body["top"].([]any)
	require.Len(t, top, 1)
	row := top[0].(map[string]any)
	assert.Equal(t, "victim", row["username"])
	assert.NotContains(t, row, "userId")

	attacker := newClient(t, ts)
	attacker.setCookie(anonCookieName, victimID)

	_, body = attacker.do(http.MethodGet, "/session/stats", nil)
	assert.Equal(t, 0.0, body["session"].(map[string]any)["gamesPlayed"])
	assert.Empty(t, attacker.myGames())
	assert.NotEqual(t, victimID, attacker.cookie(anonCookieName), "forged cookie is replaced")

	attacker.setCookie(anonCookieName, victimID)
	code, _ = attacker.do(http.MethodPost, "/auth/signup", map[string]string{"username": "mallory", "password": "password123"})
	require.Equal(t, http.StatusCreated, code)
	assert.Empty(t, attacker.myGames())
	assert.Len(t, victim.myGames(), 2)
}

func TestClaimSpendsGuestCookie(t *testing.T) {
	c := newClient(t, newTestServer(t))
	id := c.newGame("")
	_, _ = c.guess(id, 50)
	guestID := c.cookie(anonCookieName)
	require.True(t, validAnonID(guestID))

	code, _ := c.do(http.MethodPost, "/auth/signup", map[string]string{"username": "kit", "password": "password123"})
	require.Equal(t, http.StatusCreated, code)
	assert.Empty(t, c.cookie(anonCookieName))
	assert.Len(t, c.myGames(), 1)
}

func TestValidAnonID(t *testing.T) {
	assert.True(t, validAnonID(genID()))
	assert.False(t, validAnonID(""))
	assert.False(t, validAnonID("c57d9936-1b2f-4c7e-9a4d-3f0e8b6a1d22"))
	assert.False(t, validAnonID("!!!!!!!!!!!!!!!!!!!!!!"))
}

func TestNewGameBody(t *testing.T) {
	c := newClient(t, newTestServer(t))

	req, err := http.NewRequest(http.MethodPost, c.base+"/game/new", nil)
	require.NoError(t, err)
	resp, err := c.hc.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err = http.NewRequest(http.MethodPost, c.base+"/game/new", strings.NewReader(`{"preset":`))
	require.NoError(t, err)
	resp, err = c.hc.Do(req)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "bad_json", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	c := newClient(t, newTestServer(t))
	id := c.newGame("quick")
	_, _ = c.guess(id, "nope")
	_, _ = c.guess(id, 50)

	code, body := c.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, code)
	text := body["_raw"].(string)
	assert.Contains(t, text, `numguess_rounds_started_total{preset="quick"} 1`)
	assert.Contains(t, text, `numguess_guesses_total{result="not_a_number"} 1`)
	assert.Contains(t, text, `numguess_rounds_finished_total{outcome="won"} 1`)
}

func TestRawGuessUnmarshal(t *testing.T) {
	tests := []struct{ in, want string }{
		{`"42"`, "42"},
		{`42`, "42"},
		{`4.5`, "4.5"},
		{`null`, ""},
		{`" 7 "`, " 7 "},
	}
	for _, tt := range tests {
		var g rawGuess
		require.NoError(t, json.Unmarshal([]byte(tt.in), &g))
		assert.Equal(t, tt.want, string(g))
	}
}
