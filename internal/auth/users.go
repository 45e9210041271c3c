// internal/auth/users.go
//
// User accounts: sign-up validation, bcrypt password hashes, lookups and
// lifetime game counters stored on the users row.

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/robalobadob/numguess/internal/session"
)

var (
	ErrUsernameTaken      = errors.New("username taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found")
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	GamesPlayed  int       `json:"gamesPlayed"`
	GamesWon     int       `json:"gamesWon"`
	TotalScore   int       `json:"totalScore"`
}

// Stats returns the user's lifetime counters as session stats.
func (u *User) Stats() session.Stats {
	return session.Stats{GamesPlayed: u.GamesPlayed, GamesWon: u.GamesWon, TotalScore: u.TotalScore}
}

// Users is the SQLite-backed user repository.
type Users struct {
	db   *sql.DB
	cost int
}

func NewUsers(db *sql.DB) *Users { return &Users{db: db, cost: bcrypt.DefaultCost} }

// WithCost overrides the bcrypt cost (tests use bcrypt.MinCost).
func (u *Users) WithCost(cost int) *Users {
	u.cost = cost
	return u
}

func normalizeUsername(u string) string {
	return strings.TrimSpace(u)
}

// ValidateSignup enforces basic username/password rules.
func ValidateSignup(u, p string) error {
	if len(u) < 3 || len(u) > 24 {
		return errors.New("username must be 3-24 chars")
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return errors.New("username: letters, numbers, underscore only")
		}
	}
	if len(p) < 8 || len(p) > 100 {
		return errors.New("password must be 8-100 chars")
	}
	return nil
}

// Create validates input, checks uniqueness, hashes the password and inserts the user.
func (u *Users) Create(ctx context.Context, username, pw string) (*User, error) {
	username = normalizeUsername(username)
	if err := ValidateSignup(username, pw); err != nil {
		return nil, err
	}
	var exists int
	err := u.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE lower(username)=lower(?)`, username).Scan(&exists)
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), u.cost)
	if err != nil {
		return nil, err
	}
	user := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(h),
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	_, err = u.db.ExecContext(ctx, `INSERT INTO users (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		user.ID, user.Username, user.PasswordHash, user.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// Authenticate returns the user if the password matches.
func (u *Users) Authenticate(ctx context.Context, username, pw string) (*User, error) {
	user, err := u.ByUsername(ctx, normalizeUsername(username))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(pw)) != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

const userCols = `id, username, password_hash, created_at, games_played, games_won, total_score`

func (u *Users) ByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(u.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE lower(username)=lower(?)`, username))
}

func (u *Users) ByID(ctx context.Context, id string) (*User, error) {
	return scanUser(u.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id=?`, id))
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &created, &u.GamesPlayed, &u.GamesWon, &u.TotalScore); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &u, nil
}

// RecordRound folds a finished round's score into the user's lifetime stats.
func (u *Users) RecordRound(ctx context.Context, userID string, score int) (session.Stats, error) {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return session.Stats{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var s session.Stats
	err = tx.QueryRowContext(ctx, `SELECT games_played, games_won, total_score FROM users WHERE id=?`, userID).
		Scan(&s.GamesPlayed, &s.GamesWon, &s.TotalScore)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Stats{}, ErrUserNotFound
	}
	if err != nil {
		return session.Stats{}, err
	}
	s.RecordRound(score)
	if _, err := tx.ExecContext(ctx, `UPDATE users SET games_played=?, games_won=?, total_score=? WHERE id=?`,
		s.GamesPlayed, s.GamesWon, s.TotalScore, userID); err != nil {
		return session.Stats{}, err
	}
	return s, tx.Commit()
}
