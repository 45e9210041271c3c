// internal/config/config.go
//
// Environment-driven configuration for the server and console driver.
// An optional .env file is loaded first (godotenv); real environment
// variables take precedence over it.
//
// Environment variables:
//   PORT=5175
//   LOG_LEVEL=info
//   DB_PATH=./data/app.db
//   JWT_SECRET=dev_secret_change_me
//   JWT_EXPIRES_DAYS=14
//   COOKIE_NAME=guess_token
//   CLIENT_ORIGIN=http://localhost:5173
//   NODE_ENV=production        (secure cookies)
//   DAILY_SALT=local_dev_salt
//   GAME_PRESET=classic

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	Port         string
	LogLevel     zerolog.Level
	DBPath       string
	JWTSecret    string
	JWTTTL       time.Duration
	CookieName   string
	ClientOrigin string
	Production   bool
	DailySalt    string
	Preset       string
}

// Load reads .env (if present) and the process environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function. Unset or invalid values fall back to defaults.
func FromEnv(getenv func(string) string) Config {
	get := func(k, def string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return def
	}

	lvl, err := zerolog.ParseLevel(get("LOG_LEVEL", "info"))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	days, err := strconv.Atoi(get("JWT_EXPIRES_DAYS", "14"))
	if err != nil || days <= 0 {
		days = 14
	}

	return Config{
		Port:         get("PORT", "5175"),
		LogLevel:     lvl,
		DBPath:       get("DB_PATH", "./data/app.db"),
		JWTSecret:    get("JWT_SECRET", "dev_secret_change_me"),
		JWTTTL:       time.Duration(days) * 24 * time.Hour,
		CookieName:   get("COOKIE_NAME", "guess_token"),
		ClientOrigin: get("CLIENT_ORIGIN", "http://localhost:5173"),
		Production:   getenv("NODE_ENV") == "production",
		DailySalt:    get("DAILY_SALT", "local_dev_salt"),
		Preset:       get("GAME_PRESET", "classic"),
	}
}
