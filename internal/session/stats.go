// Package session aggregates finished rounds into per-player statistics.
package session

import "fmt"

// Stats is a monotonic counter set for one player's session.
type Stats struct {
	GamesPlayed int `json:"gamesPlayed"`
	GamesWon    int `json:"gamesWon"`
	TotalScore  int `json:"totalScore"`
}

// RecordRound folds one round's final score into the stats.
// A positive score counts as a win. Negative scores are treated as 0.
func (s *Stats) RecordRound(score int) {
	if score < 0 {
		score = 0
	}
	s.GamesPlayed++
	s.TotalScore += score
	if score > 0 {
		s.GamesWon++
	}
}

// WinRate is the percentage of games won, 0 when nothing was played.
func (s Stats) WinRate() float64 {
	if s.GamesPlayed == 0 {
		return 0
	}
	return float64(s.GamesWon) / float64(s.GamesPlayed) * 100
}

// WinRateString formats WinRate with one decimal, e.g. "66.7%".
func (s Stats) WinRateString() string {
	return fmt.Sprintf("%.1f%%", s.WinRate())
}

// Merge adds o's counters to s.
func (s *Stats) Merge(o Stats) {
	s.GamesPlayed += o.GamesPlayed
	s.GamesWon += o.GamesWon
	s.TotalScore += o.TotalScore
}
