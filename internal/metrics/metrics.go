// Package metrics exposes Prometheus counters for rounds and guesses.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the game collectors registered on one registry.
type Metrics struct {
	reg            *prometheus.Registry
	RoundsStarted  *prometheus.CounterVec
	Guesses        *prometheus.CounterVec
	RoundsFinished *prometheus.CounterVec
	WinningScores  prometheus.Histogram
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		RoundsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "numguess",
			Name:      "rounds_started_total",
			Help:      "Rounds created, by preset.",
		}, []string{"preset"}),
		Guesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "numguess",
			Name:      "guesses_total",
			Help:      "Guesses received, by result (accepted, not_a_number, out_of_range).",
		}, []string{"result"}),
		RoundsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "numguess",
			Name:      "rounds_finished_total",
			Help:      "Rounds that reached a terminal state, by outcome.",
		}, []string{"outcome"}),
		WinningScores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "numguess",
			Name:      "winning_score",
			Help:      "Score of won rounds.",
			Buckets:   prometheus.LinearBuckets(100, 100, 9),
		}),
	}
	m.reg.MustRegister(m.RoundsStarted, m.Guesses, m.RoundsFinished, m.WinningScores)
	return m
}

// Registry exposes the underlying registry (tests gather from it).
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) RoundStarted(preset string) {
	if preset == "" {
		preset = "custom"
	}
	m.RoundsStarted.WithLabelValues(preset).Inc()
}

func (m *Metrics) Guess(result string) { m.Guesses.WithLabelValues(result).Inc() }

func (m *Metrics) RoundFinished(outcome string, score int) {
	m.RoundsFinished.WithLabelValues(outcome).Inc()
	if score > 0 {
		m.WinningScores.Observe(float64(score))
	}
}
