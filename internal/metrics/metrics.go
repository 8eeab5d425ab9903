package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Joins = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_joins_total",
			Help: "Total number of players joining a quiz session",
		},
	)

	Answers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_answers_total",
			Help: "Total number of accepted answers",
		},
		[]string{"correct"},
	)

	Reveals = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_round_reveals_total",
			Help: "Total number of rounds revealed by hosts",
		},
	)

	GamesFinished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_games_finished_total",
			Help: "Total number of finished quiz sessions",
		},
	)

	Restarts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_games_restarted_total",
			Help: "Total number of games restarted from the podium",
		},
	)

	LiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quiz_live_sessions_current",
			Help: "Current number of live quiz sessions",
		},
	)

	TallyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quiz_tally_duration_seconds",
			Help:    "Time spent aggregating responses for a round",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		},
	)
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
