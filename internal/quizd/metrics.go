package quizd

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricSessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizd_sessions_started_total",
		Help: "Number of sessions started.",
	})

	metricPlayersJoined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizd_players_joined_total",
		Help: "Number of players that joined a session.",
	})

	metricAnswersSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizd_answers_submitted_total",
		Help: "Number of answer submissions accepted.",
	})
)
