package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RepairsTotal counts bootstrap repairs of persisted state.
	// Labels: reason (literal_user, token_without_user, unparseable_user,
	// user_without_token, expired_token, storage_error)
	RepairsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracker",
			Subsystem: "session",
			Name:      "repairs_total",
			Help:      "Total number of session repairs made by the bootstrap integrity check",
		},
		[]string{"reason"},
	)

	// EvictionsTotal counts sessions removed after startup.
	// Labels: cause (logout, unauthorized)
	EvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracker",
			Subsystem: "session",
			Name:      "evictions_total",
			Help:      "Total number of session evictions",
		},
		[]string{"cause"},
	)
)
