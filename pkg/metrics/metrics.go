package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Auth outcome labels recorded on every gateway decision
const (
	OutcomeAuthenticated     = "authenticated"
	OutcomeMissingCredential = "missing_credential"
	OutcomeInvalidCredential = "invalid_credential"
	OutcomeExpired           = "expired"
	OutcomeRateLimited       = "rate_limit_exceeded"
	OutcomeInternalError     = "internal_error"
)

var (
	AuthRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mcphub",
		Subsystem: "auth",
		Name:      "requests_total",
		Help:      "Gateway authentication decisions by terminal outcome.",
	}, []string{"outcome", "credential"})

	RateLimitExceeded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mcphub",
		Subsystem: "auth",
		Name:      "rate_limit_exceeded_total",
		Help:      "Requests rejected because a key's quota was consumed.",
	})

	MigrationsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mcphub",
		Subsystem: "schema",
		Name:      "migrations_applied_total",
		Help:      "Schema migrations applied since process start.",
	})
)
