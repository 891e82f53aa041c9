package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TokenRefresh = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ssok_token_refresh_total",
			Help: "Refresh endpoint outcomes.",
		},
		[]string{"outcome"},
	)
	UnauthorizedRetry = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ssok_unauthorized_retry_total",
			Help: "Requests re-issued after a 401, by outcome.",
		},
		[]string{"outcome"},
	)
	ReauthPrompts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ssok_reauth_prompts_total",
			Help: "Reauthentication screens shown after returning from background.",
		},
	)
	PinFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ssok_pin_failures_total",
			Help: "Rejected PIN submissions.",
		},
	)
)

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeShared  = "shared"
	OutcomeFailure = "failure"
	OutcomeSoft    = "soft"
)

func Register(registry prometheus.Registerer) {
	registry.MustRegister(TokenRefresh, UnauthorizedRetry, ReauthPrompts, PinFailures)
}

func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
