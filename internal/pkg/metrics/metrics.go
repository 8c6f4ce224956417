// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "scoreengine"

var (
	// Generations counts generate requests by outcome
	// (success, invalid, denied, generation_failed, ledger_failed).
	Generations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generations_total",
		Help:      "Email generation requests by outcome.",
	}, []string{"outcome"})

	GeneratorAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generator_attempts_total",
		Help:      "Completion attempts by result (ok, invalid, error).",
	}, []string{"result"})

	Webhooks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhooks_total",
		Help:      "Inbound billing webhooks by event name and response status.",
	}, []string{"event", "status"})

	CreditsGranted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "credits_granted_total",
		Help:      "Credits granted through billing events by invoice type.",
	}, []string{"type"})

	RateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_decisions_total",
		Help:      "Rate limiter decisions (allowed, limited, failed_open).",
	}, []string{"decision"})
)
