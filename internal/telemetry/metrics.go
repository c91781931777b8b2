/*
Copyright (C) 2026 OpenKiosk

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry provides Prometheus metrics and OpenTelemetry tracing.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP API metrics

	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetd_api_requests_total",
		Help: "Total number of API requests.",
	}, []string{"method", "endpoint", "status"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fleetd_api_request_duration_seconds",
		Help:    "API request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fleetd_api_active_connections",
		Help: "Number of in-flight API requests.",
	})

	// Schedule resolution metrics

	ResolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fleetd_schedule_resolve_duration_seconds",
		Help:    "Time spent resolving the active slot for a player.",
		Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
	})

	ScheduleChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetd_schedule_changes_total",
		Help: "Active slot transitions detected by the watcher.",
	}, []string{"kind"})

	// Watcher metrics

	WatcherTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetd_watcher_ticks_total",
		Help: "Total watcher evaluation passes.",
	})

	WatcherErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetd_watcher_errors_total",
		Help: "Watcher passes that failed.",
	})

	PlayersOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fleetd_players_online",
		Help: "Players currently reachable.",
	})

	// Cache metrics

	CacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetd_cache_hits_total",
		Help: "Cache hits by key class.",
	}, []string{"key"})

	CacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetd_cache_misses_total",
		Help: "Cache misses by key class.",
	}, []string{"key"})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
