/*
Copyright (C) 2026 SoundShare Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry holds the Prometheus metrics and OpenTelemetry tracing
// plumbing shared by the HTTP layer and the database callbacks.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequestsTotal counts HTTP requests by method, endpoint, and status.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "soundshare",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Total HTTP requests served.",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes HTTP request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "soundshare",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections gauges in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "soundshare",
		Subsystem: "api",
		Name:      "active_connections",
		Help:      "HTTP requests currently being served.",
	})

	// WebsocketConnections gauges open player event sockets.
	WebsocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "soundshare",
		Subsystem: "api",
		Name:      "websocket_connections",
		Help:      "Open websocket event subscriptions.",
	})

	// DatabaseQueryDuration observes query latency by operation and table.
	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "soundshare",
		Subsystem: "db",
		Name:      "query_duration_seconds",
		Help:      "Database operation latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// DatabaseErrorsTotal counts failed database operations.
	DatabaseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "soundshare",
		Subsystem: "db",
		Name:      "errors_total",
		Help:      "Database operation failures.",
	}, []string{"operation", "kind"})

	// DatabaseConnectionsActive gauges open pool connections.
	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "soundshare",
		Subsystem: "db",
		Name:      "connections_active",
		Help:      "Open database connections.",
	})

	// CacheHitsTotal counts catalog cache hits by entity.
	CacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "soundshare",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Catalog cache hits.",
	}, []string{"entity"})

	// CacheMissesTotal counts catalog cache misses by entity.
	CacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "soundshare",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Catalog cache misses.",
	}, []string{"entity"})

	// PlayerTransitionsTotal counts sequencer transitions by kind.
	PlayerTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "soundshare",
		Subsystem: "player",
		Name:      "transitions_total",
		Help:      "Sequencer playhead transitions.",
	}, []string{"kind"})

	// QueueSize gauges the size of the most recently generated queue.
	QueueSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "soundshare",
		Subsystem: "player",
		Name:      "queue_size",
		Help:      "Items in the active play queue.",
	})
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
