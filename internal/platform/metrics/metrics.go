// Copyright (c) 2026 Folio. All rights reserved.
// Author: dev@readfolio.app

// Package metrics exposes Prometheus instrumentation for the Folio API.
//
// # Architecture
//
// HTTP-level metrics are collected by a middleware wrapped around the chi
// router; domain-level counters (session lifecycle events) are incremented
// explicitly by the services that own the events.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	sessionEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reading_session_events_total",
			Help: "Total number of reading-session lifecycle events",
		},
		[]string{"event"},
	)

	bookStatsCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "book_stats_cache_total",
			Help: "Book statistics cache lookups by outcome",
		},
		[]string{"outcome"},
	)
)

// Handler returns the /metrics scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// statusRecorder captures the response status for labeling.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (recorder *statusRecorder) WriteHeader(code int) {
	recorder.status = code
	recorder.ResponseWriter.WriteHeader(code)
}

// Middleware collects request count, duration, and in-flight gauges.
//
// The endpoint label uses the chi route pattern (e.g. /api/v1/books/{id})
// rather than the raw path, keeping label cardinality bounded.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			start := time.Now()
			httpRequestsInFlight.Inc()

			wrapped := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}
			next.ServeHTTP(wrapped, request)

			httpRequestsInFlight.Dec()

			endpoint := "unknown"
			if routeCtx := chi.RouteContext(request.Context()); routeCtx != nil {
				if pattern := routeCtx.RoutePattern(); pattern != "" {
					endpoint = pattern
				}
			}

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.status)

			httpRequestsTotal.WithLabelValues(request.Method, endpoint, status).Inc()
			httpRequestDuration.WithLabelValues(request.Method, endpoint).Observe(duration)
		})
	}
}

// RecordSessionEvent increments the lifecycle counter for a session event.
// Known events: started, auto_closed, stopped, deleted.
func RecordSessionEvent(event string) {
	sessionEventsTotal.WithLabelValues(event).Inc()
}

// RecordBookStatsCache records a cache lookup outcome ("hit" or "miss").
func RecordBookStatsCache(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	bookStatsCacheTotal.WithLabelValues(outcome).Inc()
}
