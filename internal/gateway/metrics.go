// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics holds every prometheus collector the gateway exposes. Grounded
// on the dummybox/diwise pattern of a package-constructed registry rather
// than the default global one, so a gateway never fights another gateway
// instance in the same process (e.g. two instances under test) over
// collector registration.
type metrics struct {
	registry *prometheus.Registry

	sessionCount         prometheus.Gauge
	anomalyCount         *prometheus.CounterVec
	readTotal            *prometheus.CounterVec
	writeTotal           *prometheus.CounterVec
	vectorSearchDuration prometheus.Histogram
	resolverCacheHits    prometheus.Counter
	resolverCacheMisses  prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		sessionCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "protogateway_session_count",
			Help: "Number of currently open device sessions.",
		}),
		anomalyCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "protogateway_anomaly_total",
			Help: "Anomaly reports emitted, by type.",
		}, []string{"type"}),
		readTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "protogateway_read_total",
			Help: "Successful parameter reads, by protocol.",
		}, []string{"protocol"}),
		writeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "protogateway_write_total",
			Help: "Successful parameter writes, by protocol.",
		}, []string{"protocol"}),
		vectorSearchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "protogateway_vector_search_duration_seconds",
			Help:    "Latency of descriptor resolution's semantic search step.",
			Buckets: prometheus.DefBuckets,
		}),
		resolverCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "protogateway_resolver_cache_hits_total",
			Help: "Resolver fingerprint-cache hits.",
		}),
		resolverCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "protogateway_resolver_cache_misses_total",
			Help: "Resolver fingerprint-cache misses.",
		}),
	}
	m.registry.MustRegister(
		m.sessionCount, m.anomalyCount, m.readTotal, m.writeTotal,
		m.vectorSearchDuration, m.resolverCacheHits, m.resolverCacheMisses,
	)
	return m
}

func (m *metrics) observeRead(protocol string)  { m.readTotal.WithLabelValues(protocol).Inc() }
func (m *metrics) observeWrite(protocol string) { m.writeTotal.WithLabelValues(protocol).Inc() }

func (m *metrics) observeAnomaly(anomalyType string) {
	m.anomalyCount.WithLabelValues(anomalyType).Inc()
}

func (m *metrics) observeVectorSearch(seconds float64) {
	m.vectorSearchDuration.Observe(seconds)
}

// syncResolverCacheMetrics pushes the resolver's plain hit/miss counters
// (kept as bare int64 fields so the resolver package itself stays free of
// a prometheus dependency) onto this gateway's counters. Counters only
// move forward, so this adds the delta since the last sync.
func (m *metrics) syncResolverCacheMetrics(hits, misses int64, lastHits, lastMisses *int64) {
	if d := hits - *lastHits; d > 0 {
		m.resolverCacheHits.Add(float64(d))
	}
	if d := misses - *lastMisses; d > 0 {
		m.resolverCacheMisses.Add(float64(d))
	}
	*lastHits, *lastMisses = hits, misses
}

// Router returns the gateway's health and metrics HTTP surface: /healthz
// for liveness and /metrics in Prometheus exposition format, ready to be
// served on cfg.ListenPort. Device operations themselves have no HTTP
// surface here (see internal/toolsurface) — this is observability only.
func (g *Gateway) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", g.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(g.metrics.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return r
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	g.metrics.sessionCount.Set(float64(g.Sessions.Count()))
	fmt.Fprintf(w, "ok")
}
