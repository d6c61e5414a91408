// Package metrics provides Prometheus metrics for newsdesk.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SourceFetches counts adapter calls by outcome (ok, empty, error, skipped).
	SourceFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsdesk",
			Name:      "source_fetch_total",
			Help:      "Total number of source adapter calls",
		},
		[]string{"source", "op", "outcome"},
	)

	// SourceArticles counts normalized articles returned by adapters.
	SourceArticles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsdesk",
			Name:      "source_articles_total",
			Help:      "Total number of articles returned by source adapters",
		},
		[]string{"source"},
	)

	// SourceDuration measures adapter call latency.
	SourceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "newsdesk",
			Name:      "source_fetch_duration_seconds",
			Help:      "Duration of source adapter calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// CacheDecisions counts freshness decisions.
	CacheDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsdesk",
			Name:      "cache_decisions_total",
			Help:      "Total number of cache freshness decisions",
		},
		[]string{"decision"},
	)

	// Writebacks counts detached persistence jobs by status.
	Writebacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsdesk",
			Name:      "writeback_total",
			Help:      "Total number of write-back jobs",
		},
		[]string{"status"},
	)

	// Enrichments counts enrichment calls by outcome (ok, placeholder).
	Enrichments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsdesk",
			Name:      "enrich_total",
			Help:      "Total number of enrichment requests",
		},
		[]string{"outcome"},
	)

	// HTTPDuration measures API request latency.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "newsdesk",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "status"},
	)
)
