// Package metrics holds the Prometheus collectors of the driver.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "presto_driver"

var (
	// StatementsTotal counts executed statements by connection and outcome
	StatementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "statements_total",
		Help:      "Total statements executed by connection and outcome",
	}, []string{"connection", "outcome"})

	// StatementDuration tracks statement latency
	StatementDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "statement_duration_seconds",
		Help:      "Statement execution duration in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
	}, []string{"connection"})

	// RowsReturned counts rows materialized from successful statements
	RowsReturned = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rows_returned_total",
		Help:      "Total rows returned to the host by connection",
	}, []string{"connection"})

	// CatalogQueries counts explorer and search introspection queries by kind
	CatalogQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_queries_total",
		Help:      "Total catalog introspection queries by kind",
	}, []string{"kind"})

	OpenConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "open_connections",
		Help:      "Number of connections currently holding an engine client",
	})
)

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)
