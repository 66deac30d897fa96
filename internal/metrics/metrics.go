// Package metrics holds Prometheus instruments that are used across the
// artifact pipeline.  All collectors are registered with the global
// registry, so importing this package in main.go is enough to expose them
// on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ProcessInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "zitefy_process_in_flight",
			Help: "Build and screenshot subprocesses currently running.",
		})

	ProcessTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zitefy_process_total",
			Help: "Subprocess invocations by operation and outcome.",
		}, []string{"op", "outcome"})

	ProcessSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zitefy_process_seconds",
			Help:    "Wall time of build and screenshot subprocesses.",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"op"})

	TokensIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "zitefy_tokens_issued_total",
			Help: "Ephemeral download tokens issued.",
		})

	TokensEvictedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "zitefy_tokens_evicted_total",
			Help: "Expired ephemeral tokens removed from the registry.",
		})

	TokensActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "zitefy_tokens_active",
			Help: "Entries currently held by the token registry.",
		})

	CleanupScheduledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "zitefy_cleanup_scheduled_total",
			Help: "Scratch directories scheduled for deferred deletion.",
		})

	CleanupErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "zitefy_cleanup_errors_total",
			Help: "Deferred deletions that failed.",
		})

	SyncTicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "zitefy_template_sync_ticks_total",
			Help: "Template synchronization passes started.",
		})

	TemplatesUpsertedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "zitefy_templates_upserted_total",
			Help: "Template records upserted by the synchronizer.",
		})

	TemplatesSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "zitefy_templates_skipped_total",
			Help: "Template directories skipped because of an error.",
		})

	SitesMaterializedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "zitefy_sites_materialized_total",
			Help: "Sites created from a template.",
		})

	SiteMaterializeErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "zitefy_site_materialize_errors_total",
			Help: "Site creations that failed and were rolled back.",
		})
)

func init() {
	prometheus.MustRegister(
		ProcessInFlight,
		ProcessTotal,
		ProcessSeconds,
		TokensIssuedTotal,
		TokensEvictedTotal,
		TokensActive,
		CleanupScheduledTotal,
		CleanupErrorsTotal,
		SyncTicksTotal,
		TemplatesUpsertedTotal,
		TemplatesSkippedTotal,
		SitesMaterializedTotal,
		SiteMaterializeErrorsTotal,
	)
}
