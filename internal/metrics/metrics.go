package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Registry
	AuditsSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainaudit",
		Subsystem: "registry",
		Name:      "audits_submitted_total",
		Help:      "Total audit records committed, by verdict",
	}, []string{"verdict"})

	MetricsUpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chainaudit",
		Subsystem: "registry",
		Name:      "metrics_updates_total",
		Help:      "Total token metrics updates committed",
	})

	AuthorizationRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainaudit",
		Subsystem: "registry",
		Name:      "authorization_rejections_total",
		Help:      "Total mutations rejected because the caller lacked the required role",
	}, []string{"action"})

	ReentrantCallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chainaudit",
		Subsystem: "registry",
		Name:      "reentrant_calls_total",
		Help:      "Total mutations refused because they were issued from inside another mutation",
	})

	// Metadata store
	MetadataFieldFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainaudit",
		Subsystem: "metadata",
		Name:      "field_fallbacks_total",
		Help:      "Total token fields that fell back to their default value",
	}, []string{"field"})

	TokensAnalyzedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chainaudit",
		Subsystem: "metadata",
		Name:      "tokens_analyzed_total",
		Help:      "Total token metadata analyses persisted",
	})

	// Heuristic engine
	HeuristicVerdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainaudit",
		Subsystem: "heuristic",
		Name:      "verdicts_total",
		Help:      "Total scam verdicts produced, by source",
	}, []string{"source"})

	HeuristicRiskScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "chainaudit",
		Subsystem: "heuristic",
		Name:      "risk_score",
		Help:      "Distribution of clamped heuristic risk scores",
		Buckets:   []float64{0, 15, 25, 35, 50, 70, 75, 90, 100},
	})

	// Pipeline
	PipelineRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainaudit",
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Total pipeline runs, by outcome (ok, degraded, failed)",
	}, []string{"outcome"})

	PipelineStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chainaudit",
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Pipeline stage duration",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"stage"})

	PipelineStageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainaudit",
		Subsystem: "pipeline",
		Name:      "stage_failures_total",
		Help:      "Total stage failures absorbed by a fallback",
	}, []string{"stage"})

	PipelineMetadataTier = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainaudit",
		Subsystem: "pipeline",
		Name:      "metadata_tier_total",
		Help:      "Total pipeline runs by the metadata fallback tier that answered",
	}, []string{"tier"})

	PipelineWriteBackFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chainaudit",
		Subsystem: "pipeline",
		Name:      "write_back_failures_total",
		Help:      "Total registry write-backs that failed and were swallowed",
	})

	PipelineEnrichmentFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainaudit",
		Subsystem: "pipeline",
		Name:      "enrichment_failures_total",
		Help:      "Total optional enrichments omitted after failure",
	}, []string{"enricher"})

	// Database pool
	DBPoolOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "chainaudit",
		Subsystem: "postgres",
		Name:      "db_pool_open",
		Help:      "Current number of open PostgreSQL connections in the pool",
	})

	DBPoolInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "chainaudit",
		Subsystem: "postgres",
		Name:      "db_pool_in_use",
		Help:      "Current number of in-use PostgreSQL connections in the pool",
	})

	DBPoolIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "chainaudit",
		Subsystem: "postgres",
		Name:      "db_pool_idle",
		Help:      "Current number of idle PostgreSQL connections in the pool",
	})

	DBPoolWaitCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "chainaudit",
		Subsystem: "postgres",
		Name:      "db_pool_wait_count",
		Help:      "Cumulative count of waits for PostgreSQL connections from pool",
	})

	// Bytecode cache
	BytecodeCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chainaudit",
		Subsystem: "cache",
		Name:      "bytecode_hits_total",
		Help:      "Total contract bytecode cache hits",
	})

	BytecodeCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chainaudit",
		Subsystem: "cache",
		Name:      "bytecode_misses_total",
		Help:      "Total contract bytecode cache misses",
	})

	// RPC
	RPCCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainaudit",
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "Total RPC calls by method and status",
	}, []string{"chain", "method", "status"})

	RPCRateLimitWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainaudit",
		Subsystem: "rpc",
		Name:      "rate_limit_waits_total",
		Help:      "Total times RPC calls waited for rate limiter",
	}, []string{"chain"})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "chainaudit",
		Subsystem: "upstream",
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state per upstream (0=closed, 1=open, 2=half-open)",
	}, []string{"upstream"})

	// Alerts
	AlertsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainaudit",
		Subsystem: "alert",
		Name:      "sent_total",
		Help:      "Total alerts sent",
	}, []string{"channel", "alert_type"})

	AlertsCooldownSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainaudit",
		Subsystem: "alert",
		Name:      "cooldown_skipped_total",
		Help:      "Total alerts skipped due to cooldown",
	}, []string{"channel", "alert_type"})
)
