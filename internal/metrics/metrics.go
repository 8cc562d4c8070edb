// Package metrics exposes Prometheus instrumentation for the sync layer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "proxydeck"

// Metrics holds the collectors for cache, audit, sync, and probe activity.
// All record methods are safe on a nil receiver so components can run
// uninstrumented in tests.
type Metrics struct {
	registry *prometheus.Registry

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	auditFlushes        prometheus.Counter
	auditEntriesWritten prometheus.Counter
	auditFlushFailures  prometheus.Counter

	syncPushes   *prometheus.CounterVec
	syncAttempts prometheus.Counter

	probeFailures prometheus.Counter
	engineUp      prometheus.Gauge
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Read-through cache hits by cache name.",
		}, []string{"cache"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Read-through cache misses by cache name.",
		}, []string{"cache"}),
		auditFlushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_flushes_total",
			Help:      "Audit queue flushes.",
		}),
		auditEntriesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_entries_written_total",
			Help:      "Audit entries persisted.",
		}),
		auditFlushFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_flush_failures_total",
			Help:      "Audit entries that failed to persist.",
		}),
		syncPushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_pushes_total",
			Help:      "Engine configuration pushes by result.",
		}, []string{"result"}),
		syncAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_attempts_total",
			Help:      "Individual engine push attempts, including retries.",
		}),
		probeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "certificate_probe_failures_total",
			Help:      "Certificate probes that reported an error.",
		}),
		engineUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "engine_up",
			Help:      "Whether the engine admin API answered the last liveness probe.",
		}),
	}

	registry.MustRegister(
		m.cacheHits, m.cacheMisses,
		m.auditFlushes, m.auditEntriesWritten, m.auditFlushFailures,
		m.syncPushes, m.syncAttempts,
		m.probeFailures, m.engineUp,
	)
	return m
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

func (m *Metrics) CacheHit(name string) {
	if m != nil {
		m.cacheHits.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) CacheMiss(name string) {
	if m != nil {
		m.cacheMisses.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) AuditFlush(written, failed int) {
	if m == nil {
		return
	}
	m.auditFlushes.Inc()
	m.auditEntriesWritten.Add(float64(written))
	m.auditFlushFailures.Add(float64(failed))
}

func (m *Metrics) SyncPush(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.syncPushes.WithLabelValues("success").Inc()
	} else {
		m.syncPushes.WithLabelValues("failure").Inc()
	}
}

func (m *Metrics) SyncAttempt() {
	if m != nil {
		m.syncAttempts.Inc()
	}
}

func (m *Metrics) ProbeFailure() {
	if m != nil {
		m.probeFailures.Inc()
	}
}

func (m *Metrics) SetEngineUp(up bool) {
	if m == nil {
		return
	}
	if up {
		m.engineUp.Set(1)
	} else {
		m.engineUp.Set(0)
	}
}
