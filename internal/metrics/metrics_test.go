package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()

	m.CacheHit("hosts")
	m.CacheHit("hosts")
	m.CacheMiss("hosts")
	if got := testutil.ToFloat64(m.cacheHits.WithLabelValues("hosts")); got != 2 {
		t.Errorf("cache hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.cacheMisses.WithLabelValues("hosts")); got != 1 {
		t.Errorf("cache misses = %v, want 1", got)
	}

	m.AuditFlush(5, 1)
	if got := testutil.ToFloat64(m.auditEntriesWritten); got != 5 {
		t.Errorf("audit entries written = %v, want 5", got)
	}
	if got := testutil.ToFloat64(m.auditFlushFailures); got != 1 {
		t.Errorf("audit flush failures = %v, want 1", got)
	}

	m.SyncPush(true)
	m.SyncPush(false)
	m.SyncAttempt()
	if got := testutil.ToFloat64(m.syncPushes.WithLabelValues("success")); got != 1 {
		t.Errorf("sync successes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.syncPushes.WithLabelValues("failure")); got != 1 {
		t.Errorf("sync failures = %v, want 1", got)
	}

	m.SetEngineUp(true)
	if got := testutil.ToFloat64(m.engineUp); got != 1 {
		t.Errorf("engine_up = %v, want 1", got)
	}
	m.SetEngineUp(false)
	if got := testutil.ToFloat64(m.engineUp); got != 0 {
		t.Errorf("engine_up = %v, want 0", got)
	}
}

func TestNilReceiverSafe(t *testing.T) {
	var m *Metrics
	m.CacheHit("hosts")
	m.CacheMiss("hosts")
	m.AuditFlush(1, 0)
	m.SyncPush(true)
	m.SyncAttempt()
	m.ProbeFailure()
	m.SetEngineUp(true)
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.SyncAttempt()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "proxydeck_sync_attempts_total") {
		t.Error("exposition missing proxydeck_sync_attempts_total")
	}
}
