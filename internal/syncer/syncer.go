// Package syncer keeps the engine's live configuration consistent with the
// host record store.
package syncer

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/rkershaw/proxydeck/internal/db"
	"github.com/rkershaw/proxydeck/internal/engine"
	"github.com/rkershaw/proxydeck/internal/logging"
	"github.com/rkershaw/proxydeck/internal/metrics"
	"github.com/rkershaw/proxydeck/internal/retry"
	"go.uber.org/zap"
)

// EngineAPI is the slice of the engine client the synchronizer needs.
type EngineAPI interface {
	Load(ctx context.Context, doc []byte) error
	Status(ctx context.Context) (*engine.Status, error)
}

// EngineStatus is the liveness report surfaced to callers. A failed probe
// is reported here, never as an error.
type EngineStatus struct {
	Running       bool   `json:"running"`
	Version       string `json:"version,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Synchronizer builds the engine's desired configuration from the current
// host records and pushes it as a single atomic replace. The store is the
// source of truth: a failed push is surfaced but never rolls back the
// mutation that triggered it, and the next successful push reconciles the
// engine.
type Synchronizer struct {
	db      *sql.DB
	engine  EngineAPI
	logger  *zap.Logger
	metrics *metrics.Metrics
	policy  retry.Policy
}

// New creates a synchronizer with the default retry policy.
func New(database *sql.DB, api EngineAPI, logger *zap.Logger, m *metrics.Metrics) *Synchronizer {
	p := retry.DefaultPolicy()
	p.Retryable = engine.IsRetryable
	return &Synchronizer{
		db:      database,
		engine:  api,
		logger:  logger,
		metrics: m,
		policy:  p,
	}
}

// SetRetryPolicy overrides the push retry policy. Test hook.
func (s *Synchronizer) SetRetryPolicy(p retry.Policy) {
	s.policy = p
}

// Reload re-reads the full host list directly from the store, never the
// cache, so it always reflects the mutation that triggered it, builds the
// configuration document, and pushes it with bounded retry.
func (s *Synchronizer) Reload(ctx context.Context) error {
	runID := uuid.NewString()

	hosts, err := db.GetAllProxyHosts(s.db)
	if err != nil {
		return fmt.Errorf("read proxy hosts: %w", err)
	}

	doc := engine.BuildDocument(hosts)
	payload, err := doc.Marshal()
	if err != nil {
		return fmt.Errorf("marshal config document: %w", err)
	}

	_, err = retry.Do(ctx, s.policy, func(ctx context.Context) (struct{}, error) {
		s.metrics.SyncAttempt()
		return struct{}{}, s.engine.Load(ctx, payload)
	})
	if err != nil {
		s.metrics.SyncPush(false)
		if s.logger != nil {
			s.logger.Error("engine config push failed",
				logging.RunID(runID),
				zap.Int("routes", len(doc.Routes)),
				zap.Error(err))
		}
		return fmt.Errorf("push config to engine: %w", err)
	}

	s.metrics.SyncPush(true)
	if s.logger != nil {
		s.logger.Info("engine config pushed",
			logging.RunID(runID),
			zap.Int("hosts", len(hosts)),
			zap.Int("routes", len(doc.Routes)))
	}
	return nil
}

// Status probes engine liveness. It never returns an error: an unreachable
// engine is reported as not running with the probe error attached.
func (s *Synchronizer) Status(ctx context.Context) EngineStatus {
	st, err := s.engine.Status(ctx)
	if err != nil {
		s.metrics.SetEngineUp(false)
		return EngineStatus{Running: false, Error: err.Error()}
	}
	s.metrics.SetEngineUp(st.Running)
	return EngineStatus{
		Running:       st.Running,
		Version:       st.Version,
		UptimeSeconds: st.UptimeSeconds,
	}
}
