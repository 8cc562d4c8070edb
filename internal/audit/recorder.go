// Package audit writes the administrative action trail.
//
// Durability is best-effort by design: a flush failure is logged and
// swallowed, never surfaced to the administrative action that produced the
// entry.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rkershaw/proxydeck/internal/db"
	"github.com/rkershaw/proxydeck/internal/metrics"
	"github.com/rkershaw/proxydeck/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxQueueSize triggers a synchronous flush when the queue reaches it.
	MaxQueueSize = 25

	// FlushInterval is the idle timer started when the first unflushed
	// entry is enqueued.
	FlushInterval = 5 * time.Second
)

// Recorder queues audit entries and flushes them in batches. Construct one
// per service instance; it owns its queue and timer so tests can assert on
// flush behavior deterministically.
type Recorder struct {
	db      *sql.DB
	logger  *zap.Logger
	metrics *metrics.Metrics

	// onFlush is invoked after a flush that persisted at least one entry,
	// so audit read caches observe the new rows.
	onFlush func()

	maxQueue int
	interval time.Duration

	mu    sync.Mutex
	queue []models.AuditLog
	timer *time.Timer
}

// NewRecorder creates a recorder with the default queue bounds.
func NewRecorder(database *sql.DB, logger *zap.Logger, m *metrics.Metrics) *Recorder {
	return &Recorder{
		db:       database,
		logger:   logger,
		metrics:  m,
		maxQueue: MaxQueueSize,
		interval: FlushInterval,
	}
}

// SetQueueBounds overrides the size trigger and idle interval. Test hook.
func (r *Recorder) SetQueueBounds(maxQueue int, interval time.Duration) {
	r.maxQueue = maxQueue
	r.interval = interval
}

// SetOnFlush registers the cache-invalidation callback.
func (r *Recorder) SetOnFlush(fn func()) {
	r.onFlush = fn
}

// Record writes an audit entry. Immediate entries are inserted
// synchronously and the insert error is returned. Queued entries (the
// default path) are enqueued and flushed when the queue reaches
// MaxQueueSize or the idle timer fires, whichever comes first; the queued
// path never fails the caller.
func (r *Recorder) Record(ctx context.Context, entry models.AuditLog, immediate bool) error {
	if entry.CreatedAt == 0 {
		entry.CreatedAt = time.Now().Unix()
	}

	if immediate {
		if _, err := db.InsertAuditLog(r.db, entry); err != nil {
			return fmt.Errorf("insert audit log: %w", err)
		}
		r.metrics.AuditFlush(1, 0)
		if r.onFlush != nil {
			r.onFlush()
		}
		return nil
	}

	r.mu.Lock()
	r.queue = append(r.queue, entry)
	full := len(r.queue) >= r.maxQueue
	if !full && r.timer == nil {
		r.timer = time.AfterFunc(r.interval, r.Flush)
	}
	r.mu.Unlock()

	if full {
		r.Flush()
	}
	return nil
}

// Flush drains the queue and persists the drained entries concurrently.
// The snapshot is taken under the lock with the timer cleared first, so a
// timer firing during a size-triggered flush only ever sees entries
// enqueued after this snapshot: no double-insert, no lost entry.
func (r *Recorder) Flush() {
	r.mu.Lock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	pending := r.queue
	r.queue = nil
	r.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	var failed int64
	var failedMu sync.Mutex
	g := new(errgroup.Group)
	for _, entry := range pending {
		g.Go(func() error {
			if _, err := db.InsertAuditLog(r.db, entry); err != nil {
				failedMu.Lock()
				failed++
				failedMu.Unlock()
				if r.logger != nil {
					r.logger.Warn("audit write failed", zap.String("action", entry.ActionType), zap.Error(err))
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	written := len(pending) - int(failed)
	r.metrics.AuditFlush(written, int(failed))
	if written > 0 && r.onFlush != nil {
		r.onFlush()
	}
}

// Close flushes any remaining entries. Call on shutdown.
func (r *Recorder) Close() {
	r.Flush()
}

// Pending returns the number of unflushed entries. Test hook.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}
