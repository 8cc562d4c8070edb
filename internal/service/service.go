// Package service orchestrates host mutations: persistence, cache
// invalidation, audit recording, and engine synchronization.
package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/rkershaw/proxydeck/internal/audit"
	"github.com/rkershaw/proxydeck/internal/cache"
	"github.com/rkershaw/proxydeck/internal/certs"
	"github.com/rkershaw/proxydeck/internal/db"
	"github.com/rkershaw/proxydeck/internal/dnscheck"
	"github.com/rkershaw/proxydeck/internal/engine"
	"github.com/rkershaw/proxydeck/internal/metrics"
	"github.com/rkershaw/proxydeck/internal/models"
	"go.uber.org/zap"
)

// Cache TTLs. Short enough that staleness cannot outlive a dashboard
// render; mutation paths invalidate synchronously regardless.
const (
	hostsTTL = 10 * time.Second
	usersTTL = 15 * time.Second
	auditTTL = 10 * time.Second
)

const (
	keyAll    = "all"
	keyRecent = "recent"

	recentAuditLimit = 50
)

// Reloader pushes the current store state to the engine.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Service is the synchronization and consistency layer over the host
// record store. All state (caches, audit queue) is owned by the instance,
// not package-level, so tests can construct isolated instances.
type Service struct {
	db       *sql.DB
	logger   *zap.Logger
	hasher   engine.Hasher
	reloader Reloader
	audit    *audit.Recorder
	prober   *certs.Prober
	resolver *dnscheck.Resolver

	hostsCache *cache.Cache[[]models.ProxyHost]
	hostCache  *cache.Cache[models.ProxyHost]
	userCache  *cache.Cache[models.User]
	auditCache *cache.Cache[[]models.AuditLogView]
}

// New wires a service instance. resolver may be nil to skip DNS preflight.
func New(database *sql.DB, logger *zap.Logger, m *metrics.Metrics,
	hasher engine.Hasher, reloader Reloader, recorder *audit.Recorder,
	prober *certs.Prober, resolver *dnscheck.Resolver) *Service {

	s := &Service{
		db:         database,
		logger:     logger,
		hasher:     hasher,
		reloader:   reloader,
		audit:      recorder,
		prober:     prober,
		resolver:   resolver,
		hostsCache: cache.New[[]models.ProxyHost](hostsTTL),
		hostCache:  cache.New[models.ProxyHost](hostsTTL),
		userCache:  cache.New[models.User](usersTTL),
		auditCache: cache.New[[]models.AuditLogView](auditTTL),
	}

	s.hostsCache.OnHit = func() { m.CacheHit("hosts") }
	s.hostsCache.OnMiss = func() { m.CacheMiss("hosts") }
	s.hostCache.OnHit = func() { m.CacheHit("host") }
	s.hostCache.OnMiss = func() { m.CacheMiss("host") }
	s.userCache.OnHit = func() { m.CacheHit("users") }
	s.userCache.OnMiss = func() { m.CacheMiss("users") }
	s.auditCache.OnHit = func() { m.CacheHit("audit") }
	s.auditCache.OnMiss = func() { m.CacheMiss("audit") }

	// Audit reads must observe freshly flushed entries.
	recorder.SetOnFlush(s.auditCache.InvalidateAll)

	return s
}

// GetAllHosts returns every proxy host, read through the cache.
func (s *Service) GetAllHosts(ctx context.Context) ([]models.ProxyHost, error) {
	if hosts, ok := s.hostsCache.Get(keyAll); ok {
		return hosts, nil
	}
	hosts, err := db.GetAllProxyHosts(s.db)
	if err != nil {
		return nil, fmt.Errorf("get proxy hosts: %w", err)
	}
	s.hostsCache.Set(keyAll, hosts)
	return hosts, nil
}

// GetHost returns one proxy host, read through the cache. Nil when absent.
func (s *Service) GetHost(ctx context.Context, id int64) (*models.ProxyHost, error) {
	if h, ok := s.hostCache.Get(hostKey(id)); ok {
		return &h, nil
	}
	h, err := db.GetProxyHostByID(s.db, id)
	if err != nil {
		return nil, fmt.Errorf("get proxy host %d: %w", id, err)
	}
	if h == nil {
		return nil, nil
	}
	s.hostCache.Set(hostKey(id), *h)
	return h, nil
}

// HostWithStatus pairs a host with its probed certificate state. The
// certificate field is nil for non-SSL hosts.
type HostWithStatus struct {
	Host        models.ProxyHost
	Certificate *models.CertificateStatus
}

// GetAllHostsWithStatus returns every host with certificate status probed
// for the SSL-enabled ones. Probe failures surface in the status error
// field, never here.
func (s *Service) GetAllHostsWithStatus(ctx context.Context) ([]HostWithStatus, error) {
	hosts, err := s.GetAllHosts(ctx)
	if err != nil {
		return nil, err
	}

	statuses := s.prober.StatusAll(ctx, hosts)

	out := make([]HostWithStatus, 0, len(hosts))
	for _, h := range hosts {
		out = append(out, HostWithStatus{Host: h, Certificate: statuses[h.ID]})
	}
	return out, nil
}

// GetUser returns one operator account, read through the cache.
func (s *Service) GetUser(ctx context.Context, id int64) (*models.User, error) {
	if u, ok := s.userCache.Get(userKey(id)); ok {
		return &u, nil
	}
	u, err := db.GetUserByID(s.db, id)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	if u == nil {
		return nil, nil
	}
	s.userCache.Set(userKey(id), *u)
	return u, nil
}

// RecentAuditLogs returns the latest audit entries with actor details.
func (s *Service) RecentAuditLogs(ctx context.Context) ([]models.AuditLogView, error) {
	return s.auditLogs(keyRecent, recentAuditLimit)
}

// AllAuditLogs returns the full audit trail with actor details.
func (s *Service) AllAuditLogs(ctx context.Context) ([]models.AuditLogView, error) {
	return s.auditLogs(keyAll, 0)
}

func (s *Service) auditLogs(key string, limit int) ([]models.AuditLogView, error) {
	if entries, ok := s.auditCache.Get(key); ok {
		return entries, nil
	}
	entries, err := db.ListAuditLogs(s.db, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	s.auditCache.Set(key, entries)
	return entries, nil
}

// invalidateHost clears every cache entry a host mutation can affect. It
// runs synchronously inside the mutation call, before it returns, which is
// what guarantees read-after-write freshness for the caller and for the
// synchronizer's re-read.
func (s *Service) invalidateHost(id int64) {
	s.hostCache.Invalidate(hostKey(id))
	s.hostsCache.Invalidate(keyAll)
}

// resync pushes the current store state to the engine. A failed push is
// logged and swallowed: the store stays the source of truth and the next
// successful push reconciles the engine.
func (s *Service) resync(ctx context.Context) {
	if err := s.reloader.Reload(ctx); err != nil && s.logger != nil {
		s.logger.Error("post-mutation engine sync failed", zap.Error(err))
	}
}

func hostKey(id int64) string { return "host:" + strconv.FormatInt(id, 10) }
func userKey(id int64) string { return "user:" + strconv.FormatInt(id, 10) }
