// Package certs probes per-domain certificate status through the engine's
// admin API.
package certs

import (
	"context"
	"time"

	"github.com/rkershaw/proxydeck/internal/batch"
	"github.com/rkershaw/proxydeck/internal/engine"
	"github.com/rkershaw/proxydeck/internal/logging"
	"github.com/rkershaw/proxydeck/internal/metrics"
	"github.com/rkershaw/proxydeck/internal/models"
	"go.uber.org/zap"
)

// DefaultWidth bounds in-flight probes when enumerating a host list, so a
// large host count cannot saturate the engine's admin API or the outbound
// connection pool.
const DefaultWidth = 50

// AdminAPI is the slice of the engine client the prober needs.
type AdminAPI interface {
	CertificateInfo(ctx context.Context, domain string) (*engine.CertInfo, error)
}

// Prober resolves certificate status per domain. Engine failures are
// reported in the status Error field, never returned, so one domain's
// failure cannot prevent the rest of a host list from rendering.
type Prober struct {
	api     AdminAPI
	logger  *zap.Logger
	metrics *metrics.Metrics
	width   int
	now     func() time.Time
}

// NewProber creates a prober with the default batch width.
func NewProber(api AdminAPI, logger *zap.Logger, m *metrics.Metrics) *Prober {
	return &Prober{
		api:     api,
		logger:  logger,
		metrics: m,
		width:   DefaultWidth,
		now:     time.Now,
	}
}

// Status probes a single domain.
func (p *Prober) Status(ctx context.Context, domain string) models.CertificateStatus {
	st := models.CertificateStatus{Domain: domain}

	info, err := p.api.CertificateInfo(ctx, domain)
	if err != nil {
		msg := err.Error()
		st.Error = &msg
		p.metrics.ProbeFailure()
		if p.logger != nil {
			p.logger.Debug("certificate probe failed", logging.Domain(domain), zap.Error(err))
		}
		return st
	}

	st.IsValid = info.Valid
	st.Issuer = info.Issuer
	if info.NotAfter != nil {
		st.Expiry = info.NotAfter
		days := int(time.Unix(*info.NotAfter, 0).Sub(p.now()).Hours() / 24)
		st.DaysRemaining = &days
	}
	return st
}

// StatusAll probes every SSL-enabled host with bounded concurrency and
// returns statuses keyed by host id. Non-SSL hosts are skipped and absent
// from the result.
func (p *Prober) StatusAll(ctx context.Context, hosts []models.ProxyHost) map[int64]*models.CertificateStatus {
	var sslHosts []models.ProxyHost
	for _, h := range hosts {
		if h.SSLEnabled {
			sslHosts = append(sslHosts, h)
		}
	}

	statuses := make(map[int64]*models.CertificateStatus, len(sslHosts))
	if len(sslHosts) == 0 {
		return statuses
	}

	// Status never returns an error, so Process cannot abort mid-list.
	results, _ := batch.Process(ctx, sslHosts, p.width,
		func(ctx context.Context, h models.ProxyHost) (models.CertificateStatus, error) {
			return p.Status(ctx, h.Domain), nil
		})

	for i, h := range sslHosts {
		st := results[i]
		statuses[h.ID] = &st
	}
	return statuses
}
