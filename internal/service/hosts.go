package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rkershaw/proxydeck/internal/db"
	"github.com/rkershaw/proxydeck/internal/logging"
	"github.com/rkershaw/proxydeck/internal/models"
)

// ErrNotFound is returned for mutations against an unknown host id.
var ErrNotFound = errors.New("proxy host not found")

// HostInput is the payload for creating a proxy host. BasicAuthPassword is
// plaintext; it is hashed immediately and never persisted.
type HostInput struct {
	Domain            string
	TargetHost        string
	TargetPort        int
	TargetProto       string
	SSLEnabled        bool
	ForceSSL          bool
	HTTP2Support      bool
	HTTP3Support      bool
	Enabled           bool
	CacheEnabled      bool
	IgnoreInvalidCert bool
	AdvancedConfig    *string
	BasicAuthEnabled  bool
	BasicAuthUser     string
	BasicAuthPassword string
}

// UpdateInput is a partial update. Nil fields are left unchanged.
// BasicAuthPassword, when set, is hashed and replaces the stored hash.
type UpdateInput struct {
	Domain            *string
	TargetHost        *string
	TargetPort        *int
	TargetProto       *string
	SSLEnabled        *bool
	ForceSSL          *bool
	HTTP2Support      *bool
	HTTP3Support      *bool
	Enabled           *bool
	CacheEnabled      *bool
	IgnoreInvalidCert *bool
	AdvancedConfig    *string
	BasicAuthEnabled  *bool
	BasicAuthUser     *string
	BasicAuthPassword *string
}

// CreateHost validates, persists, and audits a new proxy host, then pushes
// the updated configuration to the engine. A failed push does not fail the
// create.
func (s *Service) CreateHost(ctx context.Context, in HostInput, actorID *int64) (*models.ProxyHost, error) {
	if err := validateHostInput(in); err != nil {
		return nil, err
	}
	s.preflightDomain(ctx, in.Domain)

	h := models.ProxyHost{
		Domain:            in.Domain,
		TargetHost:        in.TargetHost,
		TargetPort:        in.TargetPort,
		TargetProto:       in.TargetProto,
		SSLEnabled:        in.SSLEnabled,
		ForceSSL:          in.ForceSSL,
		HTTP2Support:      in.HTTP2Support,
		HTTP3Support:      in.HTTP3Support,
		Enabled:           in.Enabled,
		CacheEnabled:      in.CacheEnabled,
		IgnoreInvalidCert: in.IgnoreInvalidCert,
		AdvancedConfig:    in.AdvancedConfig,
	}
	if in.BasicAuthEnabled {
		hash, err := s.hasher.HashPassword(ctx, in.BasicAuthPassword)
		if err != nil {
			return nil, fmt.Errorf("hash basic-auth credential: %w", err)
		}
		user := in.BasicAuthUser
		h.BasicAuthEnabled = true
		h.BasicAuthUser = &user
		h.BasicAuthHash = &hash
	}

	id, err := db.CreateProxyHost(ctx, s.db, &h)
	if err != nil {
		return nil, fmt.Errorf("create proxy host: %w", err)
	}

	s.invalidateHost(id)

	created, err := db.GetProxyHostByID(s.db, id)
	if err != nil {
		return nil, fmt.Errorf("read created proxy host: %w", err)
	}

	s.recordAudit(ctx, models.ActionCreate, id, createChanges(created), actorID)
	s.resync(ctx)
	return created, nil
}

// UpdateHost applies a partial update. Field-level changes are diffed
// against the prior record; an update that changes nothing writes no audit
// entry and triggers no engine push.
func (s *Service) UpdateHost(ctx context.Context, id int64, in UpdateInput, actorID *int64) (*models.ProxyHost, error) {
	prior, err := db.GetProxyHostByID(s.db, id)
	if err != nil {
		return nil, fmt.Errorf("get proxy host %d: %w", id, err)
	}
	if prior == nil {
		return nil, ErrNotFound
	}

	upd := models.HostUpdate{
		Domain:            in.Domain,
		TargetHost:        in.TargetHost,
		TargetPort:        in.TargetPort,
		TargetProto:       in.TargetProto,
		SSLEnabled:        in.SSLEnabled,
		ForceSSL:          in.ForceSSL,
		HTTP2Support:      in.HTTP2Support,
		HTTP3Support:      in.HTTP3Support,
		Enabled:           in.Enabled,
		CacheEnabled:      in.CacheEnabled,
		IgnoreInvalidCert: in.IgnoreInvalidCert,
		AdvancedConfig:    in.AdvancedConfig,
		BasicAuthEnabled:  in.BasicAuthEnabled,
	}

	// Credentials only exist on a record with basic auth enabled. When the
	// merged record has it off, stray credential fields in the payload are
	// dropped so the store never holds a username or hash on a disabled row.
	baEnabled := prior.BasicAuthEnabled
	if in.BasicAuthEnabled != nil {
		baEnabled = *in.BasicAuthEnabled
	}
	if baEnabled {
		upd.BasicAuthUser = in.BasicAuthUser
		if in.BasicAuthPassword != nil {
			hash, err := s.hasher.HashPassword(ctx, *in.BasicAuthPassword)
			if err != nil {
				return nil, fmt.Errorf("hash basic-auth credential: %w", err)
			}
			upd.BasicAuthHash = &hash
		}
	}

	if err := validateHostUpdate(prior, upd); err != nil {
		return nil, err
	}
	if in.Domain != nil && *in.Domain != prior.Domain {
		s.preflightDomain(ctx, *in.Domain)
	}

	if err := db.UpdateProxyHost(ctx, s.db, id, upd); err != nil {
		return nil, fmt.Errorf("update proxy host %d: %w", id, err)
	}

	s.invalidateHost(id)

	updated, err := db.GetProxyHostByID(s.db, id)
	if err != nil {
		return nil, fmt.Errorf("read updated proxy host: %w", err)
	}

	changes := diffHosts(prior, updated)
	if len(changes) > 0 {
		s.recordAudit(ctx, models.ActionUpdate, id, changes, actorID)
		s.resync(ctx)
	}
	return updated, nil
}

// DeleteHost removes a host and pushes the shrunk configuration, dropping
// its route from the live engine.
func (s *Service) DeleteHost(ctx context.Context, id int64, actorID *int64) error {
	prior, err := db.GetProxyHostByID(s.db, id)
	if err != nil {
		return fmt.Errorf("get proxy host %d: %w", id, err)
	}
	if prior == nil {
		return ErrNotFound
	}

	if err := db.DeleteProxyHost(ctx, s.db, id); err != nil {
		return fmt.Errorf("delete proxy host %d: %w", id, err)
	}

	s.invalidateHost(id)
	s.recordAudit(ctx, models.ActionDelete, id, map[string]any{"domain": prior.Domain}, actorID)
	s.resync(ctx)
	return nil
}

// SetHostEnabled toggles a host. A no-op toggle writes no audit entry.
func (s *Service) SetHostEnabled(ctx context.Context, id int64, enabled bool, actorID *int64) (*models.ProxyHost, error) {
	prior, err := db.GetProxyHostByID(s.db, id)
	if err != nil {
		return nil, fmt.Errorf("get proxy host %d: %w", id, err)
	}
	if prior == nil {
		return nil, ErrNotFound
	}
	if prior.Enabled == enabled {
		return prior, nil
	}

	upd := models.HostUpdate{Enabled: &enabled}
	if err := db.UpdateProxyHost(ctx, s.db, id, upd); err != nil {
		return nil, fmt.Errorf("toggle proxy host %d: %w", id, err)
	}

	s.invalidateHost(id)

	updated, err := db.GetProxyHostByID(s.db, id)
	if err != nil {
		return nil, fmt.Errorf("read toggled proxy host: %w", err)
	}

	s.recordAudit(ctx, models.ActionToggle, id,
		map[string]any{"enabled": change(prior.Enabled, enabled)}, actorID)
	s.resync(ctx)
	return updated, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, hostID int64, changes map[string]any, actorID *int64) {
	entry := models.AuditLog{
		ActionType: action,
		EntityType: models.EntityProxyHost,
		EntityID:   &hostID,
		Changes:    marshalChanges(changes),
		UserID:     actorID,
	}
	// Queued mode: audit durability is best-effort and must never block
	// the administrative action.
	_ = s.audit.Record(ctx, entry, false)
}

func (s *Service) preflightDomain(ctx context.Context, domain string) {
	if s.resolver == nil {
		return
	}
	ok, err := s.resolver.Resolves(ctx, domain)
	if err != nil || s.logger == nil {
		return
	}
	if !ok {
		s.logger.Warn("host domain does not currently resolve", logging.Domain(domain))
	}
}
