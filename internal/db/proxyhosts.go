package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rkershaw/proxydeck/internal/models"
	"github.com/rkershaw/proxydeck/internal/retry"
)

const hostColumns = `id, domain, target_host, target_port, target_proto,
	ssl_enabled, force_ssl, http2_support, http3_support, enabled,
	cache_enabled, ignore_invalid_cert, advanced_config,
	basic_auth_enabled, basic_auth_user, basic_auth_hash,
	created_at, updated_at`

// GetAllProxyHosts retrieves every proxy host ordered by creation time.
func GetAllProxyHosts(d *sql.DB) ([]models.ProxyHost, error) {
	rows, err := d.Query("SELECT " + hostColumns + " FROM proxy_hosts ORDER BY created_at, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hosts []models.ProxyHost
	for rows.Next() {
		h, err := scanProxyHost(rows)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, *h)
	}
	return hosts, rows.Err()
}

// GetProxyHostByID retrieves a proxy host by id, or nil if absent.
func GetProxyHostByID(d *sql.DB, id int64) (*models.ProxyHost, error) {
	row := d.QueryRow("SELECT "+hostColumns+" FROM proxy_hosts WHERE id = ?", id)
	h, err := scanProxyHost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

// CreateProxyHost inserts a new proxy host and returns its id. CreatedAt
// and UpdatedAt are assigned here.
func CreateProxyHost(ctx context.Context, d *sql.DB, h *models.ProxyHost) (int64, error) {
	now := time.Now().Unix()
	result, err := execRetry(ctx, d,
		`INSERT INTO proxy_hosts (domain, target_host, target_port, target_proto,
			ssl_enabled, force_ssl, http2_support, http3_support, enabled,
			cache_enabled, ignore_invalid_cert, advanced_config,
			basic_auth_enabled, basic_auth_user, basic_auth_hash,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.Domain, h.TargetHost, h.TargetPort, h.TargetProto,
		boolInt(h.SSLEnabled), boolInt(h.ForceSSL), boolInt(h.HTTP2Support),
		boolInt(h.HTTP3Support), boolInt(h.Enabled), boolInt(h.CacheEnabled),
		boolInt(h.IgnoreInvalidCert), h.AdvancedConfig,
		boolInt(h.BasicAuthEnabled), h.BasicAuthUser, h.BasicAuthHash,
		now, now,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// UpdateProxyHost applies a partial update to a proxy host. Nil fields in
// upd are left unchanged; updated_at is always refreshed.
func UpdateProxyHost(ctx context.Context, d *sql.DB, id int64, upd models.HostUpdate) error {
	var sets []string
	var args []any

	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if upd.Domain != nil {
		add("domain", *upd.Domain)
	}
	if upd.TargetHost != nil {
		add("target_host", *upd.TargetHost)
	}
	if upd.TargetPort != nil {
		add("target_port", *upd.TargetPort)
	}
	if upd.TargetProto != nil {
		add("target_proto", *upd.TargetProto)
	}
	if upd.SSLEnabled != nil {
		add("ssl_enabled", boolInt(*upd.SSLEnabled))
	}
	if upd.ForceSSL != nil {
		add("force_ssl", boolInt(*upd.ForceSSL))
	}
	if upd.HTTP2Support != nil {
		add("http2_support", boolInt(*upd.HTTP2Support))
	}
	if upd.HTTP3Support != nil {
		add("http3_support", boolInt(*upd.HTTP3Support))
	}
	if upd.Enabled != nil {
		add("enabled", boolInt(*upd.Enabled))
	}
	if upd.CacheEnabled != nil {
		add("cache_enabled", boolInt(*upd.CacheEnabled))
	}
	if upd.IgnoreInvalidCert != nil {
		add("ignore_invalid_cert", boolInt(*upd.IgnoreInvalidCert))
	}
	if upd.AdvancedConfig != nil {
		add("advanced_config", *upd.AdvancedConfig)
	}
	if upd.BasicAuthEnabled != nil {
		add("basic_auth_enabled", boolInt(*upd.BasicAuthEnabled))
		if !*upd.BasicAuthEnabled {
			sets = append(sets, "basic_auth_user = NULL", "basic_auth_hash = NULL")
		}
	}
	if upd.BasicAuthUser != nil {
		add("basic_auth_user", *upd.BasicAuthUser)
	}
	if upd.BasicAuthHash != nil {
		add("basic_auth_hash", *upd.BasicAuthHash)
	}

	if len(sets) == 0 {
		return nil
	}
	add("updated_at", time.Now().Unix())
	args = append(args, id)

	result, err := execRetry(ctx, d,
		"UPDATE proxy_hosts SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("proxy host %d not found", id)
	}
	return nil
}

// DeleteProxyHost removes a proxy host by id.
func DeleteProxyHost(ctx context.Context, d *sql.DB, id int64) error {
	result, err := execRetry(ctx, d, "DELETE FROM proxy_hosts WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("proxy host %d not found", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProxyHost(row rowScanner) (*models.ProxyHost, error) {
	var h models.ProxyHost
	var sslEnabled, forceSSL, http2, http3, enabled, cacheEnabled, ignoreCert, basicAuth int
	var advanced, authUser, authHash sql.NullString

	err := row.Scan(&h.ID, &h.Domain, &h.TargetHost, &h.TargetPort, &h.TargetProto,
		&sslEnabled, &forceSSL, &http2, &http3, &enabled,
		&cacheEnabled, &ignoreCert, &advanced,
		&basicAuth, &authUser, &authHash,
		&h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}

	h.SSLEnabled = sslEnabled != 0
	h.ForceSSL = forceSSL != 0
	h.HTTP2Support = http2 != 0
	h.HTTP3Support = http3 != 0
	h.Enabled = enabled != 0
	h.CacheEnabled = cacheEnabled != 0
	h.IgnoreInvalidCert = ignoreCert != 0
	h.BasicAuthEnabled = basicAuth != 0
	if advanced.Valid && advanced.String != "" {
		h.AdvancedConfig = &advanced.String
	}
	h.BasicAuthUser = normalizeCredential(authUser)
	h.BasicAuthHash = normalizeCredential(authHash)
	return &h, nil
}

// normalizeCredential maps absent credentials to strict nil. Rows imported
// from the previous console stored an empty JSON object (or the literal
// "null") where NULL was meant; letting that leak would make a host look
// like it has basic auth configured.
func normalizeCredential(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	switch strings.TrimSpace(v.String) {
	case "", "{}", "null":
		return nil
	}
	return &v.String
}

// execRetry runs a mutation with the default retry policy, retrying only
// lock contention errors. SQLite reports those before the statement
// applies, so a retry cannot duplicate a write.
func execRetry(ctx context.Context, d *sql.DB, query string, args ...any) (sql.Result, error) {
	p := retry.DefaultPolicy()
	p.Retryable = isLockError
	return retry.Do(ctx, p, func(ctx context.Context) (sql.Result, error) {
		return d.ExecContext(ctx, query, args...)
	})
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
