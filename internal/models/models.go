// Package models defines the database entity types.
package models

// Target protocols accepted for a proxy host upstream.
const (
	ProtoHTTP    = "http"
	ProtoHTTPS   = "https"
	ProtoFastCGI = "fastcgi"
)

// Audit action types.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionToggle = "toggle"
)

// EntityProxyHost tags audit entries for proxy host records.
const EntityProxyHost = "proxy_host"

// ProxyHost represents a proxy host record in the database.
//
// BasicAuthUser and BasicAuthHash are non-nil iff BasicAuthEnabled is true;
// the store normalizes legacy sentinel values so callers can rely on strict
// nil for absent credentials.
type ProxyHost struct {
	ID                int64
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
	BasicAuthUser     *string
	BasicAuthHash     *string
	CreatedAt         int64
	UpdatedAt         int64
}

// HostUpdate carries a partial update to a proxy host. Nil fields are left
// unchanged.
type HostUpdate struct {
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
	BasicAuthHash     *string
}

// AuditLog represents an administrative action record. Immutable once
// written. A nil EntityID denotes a system-level action; a nil UserID
// denotes an automated actor.
type AuditLog struct {
	ID         int64
	ActionType string
	EntityType string
	EntityID   *int64
	Changes    string
	UserID     *int64
	CreatedAt  int64
}

// AuditLogView is an audit entry joined with its actor for display.
type AuditLogView struct {
	AuditLog
	UserName  *string
	UserEmail *string
}

// User represents an operator account.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    int64
}

// CertificateStatus is the derived TLS state of a single domain. It is
// recomputed on demand and never cached across requests.
type CertificateStatus struct {
	Domain        string  `json:"domain"`
	IsValid       bool    `json:"is_valid"`
	Expiry        *int64  `json:"expiry,omitempty"`
	Issuer        *string `json:"issuer,omitempty"`
	DaysRemaining *int    `json:"days_remaining,omitempty"`
	Error         *string `json:"error,omitempty"`
}

// APIKey represents an API key record bound to an operator account.
type APIKey struct {
	ID        int64
	UserID    int64
	KeyPrefix string
	KeyHash   []byte
	CreatedAt int64
	RevokedAt *int64
}
