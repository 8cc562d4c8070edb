// Package api defines the wire types shared by the server and client.
package api

// HostRequest creates or replaces a proxy host.
type HostRequest struct {
	Domain            string  `json:"domain"`
	TargetHost        string  `json:"target_host"`
	TargetPort        int     `json:"target_port"`
	TargetProto       string  `json:"target_proto"`
	SSLEnabled        bool    `json:"ssl_enabled"`
	ForceSSL          bool    `json:"force_ssl"`
	HTTP2Support      bool    `json:"http2_support"`
	HTTP3Support      bool    `json:"http3_support"`
	Enabled           *bool   `json:"enabled,omitempty"`
	CacheEnabled      bool    `json:"cache_enabled"`
	IgnoreInvalidCert bool    `json:"ignore_invalid_cert"`
	AdvancedConfig    *string `json:"advanced_config,omitempty"`
	BasicAuthEnabled  bool    `json:"basic_auth_enabled"`
	BasicAuthUser     string  `json:"basic_auth_user,omitempty"`
	BasicAuthPassword string  `json:"basic_auth_password,omitempty"`
}

// HostPatchRequest partially updates a proxy host. Absent fields are left
// unchanged.
type HostPatchRequest struct {
	Domain            *string `json:"domain,omitempty"`
	TargetHost        *string `json:"target_host,omitempty"`
	TargetPort        *int    `json:"target_port,omitempty"`
	TargetProto       *string `json:"target_proto,omitempty"`
	SSLEnabled        *bool   `json:"ssl_enabled,omitempty"`
	ForceSSL          *bool   `json:"force_ssl,omitempty"`
	HTTP2Support      *bool   `json:"http2_support,omitempty"`
	HTTP3Support      *bool   `json:"http3_support,omitempty"`
	Enabled           *bool   `json:"enabled,omitempty"`
	CacheEnabled      *bool   `json:"cache_enabled,omitempty"`
	IgnoreInvalidCert *bool   `json:"ignore_invalid_cert,omitempty"`
	AdvancedConfig    *string `json:"advanced_config,omitempty"`
	BasicAuthEnabled  *bool   `json:"basic_auth_enabled,omitempty"`
	BasicAuthUser     *string `json:"basic_auth_user,omitempty"`
	BasicAuthPassword *string `json:"basic_auth_password,omitempty"`
}

// HostResponse is a proxy host as returned by the API. Credential hashes
// never leave the server.
type HostResponse struct {
	ID                int64              `json:"id"`
	Domain            string             `json:"domain"`
	TargetHost        string             `json:"target_host"`
	TargetPort        int                `json:"target_port"`
	TargetProto       string             `json:"target_proto"`
	SSLEnabled        bool               `json:"ssl_enabled"`
	ForceSSL          bool               `json:"force_ssl"`
	HTTP2Support      bool               `json:"http2_support"`
	HTTP3Support      bool               `json:"http3_support"`
	Enabled           bool               `json:"enabled"`
	CacheEnabled      bool               `json:"cache_enabled"`
	IgnoreInvalidCert bool               `json:"ignore_invalid_cert"`
	AdvancedConfig    *string            `json:"advanced_config,omitempty"`
	BasicAuthEnabled  bool               `json:"basic_auth_enabled"`
	BasicAuthUser     *string            `json:"basic_auth_user,omitempty"`
	CreatedAt         string             `json:"created_at"`
	UpdatedAt         string             `json:"updated_at"`
	Certificate       *CertificateStatus `json:"certificate,omitempty"`
}

// CertificateStatus mirrors the prober's per-domain result.
type CertificateStatus struct {
	Domain        string  `json:"domain"`
	IsValid       bool    `json:"is_valid"`
	Expiry        *string `json:"expiry,omitempty"`
	Issuer        *string `json:"issuer,omitempty"`
	DaysRemaining *int    `json:"days_remaining,omitempty"`
	Error         *string `json:"error,omitempty"`
}

// ListHostsResponse wraps the host list.
type ListHostsResponse struct {
	Hosts []HostResponse `json:"hosts"`
}

// EngineStatusResponse reports engine liveness.
type EngineStatusResponse struct {
	Running       bool   `json:"running"`
	Version       string `json:"version,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds,omitempty"`
	Error         string `json:"error,omitempty"`
}

// AuditEntry is an audit record with its actor joined in.
type AuditEntry struct {
	ID         int64   `json:"id"`
	ActionType string  `json:"action_type"`
	EntityType string  `json:"entity_type"`
	EntityID   *int64  `json:"entity_id,omitempty"`
	Changes    string  `json:"changes"`
	UserName   *string `json:"user_name,omitempty"`
	UserEmail  *string `json:"user_email,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

// ListAuditResponse wraps the audit trail listing.
type ListAuditResponse struct {
	Entries []AuditEntry `json:"entries"`
}

// ErrorResponse carries an API error message.
type ErrorResponse struct {
	Error string `json:"error"`
}
