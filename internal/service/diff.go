package service

import (
	"encoding/json"

	"github.com/rkershaw/proxydeck/internal/models"
)

// fieldChange is a before/after pair in an audit changeset.
type fieldChange struct {
	From any `json:"from"`
	To   any `json:"to"`
}

func change(from, to any) fieldChange { return fieldChange{From: from, To: to} }

// diffHosts produces the field-level changeset between two host records.
// Credential hashes never appear in the trail; a changed hash is recorded
// as the flat marker "changed".
func diffHosts(prior, updated *models.ProxyHost) map[string]any {
	changes := make(map[string]any)

	if prior.Domain != updated.Domain {
		changes["domain"] = change(prior.Domain, updated.Domain)
	}
	if prior.TargetHost != updated.TargetHost {
		changes["target_host"] = change(prior.TargetHost, updated.TargetHost)
	}
	if prior.TargetPort != updated.TargetPort {
		changes["target_port"] = change(prior.TargetPort, updated.TargetPort)
	}
	if prior.TargetProto != updated.TargetProto {
		changes["target_proto"] = change(prior.TargetProto, updated.TargetProto)
	}
	if prior.SSLEnabled != updated.SSLEnabled {
		changes["ssl_enabled"] = change(prior.SSLEnabled, updated.SSLEnabled)
	}
	if prior.ForceSSL != updated.ForceSSL {
		changes["force_ssl"] = change(prior.ForceSSL, updated.ForceSSL)
	}
	if prior.HTTP2Support != updated.HTTP2Support {
		changes["http2_support"] = change(prior.HTTP2Support, updated.HTTP2Support)
	}
	if prior.HTTP3Support != updated.HTTP3Support {
		changes["http3_support"] = change(prior.HTTP3Support, updated.HTTP3Support)
	}
	if prior.Enabled != updated.Enabled {
		changes["enabled"] = change(prior.Enabled, updated.Enabled)
	}
	if prior.CacheEnabled != updated.CacheEnabled {
		changes["cache_enabled"] = change(prior.CacheEnabled, updated.CacheEnabled)
	}
	if prior.IgnoreInvalidCert != updated.IgnoreInvalidCert {
		changes["ignore_invalid_cert"] = change(prior.IgnoreInvalidCert, updated.IgnoreInvalidCert)
	}
	if !strPtrEqual(prior.AdvancedConfig, updated.AdvancedConfig) {
		changes["advanced_config"] = change(strPtrVal(prior.AdvancedConfig), strPtrVal(updated.AdvancedConfig))
	}
	if prior.BasicAuthEnabled != updated.BasicAuthEnabled {
		changes["basic_auth_enabled"] = change(prior.BasicAuthEnabled, updated.BasicAuthEnabled)
	}
	if !strPtrEqual(prior.BasicAuthUser, updated.BasicAuthUser) {
		changes["basic_auth_user"] = change(strPtrVal(prior.BasicAuthUser), strPtrVal(updated.BasicAuthUser))
	}
	if !strPtrEqual(prior.BasicAuthHash, updated.BasicAuthHash) {
		changes["basic_auth_password"] = "changed"
	}

	return changes
}

// createChanges snapshots a new record's fields as a flat changeset.
func createChanges(h *models.ProxyHost) map[string]any {
	changes := map[string]any{
		"domain":       h.Domain,
		"target_host":  h.TargetHost,
		"target_port":  h.TargetPort,
		"target_proto": h.TargetProto,
		"ssl_enabled":  h.SSLEnabled,
		"enabled":      h.Enabled,
	}
	if h.ForceSSL {
		changes["force_ssl"] = true
	}
	if h.HTTP2Support {
		changes["http2_support"] = true
	}
	if h.HTTP3Support {
		changes["http3_support"] = true
	}
	if h.CacheEnabled {
		changes["cache_enabled"] = true
	}
	if h.IgnoreInvalidCert {
		changes["ignore_invalid_cert"] = true
	}
	if h.BasicAuthEnabled {
		changes["basic_auth_enabled"] = true
		changes["basic_auth_user"] = strPtrVal(h.BasicAuthUser)
	}
	return changes
}

func marshalChanges(changes map[string]any) string {
	b, err := json.Marshal(changes)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strPtrVal(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
