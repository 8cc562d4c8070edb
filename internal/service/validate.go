package service

import (
	"fmt"
	"strings"

	"github.com/rkershaw/proxydeck/internal/models"
)

// ValidationError reports malformed host data. It is returned before any
// store or engine interaction happens and is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func validateHostInput(in HostInput) error {
	if !validDomain(in.Domain) {
		return &ValidationError{Field: "domain", Message: "must be a valid DNS name"}
	}
	if in.TargetHost == "" {
		return &ValidationError{Field: "target_host", Message: "must not be empty"}
	}
	if in.TargetPort < 1 || in.TargetPort > 65535 {
		return &ValidationError{Field: "target_port", Message: "must be between 1 and 65535"}
	}
	if !validProto(in.TargetProto) {
		return &ValidationError{Field: "target_proto", Message: "must be http, https, or fastcgi"}
	}
	if in.BasicAuthEnabled {
		if in.BasicAuthUser == "" {
			return &ValidationError{Field: "basic_auth_user", Message: "required when basic auth is enabled"}
		}
		if in.BasicAuthPassword == "" {
			return &ValidationError{Field: "basic_auth_password", Message: "required when basic auth is enabled"}
		}
	}
	return nil
}

// validateHostUpdate checks the record the update would produce, so the
// basic-auth invariant (username/hash non-null iff enabled) holds after
// merging.
func validateHostUpdate(prior *models.ProxyHost, upd models.HostUpdate) error {
	if upd.Domain != nil && !validDomain(*upd.Domain) {
		return &ValidationError{Field: "domain", Message: "must be a valid DNS name"}
	}
	if upd.TargetHost != nil && *upd.TargetHost == "" {
		return &ValidationError{Field: "target_host", Message: "must not be empty"}
	}
	if upd.TargetPort != nil && (*upd.TargetPort < 1 || *upd.TargetPort > 65535) {
		return &ValidationError{Field: "target_port", Message: "must be between 1 and 65535"}
	}
	if upd.TargetProto != nil && !validProto(*upd.TargetProto) {
		return &ValidationError{Field: "target_proto", Message: "must be http, https, or fastcgi"}
	}

	enabled := prior.BasicAuthEnabled
	if upd.BasicAuthEnabled != nil {
		enabled = *upd.BasicAuthEnabled
	}
	if enabled {
		user := prior.BasicAuthUser
		if upd.BasicAuthUser != nil {
			user = upd.BasicAuthUser
		}
		hash := prior.BasicAuthHash
		if upd.BasicAuthHash != nil {
			hash = upd.BasicAuthHash
		}
		if user == nil || *user == "" {
			return &ValidationError{Field: "basic_auth_user", Message: "required when basic auth is enabled"}
		}
		if hash == nil || *hash == "" {
			return &ValidationError{Field: "basic_auth_password", Message: "required when basic auth is enabled"}
		}
	}
	return nil
}

func validProto(p string) bool {
	switch p {
	case models.ProtoHTTP, models.ProtoHTTPS, models.ProtoFastCGI:
		return true
	}
	return false
}

// validDomain checks DNS name syntax: dot-separated labels of letters,
// digits, and interior hyphens, at most 253 characters total.
func validDomain(domain string) bool {
	if len(domain) == 0 || len(domain) > 253 {
		return false
	}
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if len(label) == 0 || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, c := range label {
			if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-') {
				return false
			}
		}
	}
	return true
}
