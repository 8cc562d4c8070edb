package service

import (
	"strings"
	"testing"

	"github.com/rkershaw/proxydeck/internal/models"
)

func TestValidDomain(t *testing.T) {
	cases := []struct {
		domain string
		want   bool
	}{
		{"example.com", true},
		{"a.b.c.example.com", true},
		{"xn--nxasmq6b.example.com", true},
		{"host-1.example.com", true},
		{"EXAMPLE.COM", true},
		{"", false},
		{"example", false},
		{"-bad.example.com", false},
		{"bad-.example.com", false},
		{"bad..example.com", false},
		{"under_score.example.com", false},
		{"spa ce.example.com", false},
		{strings.Repeat("a", 64) + ".example.com", false},
		{strings.Repeat("a.", 130) + "com", false},
	}
	for _, tc := range cases {
		if got := validDomain(tc.domain); got != tc.want {
			t.Errorf("validDomain(%q) = %t, want %t", tc.domain, got, tc.want)
		}
	}
}

func TestValidateHostInput(t *testing.T) {
	base := HostInput{
		Domain:      "app.example.com",
		TargetHost:  "10.0.0.5",
		TargetPort:  8080,
		TargetProto: models.ProtoHTTP,
	}

	cases := []struct {
		name      string
		mutate    func(*HostInput)
		wantField string
	}{
		{"valid", func(in *HostInput) {}, ""},
		{"valid https", func(in *HostInput) { in.TargetProto = models.ProtoHTTPS }, ""},
		{"valid fastcgi", func(in *HostInput) { in.TargetProto = models.ProtoFastCGI }, ""},
		{"bad domain", func(in *HostInput) { in.Domain = "nodots" }, "domain"},
		{"empty target", func(in *HostInput) { in.TargetHost = "" }, "target_host"},
		{"port zero", func(in *HostInput) { in.TargetPort = 0 }, "target_port"},
		{"port too high", func(in *HostInput) { in.TargetPort = 70000 }, "target_port"},
		{"bad proto", func(in *HostInput) { in.TargetProto = "spdy" }, "target_proto"},
		{"basic auth without user", func(in *HostInput) {
			in.BasicAuthEnabled = true
			in.BasicAuthPassword = "pw"
		}, "basic_auth_user"},
		{"basic auth without password", func(in *HostInput) {
			in.BasicAuthEnabled = true
			in.BasicAuthUser = "ops"
		}, "basic_auth_password"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.mutate(&in)
			err := validateHostInput(in)
			if tc.wantField == "" {
				if err != nil {
					t.Errorf("validateHostInput() error = %v, want nil", err)
				}
				return
			}
			verr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("validateHostInput() error = %v, want *ValidationError", err)
			}
			if verr.Field != tc.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tc.wantField)
			}
		})
	}
}

func TestValidateHostUpdateMergedInvariant(t *testing.T) {
	user := "ops"
	hash := "$2a$10$h"
	withAuth := &models.ProxyHost{
		Domain: "app.example.com", TargetHost: "h", TargetPort: 80, TargetProto: "http",
		BasicAuthEnabled: true, BasicAuthUser: &user, BasicAuthHash: &hash,
	}
	withoutAuth := &models.ProxyHost{
		Domain: "app.example.com", TargetHost: "h", TargetPort: 80, TargetProto: "http",
	}

	enable := true
	if err := validateHostUpdate(withoutAuth, models.HostUpdate{BasicAuthEnabled: &enable}); err == nil {
		t.Error("enabling basic auth without credentials passed validation")
	}

	// Enabling with credentials in the same update is fine.
	if err := validateHostUpdate(withoutAuth, models.HostUpdate{
		BasicAuthEnabled: &enable, BasicAuthUser: &user, BasicAuthHash: &hash,
	}); err != nil {
		t.Errorf("validateHostUpdate() error = %v, want nil", err)
	}

	// An update that leaves existing credentials alone is fine.
	port := 9090
	if err := validateHostUpdate(withAuth, models.HostUpdate{TargetPort: &port}); err != nil {
		t.Errorf("validateHostUpdate() error = %v, want nil", err)
	}

	badDomain := "nodots"
	if err := validateHostUpdate(withAuth, models.HostUpdate{Domain: &badDomain}); err == nil {
		t.Error("bad domain passed update validation")
	}
}
