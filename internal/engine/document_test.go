package engine

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rkershaw/proxydeck/internal/models"
)

func strPtr(s string) *string { return &s }

func TestBuildDocumentBasicRoute(t *testing.T) {
	hosts := []models.ProxyHost{{
		ID:          1,
		Domain:      "a.example.com",
		TargetHost:  "10.0.0.5",
		TargetPort:  8080,
		TargetProto: models.ProtoHTTP,
		SSLEnabled:  true,
		ForceSSL:    true,
		Enabled:     true,
	}}

	doc := BuildDocument(hosts)
	if doc.Version != 1 {
		t.Errorf("Version = %d, want 1", doc.Version)
	}
	if len(doc.Routes) != 1 {
		t.Fatalf("len(Routes) = %d, want 1", len(doc.Routes))
	}

	r := doc.Routes[0]
	if r.Domain != "a.example.com" {
		t.Errorf("Domain = %q", r.Domain)
	}
	if r.Upstream.Scheme != "http" || r.Upstream.Host != "10.0.0.5" || r.Upstream.Port != 8080 {
		t.Errorf("Upstream = %+v, want http://10.0.0.5:8080", r.Upstream)
	}
	if r.TLS == nil {
		t.Fatal("TLS = nil for SSL-enabled host")
	}
	if !r.TLS.ForceRedirect {
		t.Error("TLS.ForceRedirect = false")
	}
	if r.BasicAuth != nil {
		t.Error("BasicAuth non-nil for host without basic auth")
	}
}

func TestBuildDocumentSkipsDisabledHosts(t *testing.T) {
	hosts := []models.ProxyHost{
		{Domain: "on.example.com", TargetHost: "10.0.0.1", TargetPort: 80, TargetProto: "http", Enabled: true},
		{Domain: "off.example.com", TargetHost: "10.0.0.2", TargetPort: 80, TargetProto: "http", Enabled: false},
	}

	doc := BuildDocument(hosts)
	if len(doc.Routes) != 1 {
		t.Fatalf("len(Routes) = %d, want 1", len(doc.Routes))
	}
	if doc.Routes[0].Domain != "on.example.com" {
		t.Errorf("Routes[0].Domain = %q, disabled host leaked", doc.Routes[0].Domain)
	}
}

func TestBuildDocumentEmptyInput(t *testing.T) {
	doc := BuildDocument(nil)
	out, err := doc.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	// Routes must serialize as [], not null: an empty push clears the
	// engine rather than being rejected.
	want := `{"version":1,"routes":[]}`
	if string(out) != want {
		t.Errorf("Marshal() = %s, want %s", out, want)
	}
}

func TestBuildDocumentPreservesOrder(t *testing.T) {
	hosts := []models.ProxyHost{
		{Domain: "z.example.com", TargetHost: "h", TargetPort: 1, TargetProto: "http", Enabled: true},
		{Domain: "a.example.com", TargetHost: "h", TargetPort: 2, TargetProto: "http", Enabled: true},
		{Domain: "m.example.com", TargetHost: "h", TargetPort: 3, TargetProto: "http", Enabled: true},
	}

	doc := BuildDocument(hosts)
	want := []string{"z.example.com", "a.example.com", "m.example.com"}
	for i, domain := range want {
		if doc.Routes[i].Domain != domain {
			t.Errorf("Routes[%d].Domain = %q, want %q", i, doc.Routes[i].Domain, domain)
		}
	}
}

func TestBuildDocumentBasicAuthRequiresCredentials(t *testing.T) {
	// The enabled flag alone is not enough; both credential fields must be
	// present.
	hosts := []models.ProxyHost{{
		Domain: "x.example.com", TargetHost: "h", TargetPort: 1, TargetProto: "http",
		Enabled: true, BasicAuthEnabled: true,
	}}
	if doc := BuildDocument(hosts); doc.Routes[0].BasicAuth != nil {
		t.Error("BasicAuth non-nil without credentials")
	}

	hosts[0].BasicAuthUser = strPtr("ops")
	hosts[0].BasicAuthHash = strPtr("$2a$10$h")
	doc := BuildDocument(hosts)
	if doc.Routes[0].BasicAuth == nil {
		t.Fatal("BasicAuth nil with full credentials")
	}
	if doc.Routes[0].BasicAuth.Username != "ops" {
		t.Errorf("Username = %q, want ops", doc.Routes[0].BasicAuth.Username)
	}
}

func TestBuildDocumentAdvancedConfigPassthrough(t *testing.T) {
	hosts := []models.ProxyHost{{
		Domain: "x.example.com", TargetHost: "h", TargetPort: 1, TargetProto: "http",
		Enabled: true, AdvancedConfig: strPtr("proxy_buffering off;"),
	}}
	doc := BuildDocument(hosts)
	if doc.Routes[0].Advanced != "proxy_buffering off;" {
		t.Errorf("Advanced = %q", doc.Routes[0].Advanced)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	hosts := []models.ProxyHost{
		{Domain: "a.example.com", TargetHost: "10.0.0.5", TargetPort: 8080, TargetProto: "https",
			Enabled: true, SSLEnabled: true, HTTP2Support: true, CacheEnabled: true},
		{Domain: "b.example.com", TargetHost: "10.0.0.6", TargetPort: 3000, TargetProto: "http",
			Enabled: true, BasicAuthEnabled: true, BasicAuthUser: strPtr("u"), BasicAuthHash: strPtr("h")},
	}

	first, err := BuildDocument(hosts).Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	second, err := BuildDocument(hosts).Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("identical input produced different bytes")
	}

	// Sanity: the output is well-formed JSON with both routes.
	var decoded Document
	if err := json.Unmarshal(first, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(decoded.Routes) != 2 {
		t.Errorf("len(Routes) = %d, want 2", len(decoded.Routes))
	}
}
