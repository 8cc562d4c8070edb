package certs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rkershaw/proxydeck/internal/engine"
	"github.com/rkershaw/proxydeck/internal/models"
	"go.uber.org/zap"
)

type fakeAdminAPI struct {
	mu    sync.Mutex
	calls []string
	fn    func(domain string) (*engine.CertInfo, error)
}

func (f *fakeAdminAPI) CertificateInfo(ctx context.Context, domain string) (*engine.CertInfo, error) {
	f.mu.Lock()
	f.calls = append(f.calls, domain)
	f.mu.Unlock()
	return f.fn(domain)
}

func int64Ptr(v int64) *int64 { return &v }
func strPtr(s string) *string { return &s }

func TestStatusValidCertificate(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	expiry := now.Add(30 * 24 * time.Hour).Unix()

	api := &fakeAdminAPI{fn: func(domain string) (*engine.CertInfo, error) {
		return &engine.CertInfo{Valid: true, NotAfter: int64Ptr(expiry), Issuer: strPtr("R11")}, nil
	}}
	p := NewProber(api, zap.NewNop(), nil)
	p.now = func() time.Time { return now }

	st := p.Status(context.Background(), "a.example.com")
	if !st.IsValid {
		t.Error("IsValid = false")
	}
	if st.Error != nil {
		t.Errorf("Error = %q, want nil", *st.Error)
	}
	if st.DaysRemaining == nil || *st.DaysRemaining != 30 {
		t.Errorf("DaysRemaining = %v, want 30", st.DaysRemaining)
	}
	if st.Issuer == nil || *st.Issuer != "R11" {
		t.Errorf("Issuer = %v, want R11", st.Issuer)
	}
}

func TestStatusProbeFailureReportedInline(t *testing.T) {
	api := &fakeAdminAPI{fn: func(domain string) (*engine.CertInfo, error) {
		return nil, errors.New("connection refused")
	}}
	p := NewProber(api, zap.NewNop(), nil)

	st := p.Status(context.Background(), "a.example.com")
	if st.Error == nil {
		t.Fatal("Error = nil for failed probe")
	}
	if st.IsValid {
		t.Error("IsValid = true for failed probe")
	}
	if st.Domain != "a.example.com" {
		t.Errorf("Domain = %q", st.Domain)
	}
}

func TestStatusAllSkipsNonSSLHosts(t *testing.T) {
	api := &fakeAdminAPI{fn: func(domain string) (*engine.CertInfo, error) {
		return &engine.CertInfo{Valid: true}, nil
	}}
	p := NewProber(api, zap.NewNop(), nil)

	hosts := []models.ProxyHost{
		{ID: 1, Domain: "ssl.example.com", SSLEnabled: true},
		{ID: 2, Domain: "plain.example.com", SSLEnabled: false},
	}
	statuses := p.StatusAll(context.Background(), hosts)
	if len(statuses) != 1 {
		t.Fatalf("len(statuses) = %d, want 1", len(statuses))
	}
	if _, ok := statuses[2]; ok {
		t.Error("non-SSL host present in result")
	}
	if st, ok := statuses[1]; !ok || !st.IsValid {
		t.Errorf("statuses[1] = %v, want valid status", st)
	}
	if len(api.calls) != 1 {
		t.Errorf("probed %d domains, want 1", len(api.calls))
	}
}

func TestStatusAllOneFailureDoesNotPoisonRest(t *testing.T) {
	api := &fakeAdminAPI{fn: func(domain string) (*engine.CertInfo, error) {
		if domain == "broken.example.com" {
			return nil, errors.New("timeout")
		}
		return &engine.CertInfo{Valid: true}, nil
	}}
	p := NewProber(api, zap.NewNop(), nil)

	hosts := []models.ProxyHost{
		{ID: 1, Domain: "ok.example.com", SSLEnabled: true},
		{ID: 2, Domain: "broken.example.com", SSLEnabled: true},
		{ID: 3, Domain: "fine.example.com", SSLEnabled: true},
	}
	statuses := p.StatusAll(context.Background(), hosts)
	if len(statuses) != 3 {
		t.Fatalf("len(statuses) = %d, want 3", len(statuses))
	}
	if statuses[2].Error == nil {
		t.Error("broken host has no Error")
	}
	if !statuses[1].IsValid || !statuses[3].IsValid {
		t.Error("healthy hosts affected by the broken one")
	}
}

func TestStatusAllEmptyInput(t *testing.T) {
	api := &fakeAdminAPI{fn: func(domain string) (*engine.CertInfo, error) {
		t.Fatal("probe called with no SSL hosts")
		return nil, nil
	}}
	p := NewProber(api, zap.NewNop(), nil)

	statuses := p.StatusAll(context.Background(), []models.ProxyHost{{ID: 1, Domain: "x", SSLEnabled: false}})
	if len(statuses) != 0 {
		t.Errorf("len(statuses) = %d, want 0", len(statuses))
	}
}

func TestStatusAllBoundsConcurrency(t *testing.T) {
	var inFlight, peak int
	var mu sync.Mutex

	api := &fakeAdminAPI{fn: func(domain string) (*engine.CertInfo, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()
		time.Sleep(time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return &engine.CertInfo{Valid: true}, nil
	}}
	p := NewProber(api, zap.NewNop(), nil)
	p.width = 2

	var hosts []models.ProxyHost
	for i := int64(1); i <= 10; i++ {
		hosts = append(hosts, models.ProxyHost{ID: i, Domain: "x.example.com", SSLEnabled: true})
	}
	p.StatusAll(context.Background(), hosts)

	if peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}
