package syncer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rkershaw/proxydeck/internal/db"
	"github.com/rkershaw/proxydeck/internal/engine"
	"github.com/rkershaw/proxydeck/internal/models"
	"github.com/rkershaw/proxydeck/internal/retry"
	"go.uber.org/zap"
)

type fakeEngine struct {
	loads     [][]byte
	loadErrs  []error
	status    *engine.Status
	statusErr error
}

func (f *fakeEngine) Load(ctx context.Context, doc []byte) error {
	f.loads = append(f.loads, doc)
	if len(f.loadErrs) > 0 {
		err := f.loadErrs[0]
		f.loadErrs = f.loadErrs[1:]
		return err
	}
	return nil
}

func (f *fakeEngine) Status(ctx context.Context) (*engine.Status, error) {
	return f.status, f.statusErr
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func instantPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	p.Retryable = engine.IsRetryable
	p.Sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return p
}

func createHost(t *testing.T, d *sql.DB, domain string, enabled bool) {
	t.Helper()
	_, err := db.CreateProxyHost(context.Background(), d, &models.ProxyHost{
		Domain:      domain,
		TargetHost:  "10.0.0.5",
		TargetPort:  8080,
		TargetProto: models.ProtoHTTP,
		Enabled:     enabled,
	})
	if err != nil {
		t.Fatalf("create host: %v", err)
	}
}

func TestReloadPushesFullDocument(t *testing.T) {
	d := openTestDB(t)
	createHost(t, d, "a.example.com", true)
	createHost(t, d, "b.example.com", true)
	createHost(t, d, "off.example.com", false)

	fake := &fakeEngine{}
	s := New(d, fake, zap.NewNop(), nil)
	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	if len(fake.loads) != 1 {
		t.Fatalf("Load called %d times, want 1", len(fake.loads))
	}
	var doc engine.Document
	if err := json.Unmarshal(fake.loads[0], &doc); err != nil {
		t.Fatalf("unmarshal pushed document: %v", err)
	}
	// The push is a full replace of every enabled host, not a diff.
	if len(doc.Routes) != 2 {
		t.Errorf("routes = %d, want 2", len(doc.Routes))
	}
	if doc.Routes[0].Domain != "a.example.com" || doc.Routes[1].Domain != "b.example.com" {
		t.Errorf("routes = %v, want store order", doc.Routes)
	}
}

func TestReloadEmptyStorePushesEmptyRoutes(t *testing.T) {
	d := openTestDB(t)
	fake := &fakeEngine{}
	s := New(d, fake, zap.NewNop(), nil)

	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if string(fake.loads[0]) != `{"version":1,"routes":[]}` {
		t.Errorf("pushed %s, want empty routes document", fake.loads[0])
	}
}

func TestReloadRetriesTransientFailure(t *testing.T) {
	d := openTestDB(t)
	createHost(t, d, "a.example.com", true)

	fake := &fakeEngine{loadErrs: []error{
		&engine.APIError{StatusCode: 503, Body: "restarting"},
		&engine.APIError{StatusCode: 503, Body: "restarting"},
	}}
	s := New(d, fake, zap.NewNop(), nil)
	s.SetRetryPolicy(instantPolicy())

	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v after transient failures", err)
	}
	if len(fake.loads) != 3 {
		t.Errorf("Load called %d times, want 3", len(fake.loads))
	}
	// Every attempt pushes the same full document.
	if string(fake.loads[0]) != string(fake.loads[2]) {
		t.Error("retry pushed different bytes")
	}
}

func TestReloadGivesUpAfterMaxAttempts(t *testing.T) {
	d := openTestDB(t)
	createHost(t, d, "a.example.com", true)

	fake := &fakeEngine{loadErrs: []error{
		&engine.APIError{StatusCode: 500},
		&engine.APIError{StatusCode: 500},
		&engine.APIError{StatusCode: 500},
		&engine.APIError{StatusCode: 500},
	}}
	s := New(d, fake, zap.NewNop(), nil)
	s.SetRetryPolicy(instantPolicy())

	err := s.Reload(context.Background())
	if err == nil {
		t.Fatal("Reload() error = nil after persistent failure")
	}
	var apiErr *engine.APIError
	if !errors.As(err, &apiErr) {
		t.Errorf("Reload() error = %v, want wrapped APIError", err)
	}
	if len(fake.loads) != 3 {
		t.Errorf("Load called %d times, want exactly 3", len(fake.loads))
	}
}

func TestReloadRejectionNotRetried(t *testing.T) {
	d := openTestDB(t)
	createHost(t, d, "a.example.com", true)

	fake := &fakeEngine{loadErrs: []error{
		&engine.APIError{StatusCode: 400, Body: "bad document"},
	}}
	s := New(d, fake, zap.NewNop(), nil)
	s.SetRetryPolicy(instantPolicy())

	if err := s.Reload(context.Background()); err == nil {
		t.Fatal("Reload() error = nil for rejected document")
	}
	if len(fake.loads) != 1 {
		t.Errorf("Load called %d times for a 4xx, want 1", len(fake.loads))
	}
}

func TestStatusRunning(t *testing.T) {
	d := openTestDB(t)
	fake := &fakeEngine{status: &engine.Status{Running: true, Version: "2.8.1", UptimeSeconds: 60}}
	s := New(d, fake, zap.NewNop(), nil)

	st := s.Status(context.Background())
	if !st.Running {
		t.Error("Running = false")
	}
	if st.Version != "2.8.1" {
		t.Errorf("Version = %q", st.Version)
	}
	if st.Error != "" {
		t.Errorf("Error = %q, want empty", st.Error)
	}
}

func TestStatusProbeFailureNeverErrors(t *testing.T) {
	d := openTestDB(t)
	fake := &fakeEngine{statusErr: errors.New("connection refused")}
	s := New(d, fake, zap.NewNop(), nil)

	st := s.Status(context.Background())
	if st.Running {
		t.Error("Running = true for unreachable engine")
	}
	if st.Error == "" {
		t.Error("Error empty for failed probe")
	}
}
