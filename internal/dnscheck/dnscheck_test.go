package dnscheck

import (
	"context"
	"net"
	"testing"

	"github.com/miekg/dns"
)

func testResolver(t *testing.T) *Resolver {
	t.Helper()
	mux := dns.NewServeMux()
	mux.HandleFunc(".", func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(req)
		q := req.Question[0]
		switch {
		case q.Name == "has-a.example.com." && q.Qtype == dns.TypeA:
			rr, err := dns.NewRR(q.Name + " 60 IN A 192.0.2.10")
			if err == nil {
				m.Answer = append(m.Answer, rr)
			}
		case q.Name == "has-aaaa.example.com." && q.Qtype == dns.TypeAAAA:
			rr, err := dns.NewRR(q.Name + " 60 IN AAAA 2001:db8::1")
			if err == nil {
				m.Answer = append(m.Answer, rr)
			}
		case q.Name == "broken.example.com.":
			m.Rcode = dns.RcodeServerFailure
		}
		_ = w.WriteMsg(m)
	})

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}
	srv := &dns.Server{PacketConn: pc, Handler: mux}
	go func() { _ = srv.ActivateAndServe() }()
	t.Cleanup(func() { _ = srv.Shutdown() })

	return &Resolver{
		servers: []string{pc.LocalAddr().String()},
		client:  new(dns.Client),
	}
}

func TestResolvesARecord(t *testing.T) {
	r := testResolver(t)
	ok, err := r.Resolves(context.Background(), "has-a.example.com")
	if err != nil {
		t.Fatalf("Resolves() error = %v", err)
	}
	if !ok {
		t.Error("Resolves() = false for domain with an A record")
	}
}

func TestResolvesFallsThroughToAAAA(t *testing.T) {
	r := testResolver(t)
	ok, err := r.Resolves(context.Background(), "has-aaaa.example.com")
	if err != nil {
		t.Fatalf("Resolves() error = %v", err)
	}
	if !ok {
		t.Error("Resolves() = false for domain with only an AAAA record")
	}
}

func TestResolvesAbsentDomain(t *testing.T) {
	r := testResolver(t)
	ok, err := r.Resolves(context.Background(), "absent.example.com")
	if err != nil {
		t.Fatalf("Resolves() error = %v", err)
	}
	if ok {
		t.Error("Resolves() = true for domain with no records")
	}
}

func TestResolvesServerFailure(t *testing.T) {
	r := testResolver(t)
	ok, err := r.Resolves(context.Background(), "broken.example.com")
	if err != nil {
		t.Fatalf("Resolves() error = %v", err)
	}
	if ok {
		t.Error("Resolves() = true on SERVFAIL")
	}
}
