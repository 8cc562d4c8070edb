// Package dnscheck runs a preflight resolution check for host domains.
package dnscheck

import (
	"context"
	"fmt"

	"github.com/miekg/dns"
)

// Resolver checks whether a domain resolves to an address. Used as a
// non-fatal warning when an operator saves a host whose domain has no DNS
// record yet.
type Resolver struct {
	servers []string
	client  *dns.Client
}

// New builds a resolver from the system resolv.conf.
func New() (*Resolver, error) {
	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil {
		return nil, fmt.Errorf("read resolv.conf: %w", err)
	}
	if len(conf.Servers) == 0 {
		return nil, fmt.Errorf("no nameservers configured")
	}
	servers := make([]string, 0, len(conf.Servers))
	for _, s := range conf.Servers {
		servers = append(servers, s+":"+conf.Port)
	}
	return &Resolver{servers: servers, client: new(dns.Client)}, nil
}

// Resolves reports whether domain has at least one A or AAAA record.
func (r *Resolver) Resolves(ctx context.Context, domain string) (bool, error) {
	fqdn := dns.Fqdn(domain)
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		ok, err := r.query(ctx, fqdn, qtype)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (r *Resolver) query(ctx context.Context, fqdn string, qtype uint16) (bool, error) {
	m := new(dns.Msg)
	m.SetQuestion(fqdn, qtype)
	m.RecursionDesired = true

	var lastErr error
	for _, server := range r.servers {
		resp, _, err := r.client.ExchangeContext(ctx, m, server)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.Rcode != dns.RcodeSuccess {
			return false, nil
		}
		return len(resp.Answer) > 0, nil
	}
	return false, lastErr
}
