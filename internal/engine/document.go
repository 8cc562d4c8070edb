package engine

import (
	"encoding/json"

	"github.com/rkershaw/proxydeck/internal/models"
)

// Document is the full configuration submitted to the engine. A push wholly
// replaces the engine's state, so the document is always a pure function of
// the current host records; there is no incremental-diff protocol.
type Document struct {
	Version int     `json:"version"`
	Routes  []Route `json:"routes"`
}

// Route is one domain's routing rule.
type Route struct {
	Domain    string     `json:"domain"`
	Upstream  Upstream   `json:"upstream"`
	TLS       *TLSPolicy `json:"tls,omitempty"`
	BasicAuth *BasicAuth `json:"basic_auth,omitempty"`
	Cache     bool       `json:"cache,omitempty"`
	Advanced  string     `json:"advanced,omitempty"`
}

// Upstream is the backend a route proxies to.
type Upstream struct {
	Scheme string `json:"scheme"`
	Host   string `json:"host"`
	Port   int    `json:"port"`
}

// TLSPolicy describes TLS termination for a route.
type TLSPolicy struct {
	ForceRedirect      bool `json:"force_redirect,omitempty"`
	HTTP2              bool `json:"http2,omitempty"`
	HTTP3              bool `json:"http3,omitempty"`
	IgnoreUpstreamCert bool `json:"ignore_upstream_cert,omitempty"`
}

// BasicAuth carries the engine-compatible credential hash for a route.
type BasicAuth struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
}

// BuildDocument translates host records into the engine's target
// configuration. Disabled hosts emit no route, so deleting or disabling a
// host drops its route on the next push. Routes keep the store's creation
// order; identical input produces byte-identical marshaled output.
func BuildDocument(hosts []models.ProxyHost) Document {
	doc := Document{Version: 1, Routes: []Route{}}
	for _, h := range hosts {
		if !h.Enabled {
			continue
		}
		route := Route{
			Domain: h.Domain,
			Upstream: Upstream{
				Scheme: h.TargetProto,
				Host:   h.TargetHost,
				Port:   h.TargetPort,
			},
			Cache: h.CacheEnabled,
		}
		if h.SSLEnabled {
			route.TLS = &TLSPolicy{
				ForceRedirect:      h.ForceSSL,
				HTTP2:              h.HTTP2Support,
				HTTP3:              h.HTTP3Support,
				IgnoreUpstreamCert: h.IgnoreInvalidCert,
			}
		}
		if h.BasicAuthEnabled && h.BasicAuthUser != nil && h.BasicAuthHash != nil {
			route.BasicAuth = &BasicAuth{
				Username:     *h.BasicAuthUser,
				PasswordHash: *h.BasicAuthHash,
			}
		}
		if h.AdvancedConfig != nil {
			route.Advanced = *h.AdvancedConfig
		}
		doc.Routes = append(doc.Routes, route)
	}
	return doc
}

// Marshal renders the document as the admin API's JSON wire form.
func (d Document) Marshal() ([]byte, error) {
	return json.Marshal(d)
}
