// Package server implements the management REST API.
package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rkershaw/proxydeck/internal/api"
	"github.com/rkershaw/proxydeck/internal/models"
	"github.com/rkershaw/proxydeck/internal/service"
	"github.com/rkershaw/proxydeck/internal/syncer"
	"go.uber.org/zap"
)

// APIServer handles the REST API for proxy host and audit management.
type APIServer struct {
	DB      *sql.DB
	Service *service.Service
	Syncer  *syncer.Synchronizer
	Logger  *zap.Logger
}

// Handler returns the authenticated API handler with access logging.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/hosts", s.handleListHosts)
	mux.HandleFunc("POST /v1/hosts", s.handleCreateHost)
	mux.HandleFunc("GET /v1/hosts/{id}", s.handleGetHost)
	mux.HandleFunc("PATCH /v1/hosts/{id}", s.handleUpdateHost)
	mux.HandleFunc("DELETE /v1/hosts/{id}", s.handleDeleteHost)
	mux.HandleFunc("POST /v1/hosts/{id}/enable", s.handleEnableHost)
	mux.HandleFunc("POST /v1/hosts/{id}/disable", s.handleDisableHost)
	mux.HandleFunc("GET /v1/engine/status", s.handleEngineStatus)
	mux.HandleFunc("POST /v1/engine/reload", s.handleEngineReload)
	mux.HandleFunc("GET /v1/audit", s.handleListAudit)

	return s.AccessLogMiddleware(s.AuthMiddleware(mux))
}

func (s *APIServer) handleListHosts(w http.ResponseWriter, r *http.Request) {
	hosts, err := s.Service.GetAllHostsWithStatus(r.Context())
	if err != nil {
		s.serveError(w, err)
		return
	}

	resp := api.ListHostsResponse{Hosts: make([]api.HostResponse, 0, len(hosts))}
	for _, h := range hosts {
		resp.Hosts = append(resp.Hosts, toHostResponse(h.Host, h.Certificate))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *APIServer) handleGetHost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h, err := s.Service.GetHost(r.Context(), id)
	if err != nil {
		s.serveError(w, err)
		return
	}
	if h == nil {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: "host not found"})
		return
	}
	writeJSON(w, http.StatusOK, toHostResponse(*h, nil))
}

func (s *APIServer) handleCreateHost(w http.ResponseWriter, r *http.Request) {
	var req api.HostRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	in := service.HostInput{
		Domain:            req.Domain,
		TargetHost:        req.TargetHost,
		TargetPort:        req.TargetPort,
		TargetProto:       req.TargetProto,
		SSLEnabled:        req.SSLEnabled,
		ForceSSL:          req.ForceSSL,
		HTTP2Support:      req.HTTP2Support,
		HTTP3Support:      req.HTTP3Support,
		Enabled:           enabled,
		CacheEnabled:      req.CacheEnabled,
		IgnoreInvalidCert: req.IgnoreInvalidCert,
		AdvancedConfig:    req.AdvancedConfig,
		BasicAuthEnabled:  req.BasicAuthEnabled,
		BasicAuthUser:     req.BasicAuthUser,
		BasicAuthPassword: req.BasicAuthPassword,
	}

	h, err := s.Service.CreateHost(r.Context(), in, actorID(r))
	if err != nil {
		s.serveError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHostResponse(*h, nil))
}

func (s *APIServer) handleUpdateHost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req api.HostPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := service.UpdateInput{
		Domain:            req.Domain,
		TargetHost:        req.TargetHost,
		TargetPort:        req.TargetPort,
		TargetProto:       req.TargetProto,
		SSLEnabled:        req.SSLEnabled,
		ForceSSL:          req.ForceSSL,
		HTTP2Support:      req.HTTP2Support,
		HTTP3Support:      req.HTTP3Support,
		Enabled:           req.Enabled,
		CacheEnabled:      req.CacheEnabled,
		IgnoreInvalidCert: req.IgnoreInvalidCert,
		AdvancedConfig:    req.AdvancedConfig,
		BasicAuthEnabled:  req.BasicAuthEnabled,
		BasicAuthUser:     req.BasicAuthUser,
		BasicAuthPassword: req.BasicAuthPassword,
	}

	h, err := s.Service.UpdateHost(r.Context(), id, in, actorID(r))
	if err != nil {
		s.serveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHostResponse(*h, nil))
}

func (s *APIServer) handleDeleteHost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.Service.DeleteHost(r.Context(), id, actorID(r)); err != nil {
		s.serveError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *APIServer) handleEnableHost(w http.ResponseWriter, r *http.Request) {
	s.toggleHost(w, r, true)
}

func (s *APIServer) handleDisableHost(w http.ResponseWriter, r *http.Request) {
	s.toggleHost(w, r, false)
}

func (s *APIServer) toggleHost(w http.ResponseWriter, r *http.Request, enabled bool) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h, err := s.Service.SetHostEnabled(r.Context(), id, enabled, actorID(r))
	if err != nil {
		s.serveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHostResponse(*h, nil))
}

func (s *APIServer) handleEngineStatus(w http.ResponseWriter, r *http.Request) {
	st := s.Syncer.Status(r.Context())
	writeJSON(w, http.StatusOK, api.EngineStatusResponse{
		Running:       st.Running,
		Version:       st.Version,
		UptimeSeconds: st.UptimeSeconds,
		Error:         st.Error,
	})
}

func (s *APIServer) handleEngineReload(w http.ResponseWriter, r *http.Request) {
	if err := s.Syncer.Reload(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, api.ErrorResponse{Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *APIServer) handleListAudit(w http.ResponseWriter, r *http.Request) {
	var entries []models.AuditLogView
	var err error
	if r.URL.Query().Get("all") == "1" {
		entries, err = s.Service.AllAuditLogs(r.Context())
	} else {
		entries, err = s.Service.RecentAuditLogs(r.Context())
	}
	if err != nil {
		s.serveError(w, err)
		return
	}

	resp := api.ListAuditResponse{Entries: make([]api.AuditEntry, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, api.AuditEntry{
			ID:         e.ID,
			ActionType: e.ActionType,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			Changes:    e.Changes,
			UserName:   e.UserName,
			UserEmail:  e.UserEmail,
			CreatedAt:  formatTime(e.CreatedAt),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *APIServer) serveError(w http.ResponseWriter, err error) {
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: vErr.Error()})
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: "host not found"})
	default:
		if s.Logger != nil {
			s.Logger.Error("request failed", zap.Error(err))
		}
		writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{Error: "internal error"})
	}
}

func toHostResponse(h models.ProxyHost, cert *models.CertificateStatus) api.HostResponse {
	resp := api.HostResponse{
		ID:                h.ID,
		Domain:            h.Domain,
		TargetHost:        h.TargetHost,
		TargetPort:        h.TargetPort,
		TargetProto:       h.TargetProto,
		SSLEnabled:        h.SSLEnabled,
		ForceSSL:          h.ForceSSL,
		HTTP2Support:      h.HTTP2Support,
		HTTP3Support:      h.HTTP3Support,
		Enabled:           h.Enabled,
		CacheEnabled:      h.CacheEnabled,
		IgnoreInvalidCert: h.IgnoreInvalidCert,
		AdvancedConfig:    h.AdvancedConfig,
		BasicAuthEnabled:  h.BasicAuthEnabled,
		BasicAuthUser:     h.BasicAuthUser,
		CreatedAt:         formatTime(h.CreatedAt),
		UpdatedAt:         formatTime(h.UpdatedAt),
	}
	if cert != nil {
		c := api.CertificateStatus{
			Domain:        cert.Domain,
			IsValid:       cert.IsValid,
			Issuer:        cert.Issuer,
			DaysRemaining: cert.DaysRemaining,
			Error:         cert.Error,
		}
		if cert.Expiry != nil {
			expiry := formatTime(*cert.Expiry)
			c.Expiry = &expiry
		}
		resp.Certificate = &c
	}
	return resp
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "invalid host id"})
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16) // 64KB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, api.ErrorResponse{Error: "request body too large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "invalid JSON"})
		return false
	}
	if dec.Decode(&struct{}{}) != io.EOF {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "unexpected trailing data"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func formatTime(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format(time.RFC3339)
}
