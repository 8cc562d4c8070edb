package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rkershaw/proxydeck/internal/api"
	"github.com/rkershaw/proxydeck/internal/auth"
	"github.com/rkershaw/proxydeck/internal/db"
	"go.uber.org/zap"
)

type contextKey string

const (
	userIDContextKey      contextKey = "userID"
	actorRecordContextKey contextKey = "actorRecord"
)

// actorRecord hands the resolved operator id back out to the access-log
// wrapper. The auth middleware runs on a derived request, so a value set on
// its context is invisible to the wrappers outside it; the shared holder is
// visible from both.
type actorRecord struct {
	id *int64
}

// actorID returns the authenticated operator's id, or nil for unattributed
// requests. Everything below the HTTP layer only consumes this for audit
// attribution.
func actorID(r *http.Request) *int64 {
	if id, ok := r.Context().Value(userIDContextKey).(int64); ok {
		return &id
	}
	return nil
}

// AuthMiddleware resolves the bearer API key to an operator account id.
func (s *APIServer) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeJSON(w, http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
			return
		}
		apiKey := strings.TrimPrefix(authHeader, "Bearer ")

		prefix, _, err := auth.ParseAPIKey(apiKey)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
			return
		}

		storedKey, err := db.GetAPIKeyByPrefix(s.DB, prefix)
		if err != nil || storedKey == nil || storedKey.RevokedAt != nil {
			writeJSON(w, http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
			return
		}

		if !auth.VerifyAPIKey(apiKey, storedKey.KeyHash) {
			writeJSON(w, http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
			return
		}

		if rec, ok := r.Context().Value(actorRecordContextKey).(*actorRecord); ok {
			uid := storedKey.UserID
			rec.id = &uid
		}

		ctx := context.WithValue(r.Context(), userIDContextKey, storedKey.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// AccessLogMiddleware records each API request to the access_logs table.
// Best-effort: a failed insert is logged and dropped.
func (s *APIServer) AccessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		actor := &actorRecord{}
		r = r.WithContext(context.WithValue(r.Context(), actorRecordContextKey, actor))

		next.ServeHTTP(rec, r)

		entry := db.AccessLogEntry{
			RequestID:  uuid.NewString(),
			Method:     r.Method,
			Path:       r.URL.Path,
			Status:     rec.status,
			DurationMS: time.Since(start).Milliseconds(),
			RemoteIP:   remoteIP(r),
			UserID:     actor.id,
		}
		if err := db.InsertAccessLog(s.DB, entry); err != nil && s.Logger != nil {
			s.Logger.Warn("access log write failed", zap.Error(err))
		}
	})
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
