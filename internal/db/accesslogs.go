package db

import (
	"database/sql"
	"time"
)

// AccessLogEntry records one management API request.
type AccessLogEntry struct {
	RequestID  string
	Method     string
	Path       string
	Status     int
	DurationMS int64
	RemoteIP   string
	UserID     *int64
}

// InsertAccessLog records a single API access. Best-effort; callers log and
// drop failures.
func InsertAccessLog(d *sql.DB, e AccessLogEntry) error {
	_, err := d.Exec(
		"INSERT INTO access_logs (request_id, method, path, status, duration_ms, remote_ip, user_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		e.RequestID, e.Method, e.Path, e.Status, e.DurationMS, e.RemoteIP, e.UserID, time.Now().Unix(),
	)
	return err
}
