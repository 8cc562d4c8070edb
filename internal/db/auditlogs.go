package db

import (
	"database/sql"
	"time"

	"github.com/rkershaw/proxydeck/internal/models"
)

// InsertAuditLog inserts a single audit entry and returns its id.
func InsertAuditLog(d *sql.DB, entry models.AuditLog) (int64, error) {
	createdAt := entry.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().Unix()
	}
	result, err := d.Exec(
		"INSERT INTO audit_logs (action_type, entity_type, entity_id, changes, user_id, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		entry.ActionType, entry.EntityType, entry.EntityID, entry.Changes, entry.UserID, createdAt,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ListAuditLogs retrieves audit entries joined with actor name/email,
// newest first. A limit of 0 means no limit.
func ListAuditLogs(d *sql.DB, limit int) ([]models.AuditLogView, error) {
	query := `
		SELECT a.id, a.action_type, a.entity_type, a.entity_id, a.changes,
			a.user_id, a.created_at, u.name, u.email
		FROM audit_logs a
		LEFT JOIN users u ON u.id = a.user_id
		ORDER BY a.created_at DESC, a.id DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = d.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = d.Query(query)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.AuditLogView
	for rows.Next() {
		var v models.AuditLogView
		var name, email sql.NullString
		err := rows.Scan(&v.ID, &v.ActionType, &v.EntityType, &v.EntityID,
			&v.Changes, &v.UserID, &v.CreatedAt, &name, &email)
		if err != nil {
			return nil, err
		}
		if name.Valid {
			v.UserName = &name.String
		}
		if email.Valid {
			v.UserEmail = &email.String
		}
		entries = append(entries, v)
	}
	return entries, rows.Err()
}

// CountAuditLogs returns the number of stored audit entries.
func CountAuditLogs(d *sql.DB) (int, error) {
	var count int
	err := d.QueryRow("SELECT COUNT(*) FROM audit_logs").Scan(&count)
	return count, err
}
