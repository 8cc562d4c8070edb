package db

import (
	"database/sql"
	"time"

	"github.com/rkershaw/proxydeck/internal/models"
)

// CreateUser inserts a new operator account and returns its id.
func CreateUser(d *sql.DB, name, email, passwordHash string) (int64, error) {
	result, err := d.Exec(
		"INSERT INTO users (name, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		name, email, passwordHash, time.Now().Unix(),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetUserByID retrieves a user by id, or nil if absent.
func GetUserByID(d *sql.DB, id int64) (*models.User, error) {
	row := d.QueryRow("SELECT id, name, email, password_hash, created_at FROM users WHERE id = ?", id)
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetAllUsers retrieves every operator account ordered by creation time.
func GetAllUsers(d *sql.DB) ([]models.User, error) {
	rows, err := d.Query("SELECT id, name, email, password_hash, created_at FROM users ORDER BY created_at, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountUsers returns the number of operator accounts.
func CountUsers(d *sql.DB) (int, error) {
	var count int
	err := d.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}
