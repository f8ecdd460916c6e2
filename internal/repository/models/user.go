package models

import (
	"database/sql"
	"time"
)

// User represents a user in the system.
type User struct {
	ID           string         `db:"ID"` // ULID
	Username     string         `db:"USERNAME"`
	Email        string         `db:"EMAIL"`
	PasswordHash sql.NullString `db:"PASSWORD_HASH"` // NULL for Google-only accounts
	GoogleID     sql.NullString `db:"GOOGLE_ID"`
	CreatedAt    time.Time      `db:"CREATED_AT"`
	UpdatedAt    time.Time      `db:"UPDATED_AT"`
}
