package auth

import "time"

// User represents an account record. PasswordHash never leaves this package.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
