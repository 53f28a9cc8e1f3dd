package models

import "time"

// User is a registered account. PasswordHash holds a bcrypt hash and never
// leaves the server.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}
