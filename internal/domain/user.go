package domain

import "time"

// User is the domain model for a registered player.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	HighScore    int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
