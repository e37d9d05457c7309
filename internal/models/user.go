package models

import "time"

// User is an account known to the auth collaborator.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Session is the authenticated identity handed to the note pipeline.
// The core only ever reads UserID and Email.
type Session struct {
	ID        string    `json:"-"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}
