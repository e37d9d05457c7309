package api

import (
	"time"

	"github.com/starford/contextwise/internal/models"
)

// CredentialsRequest is the body of sign-up and sign-in.
type CredentialsRequest struct {
	Email    string `json:"email" example:"ann@example.com"`
	Password string `json:"password" example:"secret1"`
}

// SignUpResponse is returned after a successful sign-up.
type SignUpResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SignInResponse carries the bearer token of a new session.
type SignInResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionResponse describes the caller's session.
type SessionResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Title   string `json:"title" example:"Trip"`
	Content string `json:"content" example:"John from Acme Corp visited Paris."`
}

// CreateNoteResponse is the created note plus the refreshed view.
type CreateNoteResponse struct {
	Note    *models.Note  `json:"note"`
	Warning string        `json:"warning,omitempty"`
	Notes   []models.Note `json:"notes"`
	Tags    []string      `json:"tags"`
}

// NoteListResponse is the filtered note list and the owner's tag chips.
type NoteListResponse struct {
	Notes []models.Note `json:"notes"`
	Tags  []string      `json:"tags"`
}

// TagListResponse lists distinct tag names.
type TagListResponse struct {
	Tags []string `json:"tags"`
}
