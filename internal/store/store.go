package store

import (
	"context"

	"github.com/starford/contextwise/internal/models"
)

// NoteRepository is the persistence boundary used by the note pipeline.
// Every operation is scoped to a single owner.
type NoteRepository interface {
	InsertNote(ctx context.Context, userID, title, content string, summary *string) (*models.Note, error)
	InsertTags(ctx context.Context, tags []models.Tag) error
	DeleteNote(ctx context.Context, userID, noteID string) error
	ListNotesForUser(ctx context.Context, userID string) ([]models.Note, error)
	ListDistinctTagNames(ctx context.Context, userID string) ([]string, error)
}

// UserRepository stores accounts and their sessions.
type UserRepository interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateSession(ctx context.Context, s models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// Verify *DB satisfies both interfaces at compile time.
var (
	_ NoteRepository = (*DB)(nil)
	_ UserRepository = (*DB)(nil)
)
