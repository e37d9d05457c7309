package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/starford/contextwise/internal/apperr"
	"github.com/starford/contextwise/internal/models"
)

// InsertNote writes a new note row and returns it with its generated id.
func (db *DB) InsertNote(ctx context.Context, userID, title, content string, summary *string) (*models.Note, error) {
	now := db.now()
	n := &models.Note{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Content:   content,
		Summary:   summary,
		Tags:      []models.Tag{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	var sum sql.NullString
	if summary != nil {
		sum = sql.NullString{String: *summary, Valid: true}
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO notes (id, user_id, title, content, summary, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.UserID, n.Title, n.Content, sum, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: insert note: %w", err)
	}
	return n, nil
}

// InsertTags writes all tags within one transaction. Tags without an id get
// a generated one. Either every row is written or none.
func (db *DB) InsertTags(ctx context.Context, tags []models.Tag) error {
	if len(tags) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for i := range tags {
		if tags[i].ID == "" {
			tags[i].ID = uuid.NewString()
		}
		t := tags[i]
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tags (id, note_id, user_id, tag_name) VALUES (?, ?, ?, ?)`,
			t.ID, t.NoteID, t.UserID, t.Name,
		); err != nil {
			return fmt.Errorf("store: insert tag %q: %w", t.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit tags: %w", err)
	}
	return nil
}

// DeleteNote removes a note owned by userID. Its tags go with it.
func (db *DB) DeleteNote(ctx context.Context, userID, noteID string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM notes WHERE id = ? AND user_id = ?`, noteID, userID)
	if err != nil {
		return fmt.Errorf("store: delete note: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete note: %w", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// ListNotesForUser returns the owner's notes with their tags, newest first.
func (db *DB) ListNotesForUser(ctx context.Context, userID string) ([]models.Note, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT n.id, n.user_id, n.title, n.content, n.summary, n.created_at, n.updated_at,
		       t.id, t.tag_name
		FROM notes n
		LEFT JOIN tags t ON t.note_id = n.id AND t.user_id = n.user_id
		WHERE n.user_id = ?
		ORDER BY n.created_at DESC, n.rowid DESC, t.rowid ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: list notes: %w", err)
	}
	defer rows.Close()

	out := []models.Note{}
	index := make(map[string]int)
	for rows.Next() {
		var (
			n              models.Note
			summary        sql.NullString
			tagID, tagName sql.NullString
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &summary,
			&n.CreatedAt, &n.UpdatedAt, &tagID, &tagName); err != nil {
			return nil, fmt.Errorf("store: scan note: %w", err)
		}

		i, seen := index[n.ID]
		if !seen {
			if summary.Valid {
				s := summary.String
				n.Summary = &s
			}
			n.Tags = []models.Tag{}
			out = append(out, n)
			i = len(out) - 1
			index[n.ID] = i
		}
		if tagID.Valid {
			out[i].Tags = append(out[i].Tags, models.Tag{
				ID:     tagID.String,
				NoteID: n.ID,
				UserID: n.UserID,
				Name:   tagName.String,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list notes: %w", err)
	}
	return out, nil
}

// ListDistinctTagNames returns every tag name the owner has used, once each,
// in ascending order.
func (db *DB) ListDistinctTagNames(ctx context.Context, userID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT tag_name FROM tags WHERE user_id = ? ORDER BY tag_name`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: list tags: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("store: scan tag: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
