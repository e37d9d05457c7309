// Package models defines the domain types for ContextWise.
package models

import "time"

// Note is a user-authored title and content with an optional generated summary.
type Note struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Summary   *string   `json:"summary,omitempty"`
	Tags      []Tag     `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TagNames returns the names of the note's tags in stored order.
func (n *Note) TagNames() []string {
	out := make([]string, len(n.Tags))
	for i, t := range n.Tags {
		out[i] = t.Name
	}
	return out
}

// Tag is a named entity attached to a note. UserID duplicates the note's
// owner so tag queries can be scoped without a join.
type Tag struct {
	ID     string `json:"id"`
	NoteID string `json:"note_id"`
	UserID string `json:"user_id"`
	Name   string `json:"tag_name"`
}
