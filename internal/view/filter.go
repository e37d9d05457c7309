// Package view holds pure projections over a user's note list.
package view

import (
	"strings"

	"github.com/starford/contextwise/internal/models"
)

// FilterByTag returns the notes having at least one tag whose name contains
// search, ignoring case. An empty search returns notes unchanged.
// Input order is preserved.
func FilterByTag(notes []models.Note, search string) []models.Note {
	if search == "" {
		return notes
	}
	needle := strings.ToLower(search)
	out := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		for _, t := range n.Tags {
			if strings.Contains(strings.ToLower(t.Name), needle) {
				out = append(out, n)
				break
			}
		}
	}
	return out
}

// TagNames returns each distinct tag name across notes in first-seen order.
func TagNames(notes []models.Note) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, n := range notes {
		for _, t := range n.Tags {
			if _, ok := seen[t.Name]; ok {
				continue
			}
			seen[t.Name] = struct{}{}
			out = append(out, t.Name)
		}
	}
	return out
}
