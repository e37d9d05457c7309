package inference

import "strings"

// Entity is one span returned by a token-classification model.
// Aggregating models fill EntityGroup; raw models fill Entity with an IOB label.
type Entity struct {
	EntityGroup string  `json:"entity_group"`
	Entity      string  `json:"entity"`
	Word        string  `json:"word"`
	Score       float64 `json:"score"`
	Start       int     `json:"start"`
	End         int     `json:"end"`
}

// Tag categories kept by ExtractTags.
const (
	CategoryPerson       = "PERSON"
	CategoryOrganization = "ORGANIZATION"
	CategoryLocation     = "LOCATION"
)

var categoryAliases = map[string]string{
	"PER":          CategoryPerson,
	"PERSON":       CategoryPerson,
	"ORG":          CategoryOrganization,
	"ORGANIZATION": CategoryOrganization,
	"LOC":          CategoryLocation,
	"LOCATION":     CategoryLocation,
}

// Category returns the normalized category of the span, or "" when it is
// not one of person, organization or location.
func (e Entity) Category() string {
	label := e.EntityGroup
	if label == "" {
		label = e.Entity
	}
	label = strings.ToUpper(strings.TrimSpace(label))
	if len(label) > 2 && (label[:2] == "B-" || label[:2] == "I-") {
		label = label[2:]
	}
	return categoryAliases[label]
}

// ExtractTags keeps person, organization and location spans, trims their
// words and returns each distinct word once in first-seen order.
func ExtractTags(entities []Entity) []string {
	out := make([]string, 0, len(entities))
	seen := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		if e.Category() == "" {
			continue
		}
		word := strings.TrimSpace(e.Word)
		if word == "" {
			continue
		}
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		out = append(out, word)
	}
	return out
}
