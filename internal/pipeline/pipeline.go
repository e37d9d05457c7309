// Package pipeline runs note creation: summarize, extract entities,
// persist the note, persist its tags and refresh the owner's view.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/starford/contextwise/internal/apperr"
	"github.com/starford/contextwise/internal/inference"
	"github.com/starford/contextwise/internal/models"
	"github.com/starford/contextwise/internal/store"
)

// User-facing messages.
const (
	MsgNotLoggedIn      = "You must be logged in to create a note"
	MsgMissingFields    = "Title and content are required"
	MsgNoEntities       = "No entities found for tagging"
	MsgTagsLeftUntagged = "note was saved without its tags"
)

// Notifier receives an event after a note is created.
type Notifier interface {
	PublishNoteEvent(userID, kind, noteID string)
}

// Input is one note submission.
type Input struct {
	Title   string
	Content string
}

// View is the owner's refreshed note list and tag chips.
type View struct {
	Notes []models.Note `json:"notes"`
	Tags  []string      `json:"tags"`
}

// Outcome describes a successful run.
type Outcome struct {
	Note    *models.Note
	Tags    []string
	Warning string
	View    View

	// ViewErr is set when the refresh failed and View is stale or partial.
	ViewErr error

	// ClearForm tells the caller to reset the submission form.
	ClearForm bool
}

// Pipeline coordinates the inference client and the repository.
type Pipeline struct {
	summarizer inference.Summarizer
	extractor  inference.EntityExtractor
	repo       store.NoteRepository
	notifier   Notifier
	logger     *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithNotifier publishes note events after each successful run.
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) {
		p.notifier = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// New creates a Pipeline.
func New(summarizer inference.Summarizer, extractor inference.EntityExtractor, repo store.NoteRepository, opts ...Option) *Pipeline {
	p := &Pipeline{
		summarizer: summarizer,
		extractor:  extractor,
		repo:       repo,
		logger:     slog.Default(),
		inFlight:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// begin marks a run as active for userID. It fails when one already is.
func (p *Pipeline) begin(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inFlight[userID]; busy {
		return false
	}
	p.inFlight[userID] = struct{}{}
	return true
}

func (p *Pipeline) end(userID string) {
	p.mu.Lock()
	delete(p.inFlight, userID)
	p.mu.Unlock()
}

// CreateNote runs the pipeline for one submission. A failure that ends the
// run is returned as *BlockingError, except apperr.ErrInFlight which is
// returned bare when the same user already has a run in progress.
func (p *Pipeline) CreateNote(ctx context.Context, sess *models.Session, in Input) (*Outcome, error) {
	if sess == nil || sess.UserID == "" {
		return nil, blocking(StageAuthorizing, MsgNotLoggedIn, apperr.ErrUnauthorized)
	}
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if title == "" || content == "" {
		return nil, blocking(StageAuthorizing, MsgMissingFields, apperr.ErrValidation)
	}

	userID := sess.UserID
	if !p.begin(userID) {
		return nil, apperr.ErrInFlight
	}
	defer p.end(userID)

	log := p.logger.With(slog.String("user_id", userID))

	summary := p.summarizer.Summarize(ctx, content)
	if !summary.OK() {
		log.Warn("summary unavailable", slog.String("status", summary.Status.String()))
		return nil, blocking(StageSummarizing, summary.Message(), summary.Err)
	}

	out := &Outcome{}
	entities := p.extractor.ExtractEntities(ctx, content)
	tags := entities.Tags
	if len(tags) == 0 {
		out.Warning = MsgNoEntities
	}

	text := summary.Message()
	note, err := p.repo.InsertNote(ctx, userID, title, content, &text)
	if err != nil {
		log.Error("note insert failed", slog.String("error", err.Error()))
		return nil, blocking(StagePersistingNote, err.Error(), err)
	}
	log = log.With(slog.String("note_id", note.ID))

	rows := make([]models.Tag, len(tags))
	for i, name := range tags {
		rows[i] = models.Tag{NoteID: note.ID, UserID: userID, Name: name}
	}
	if len(rows) > 0 {
		if err := p.repo.InsertTags(ctx, rows); err != nil {
			return nil, p.compensate(ctx, log, userID, note.ID, err)
		}
	}
	note.Tags = rows

	out.Note = note
	out.Tags = tags
	out.ClearForm = true
	out.View, out.ViewErr = p.refresh(ctx, userID)
	if out.ViewErr != nil {
		log.Warn("view refresh failed", slog.String("error", out.ViewErr.Error()))
	}
	if p.notifier != nil {
		p.notifier.PublishNoteEvent(userID, "created", note.ID)
	}

	log.Info("note created", slog.Int("tags", len(tags)))
	return out, nil
}

// compensate removes a note whose tags could not be written.
func (p *Pipeline) compensate(ctx context.Context, log *slog.Logger, userID, noteID string, cause error) error {
	log.Error("tag insert failed", slog.String("error", cause.Error()))

	// The delete must run even when ctx was the reason the tags failed.
	if err := p.repo.DeleteNote(context.WithoutCancel(ctx), userID, noteID); err != nil {
		log.Error("compensating delete failed", slog.String("error", err.Error()))
		return blocking(StagePersistingTags,
			fmt.Sprintf("%s: %s", MsgTagsLeftUntagged, cause.Error()),
			errors.Join(cause, err))
	}
	return blocking(StagePersistingTags, cause.Error(), cause)
}

// Refresh re-reads the owner's notes and tags.
func (p *Pipeline) Refresh(ctx context.Context, sess *models.Session) (View, error) {
	if sess == nil || sess.UserID == "" {
		return View{Notes: []models.Note{}, Tags: []string{}}, apperr.ErrUnauthorized
	}
	return p.refresh(ctx, sess.UserID)
}

func (p *Pipeline) refresh(ctx context.Context, userID string) (View, error) {
	v := View{Notes: []models.Note{}, Tags: []string{}}
	var errs []error

	notes, err := p.repo.ListNotesForUser(ctx, userID)
	if err != nil {
		errs = append(errs, fmt.Errorf("list notes: %w", err))
	} else {
		v.Notes = notes
	}

	names, err := p.repo.ListDistinctTagNames(ctx, userID)
	if err != nil {
		errs = append(errs, fmt.Errorf("list tags: %w", err))
	} else {
		v.Tags = names
	}

	return v, errors.Join(errs...)
}
