package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/contextwise/internal/apperr"
	"github.com/starford/contextwise/internal/checksum"
	"github.com/starford/contextwise/internal/models"
	"github.com/starford/contextwise/internal/pipeline"
	"github.com/starford/contextwise/internal/store"
	"github.com/starford/contextwise/internal/view"
)

// Authenticator is the account and session collaborator.
type Authenticator interface {
	SessionResolver
	SignUp(ctx context.Context, email, password string) (*models.User, error)
	SignIn(ctx context.Context, email, password string) (string, *models.Session, error)
	SignOut(ctx context.Context, token string) error
}

// NoteCreator runs the note-creation pipeline.
type NoteCreator interface {
	CreateNote(ctx context.Context, sess *models.Session, in pipeline.Input) (*pipeline.Outcome, error)
}

// EventStreamer serves a user's live event stream.
type EventStreamer interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string)
}

// Handler holds API route handlers.
type Handler struct {
	auth   Authenticator
	notes  NoteCreator
	repo   store.NoteRepository
	events EventStreamer
}

// NewHandler creates a Handler. events may be nil to disable /events.
func NewHandler(auth Authenticator, notes NoteCreator, repo store.NoteRepository, events EventStreamer) *Handler {
	return &Handler{auth: auth, notes: notes, repo: repo, events: events}
}

// SignUp handles POST /api/auth/signup.
//
//	@Summary	Register an account
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		CredentialsRequest	true	"Credentials"
//	@Success	201		{object}	SignUpResponse
//	@Failure	400		{object}	errResponse
//	@Failure	409		{object}	errResponse
//	@Router		/auth/signup [post]
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrValidation):
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		case errors.Is(err, apperr.ErrAlreadyExists):
			writeJSON(w, http.StatusConflict, errorBody("email already registered"))
		default:
			slog.Error("sign up failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, SignUpResponse{ID: u.ID, Email: u.Email})
}

// SignIn handles POST /api/auth/signin.
//
//	@Summary	Open a session
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		CredentialsRequest	true	"Credentials"
//	@Success	200		{object}	SignInResponse
//	@Failure	401		{object}	errResponse
//	@Router		/auth/signin [post]
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	token, sess, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, errorBody("Invalid email or password"))
		} else {
			slog.Error("sign in failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, SignInResponse{
		Token:     token,
		UserID:    sess.UserID,
		Email:     sess.Email,
		ExpiresAt: sess.ExpiresAt,
	})
}

// SignOut handles POST /api/auth/signout.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.SignOut(r.Context(), tokenFromContext(r.Context())); err != nil {
		slog.Error("sign out failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Session handles GET /api/auth/session.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, SessionResponse{UserID: sess.UserID, Email: sess.Email})
}

// ListNotes handles GET /api/notes.
//
//	@Summary	List the caller's notes, newest first
//	@Tags		notes
//	@Produce	json
//	@Param		tag	query		string	false	"Case-insensitive tag substring"
//	@Success	200	{object}	NoteListResponse
//	@Success	304
//	@Security	BearerAuth
//	@Router		/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	notes, err := h.repo.ListNotesForUser(r.Context(), sess.UserID)
	if err != nil {
		slog.Error("list notes failed", slog.String("user_id", sess.UserID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	tags, err := h.repo.ListDistinctTagNames(r.Context(), sess.UserID)
	if err != nil {
		slog.Error("list tags failed", slog.String("user_id", sess.UserID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	resp := NoteListResponse{
		Notes: view.FilterByTag(notes, r.URL.Query().Get("tag")),
		Tags:  tags,
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	etag := checksum.ETag(payload)
	w.Header().Set("ETag", etag)
	if !checksum.NoneMatch(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(append(payload, '\n'))
}

// CreateNote handles POST /api/notes.
//
//	@Summary	Create a note with a generated summary and entity tags
//	@Tags		notes
//	@Accept		json
//	@Produce	json
//	@Param		body	body		CreateNoteRequest	true	"Note to create"
//	@Success	201		{object}	CreateNoteResponse
//	@Failure	400		{object}	errResponse
//	@Failure	401		{object}	errResponse
//	@Failure	409		{object}	errResponse
//	@Failure	502		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// A started run finishes even if the client goes away.
	ctx := context.WithoutCancel(r.Context())
	out, err := h.notes.CreateNote(ctx, SessionFromContext(r.Context()), pipeline.Input{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		status, msg := pipelineStatus(err)
		if status >= http.StatusInternalServerError {
			slog.Error("create note failed", slog.String("error", err.Error()))
		}
		writeJSON(w, status, errorBody(msg))
		return
	}

	writeJSON(w, http.StatusCreated, CreateNoteResponse{
		Note:    out.Note,
		Warning: out.Warning,
		Notes:   out.View.Notes,
		Tags:    out.View.Tags,
	})
}

// pipelineStatus maps a pipeline failure to a status code and message.
func pipelineStatus(err error) (int, string) {
	if errors.Is(err, apperr.ErrInFlight) {
		return http.StatusConflict, err.Error()
	}
	var be *pipeline.BlockingError
	if !errors.As(err, &be) {
		return http.StatusInternalServerError, "internal error"
	}
	switch be.Stage {
	case pipeline.StageAuthorizing:
		if errors.Is(err, apperr.ErrValidation) {
			return http.StatusBadRequest, be.Message
		}
		return http.StatusUnauthorized, be.Message
	case pipeline.StageSummarizing:
		return http.StatusBadGateway, be.Message
	default:
		return http.StatusInternalServerError, be.Message
	}
}

// ListTags handles GET /api/tags.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	tags, err := h.repo.ListDistinctTagNames(r.Context(), sess.UserID)
	if err != nil {
		slog.Error("list tags failed", slog.String("user_id", sess.UserID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, TagListResponse{Tags: tags})
}

// Events handles GET /api/events.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	h.events.Serve(w, r, SessionFromContext(r.Context()).UserID)
}
