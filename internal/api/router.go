package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// Auth routes are public except sign-out and session; everything else
// requires a bearer session.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/auth/signup", h.SignUp)
	r.Post("/auth/signin", h.SignIn)

	r.Group(func(r chi.Router) {
		r.Use(SessionMiddleware(h.auth))

		r.Post("/auth/signout", h.SignOut)
		r.Get("/auth/session", h.Session)

		r.Get("/notes", h.ListNotes)
		r.Post("/notes", h.CreateNote)
		r.Get("/tags", h.ListTags)

		if h.events != nil {
			r.Get("/events", h.Events)
		}
	})

	return r
}

// Health mounts the liveness and readiness probes. ready reports whether
// dependencies are reachable.
func Health(r chi.Router, ready func() error) {
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if ready != nil {
			if err := ready(); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
