// Package testutil provides shared test helpers for databases and inference stubs.
package testutil

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/starford/contextwise/internal/inference"
	"github.com/starford/contextwise/internal/store"
)

// Model names served by InferenceStub.
const (
	SummaryModel = "facebook/bart-large-cnn"
	NERModel     = "dslim/bert-base-NER"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "contextwise-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() {
		os.Remove(dbFile.Name())
		os.Remove(dbFile.Name() + "-wal")
		os.Remove(dbFile.Name() + "-shm")
	})

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// QuietLogger discards everything.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// InferenceStub answers summarization with summary and NER with entities.
// An empty summary makes the summarization endpoint fail with 503.
func InferenceStub(t *testing.T, summary string, entities []inference.Entity) *inference.Client {
	t.Helper()
	if entities == nil {
		entities = []inference.Entity{}
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/"+NERModel):
			_ = json.NewEncoder(w).Encode(entities)
		case strings.HasSuffix(r.URL.Path, "/"+SummaryModel):
			if summary == "" {
				http.Error(w, `{"error":"unavailable"}`, http.StatusServiceUnavailable)
				return
			}
			_ = json.NewEncoder(w).Encode([]map[string]string{{"summary_text": summary}})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	return inference.NewClient(inference.Config{
		BaseURL:      srv.URL,
		APIKey:       "hf_test",
		SummaryModel: SummaryModel,
		NERModel:     NERModel,
		MaxLength:    100,
		MinLength:    30,
	}, QuietLogger())
}
