package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/contextwise/internal/apperr"
	"github.com/starford/contextwise/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "contextwise-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func strPtr(s string) *string { return &s }

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"users", "sessions", "notes", "tags"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestInsertNoteAndList(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	n, err := db.InsertNote(ctx, "u1", "Trip", "John works at Acme Corp in Paris", strPtr("John at Acme"))
	if err != nil {
		t.Fatalf("InsertNote: %v", err)
	}
	if n.ID == "" {
		t.Fatal("expected generated id")
	}

	err = db.InsertTags(ctx, []models.Tag{
		{NoteID: n.ID, UserID: "u1", Name: "John"},
		{NoteID: n.ID, UserID: "u1", Name: "Acme Corp"},
		{NoteID: n.ID, UserID: "u1", Name: "Paris"},
	})
	if err != nil {
		t.Fatalf("InsertTags: %v", err)
	}

	notes, err := db.ListNotesForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListNotesForUser: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("len(notes) = %d, want 1", len(notes))
	}
	got := notes[0]
	if got.Summary == nil || *got.Summary != "John at Acme" {
		t.Errorf("summary = %v", got.Summary)
	}
	names := got.TagNames()
	want := []string{"John", "Acme Corp", "Paris"}
	if len(names) != len(want) {
		t.Fatalf("tags = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("tag[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestInsertNoteWithoutSummary(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	if _, err := db.InsertNote(ctx, "u1", "t", "c", nil); err != nil {
		t.Fatalf("InsertNote: %v", err)
	}
	notes, _ := db.ListNotesForUser(ctx, "u1")
	if len(notes) != 1 || notes[0].Summary != nil {
		t.Errorf("expected one note with nil summary, got %+v", notes)
	}
	if notes[0].Tags == nil {
		t.Error("tags should be an empty slice, not nil")
	}
}

func TestListNotesNewestFirst(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	db.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	for _, title := range []string{"first", "second", "third"} {
		if _, err := db.InsertNote(ctx, "u1", title, "body", nil); err != nil {
			t.Fatal(err)
		}
	}
	notes, err := db.ListNotesForUser(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 3 || notes[0].Title != "third" || notes[2].Title != "first" {
		t.Errorf("order = %v", titles(notes))
	}
}

func TestListNotesSameTimestampUsesInsertionOrder(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return fixed }

	_, _ = db.InsertNote(ctx, "u1", "a", "body", nil)
	_, _ = db.InsertNote(ctx, "u1", "b", "body", nil)

	notes, _ := db.ListNotesForUser(ctx, "u1")
	if len(notes) != 2 || notes[0].Title != "b" {
		t.Errorf("order = %v, want [b a]", titles(notes))
	}
}

func TestListScopedToOwner(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	mine, _ := db.InsertNote(ctx, "u1", "mine", "c", nil)
	theirs, _ := db.InsertNote(ctx, "u2", "theirs", "c", nil)
	_ = db.InsertTags(ctx, []models.Tag{{NoteID: mine.ID, UserID: "u1", Name: "Alice"}})
	_ = db.InsertTags(ctx, []models.Tag{{NoteID: theirs.ID, UserID: "u2", Name: "Bob"}})

	notes, _ := db.ListNotesForUser(ctx, "u1")
	if len(notes) != 1 || notes[0].Title != "mine" {
		t.Errorf("notes = %v", titles(notes))
	}
	tags, _ := db.ListDistinctTagNames(ctx, "u1")
	if len(tags) != 1 || tags[0] != "Alice" {
		t.Errorf("tags = %v", tags)
	}
}

func TestListDistinctTagNamesDeduplicates(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a, _ := db.InsertNote(ctx, "u1", "a", "c", nil)
	b, _ := db.InsertNote(ctx, "u1", "b", "c", nil)
	_ = db.InsertTags(ctx, []models.Tag{
		{NoteID: a.ID, UserID: "u1", Name: "Paris"},
		{NoteID: a.ID, UserID: "u1", Name: "Alice"},
	})
	_ = db.InsertTags(ctx, []models.Tag{{NoteID: b.ID, UserID: "u1", Name: "Paris"}})

	tags, err := db.ListDistinctTagNames(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 2 || tags[0] != "Alice" || tags[1] != "Paris" {
		t.Errorf("tags = %v, want [Alice Paris]", tags)
	}
}

func TestInsertTagsUnknownNoteFails(t *testing.T) {
	db := testDB(t)
	err := db.InsertTags(context.Background(), []models.Tag{
		{NoteID: "missing", UserID: "u1", Name: "x"},
	})
	if err == nil {
		t.Fatal("expected foreign key violation")
	}
}

func TestInsertTagsAllOrNothing(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	n, _ := db.InsertNote(ctx, "u1", "t", "c", nil)

	err := db.InsertTags(ctx, []models.Tag{
		{NoteID: n.ID, UserID: "u1", Name: "ok"},
		{NoteID: "missing", UserID: "u1", Name: "bad"},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	tags, _ := db.ListDistinctTagNames(ctx, "u1")
	if len(tags) != 0 {
		t.Errorf("partial tag write survived: %v", tags)
	}
}

func TestDeleteNoteCascadesTags(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	n, _ := db.InsertNote(ctx, "u1", "t", "c", nil)
	_ = db.InsertTags(ctx, []models.Tag{{NoteID: n.ID, UserID: "u1", Name: "Paris"}})

	if err := db.DeleteNote(ctx, "u1", n.ID); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	notes, _ := db.ListNotesForUser(ctx, "u1")
	tags, _ := db.ListDistinctTagNames(ctx, "u1")
	if len(notes) != 0 || len(tags) != 0 {
		t.Errorf("leftovers: notes=%d tags=%v", len(notes), tags)
	}
}

func TestDeleteNoteOtherOwner(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	n, _ := db.InsertNote(ctx, "u1", "t", "c", nil)
	if err := db.DeleteNote(ctx, "u2", n.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUsersAndSessions(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	u, err := db.CreateUser(ctx, "a@example.com", "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := db.CreateUser(ctx, "a@example.com", "hash"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate err = %v, want ErrAlreadyExists", err)
	}

	got, err := db.GetUserByEmail(ctx, "a@example.com")
	if err != nil || got.ID != u.ID {
		t.Fatalf("GetUserByEmail = %+v, %v", got, err)
	}
	if _, err := db.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing user err = %v", err)
	}

	s := models.Session{ID: "s1", UserID: u.ID, ExpiresAt: time.Now().Add(time.Hour)}
	if err := db.CreateSession(ctx, s); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	gs, err := db.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if gs.Email != "a@example.com" || gs.UserID != u.ID {
		t.Errorf("session = %+v", gs)
	}

	if err := db.DeleteSession(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetSession(ctx, "s1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("deleted session err = %v", err)
	}
}

func TestExpiredSessions(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	u, _ := db.CreateUser(ctx, "b@example.com", "hash")
	_ = db.CreateSession(ctx, models.Session{ID: "old", UserID: u.ID, ExpiresAt: time.Now().Add(-time.Minute)})

	if _, err := db.GetSession(ctx, "old"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expired session err = %v", err)
	}
	n, err := db.DeleteExpiredSessions(ctx)
	if err != nil || n != 1 {
		t.Errorf("purged = %d, %v", n, err)
	}
}

func titles(notes []models.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.Title
	}
	return out
}
