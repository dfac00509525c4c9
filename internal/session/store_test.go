package session_test

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/session"
)

// generateSession produces an arbitrary sealed session with non-decreasing
// timestamps.
func generateSession(t *rapid.T, id string) *session.Session {
	initial := rapid.String().Draw(t, "initial")
	n := rapid.IntRange(0, 20).Draw(t, "num_events")
	var ts int64
	events := make([]session.CodeEvent, n)
	for i := range events {
		ts += rapid.Int64Range(0, 5000).Draw(t, "gap")
		events[i] = session.CodeEvent{
			Timestamp: ts,
			Type:      rapid.SampledFrom([]session.EventType{session.EventKeypress, session.EventDelete, session.EventPaste}).Draw(t, "type"),
			Data:      rapid.String().Draw(t, "data"),
		}
	}

	var audio session.Audio
	if rapid.Bool().Draw(t, "remote") {
		audio = session.Remote{URL: "https://blobs.example/" + id, ContentType: "audio/ogg"}
	} else {
		audio = session.InMemory{Data: []byte(rapid.String().Draw(t, "audio")), ContentType: "audio/webm"}
	}

	s, err := session.New(session.Params{
		ID: id,
		Metadata: session.Metadata{
			Name:      rapid.StringN(0, 40, -1).Draw(t, "name"),
			CreatedAt: time.Unix(rapid.Int64Range(0, 1_700_000_000).Draw(t, "created"), 0).UTC(),
		},
		EndTime:     ts + rapid.Int64Range(0, 2000).Draw(t, "tail"),
		CodeEvents:  events,
		InitialCode: initial,
		Audio:       audio,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

// Feature: codecast, Property: Draft persistence round-trip
func TestDraftPersistenceRoundTrip(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	store, err := session.NewDraftStore()
	if err != nil {
		t.Fatalf("NewDraftStore: %v", err)
	}

	n := 0
	rapid.Check(t, func(t *rapid.T) {
		n++
		original := generateSession(t, fmt.Sprintf("draft-%d", n))

		if err := store.Save(original); err != nil {
			t.Fatalf("Save: %v", err)
		}
		loaded, err := store.Load(original.ID())
		if err != nil {
			t.Fatalf("Load: %v", err)
		}

		if loaded.ID() != original.ID() {
			t.Errorf("ID mismatch: got %q, want %q", loaded.ID(), original.ID())
		}
		if loaded.EndTime() != original.EndTime() {
			t.Errorf("EndTime mismatch: got %d, want %d", loaded.EndTime(), original.EndTime())
		}
		if loaded.InitialCode() != original.InitialCode() || loaded.FinalCode() != original.FinalCode() {
			t.Errorf("code bounds mismatch")
		}
		if !loaded.Metadata().CreatedAt.Equal(original.Metadata().CreatedAt) {
			t.Errorf("CreatedAt mismatch: got %v, want %v", loaded.Metadata().CreatedAt, original.Metadata().CreatedAt)
		}
		if loaded.Len() != original.Len() {
			t.Fatalf("event count mismatch: got %d, want %d", loaded.Len(), original.Len())
		}
		for i := 0; i < original.Len(); i++ {
			got, want := loaded.Event(i), original.Event(i)
			if got.Timestamp != want.Timestamp || got.Data != want.Data || got.Type != want.Type {
				t.Errorf("event %d mismatch: got %+v, want %+v", i, got, want)
			}
		}

		switch want := original.Audio().(type) {
		case session.InMemory:
			got, ok := loaded.Audio().(session.InMemory)
			if !ok || !bytes.Equal(got.Data, want.Data) || got.ContentType != want.ContentType {
				t.Errorf("audio mismatch: got %+v, want %+v", loaded.Audio(), want)
			}
		case session.Remote:
			got, ok := loaded.Audio().(session.Remote)
			if !ok || got.URL != want.URL {
				t.Errorf("audio mismatch: got %+v, want %+v", loaded.Audio(), want)
			}
		}
	})
}

func TestLoadReturnsErrNoDraft(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	store, err := session.NewDraftStore()
	if err != nil {
		t.Fatalf("NewDraftStore: %v", err)
	}
	if _, err := store.Load("missing"); !errors.Is(err, session.ErrNoDraft) {
		t.Errorf("expected ErrNoDraft, got: %v", err)
	}
}

func TestListAndDelete(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	store, err := session.NewDraftStore()
	if err != nil {
		t.Fatalf("NewDraftStore: %v", err)
	}
	for _, id := range []string{"b", "a"} {
		s, err := session.New(session.Params{ID: id, Audio: session.InMemory{ContentType: "audio/webm"}})
		if err != nil {
			t.Fatal(err)
		}
		if err := store.Save(s); err != nil {
			t.Fatal(err)
		}
	}

	drafts, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(drafts) != 2 || drafts[0].ID() != "a" || drafts[1].ID() != "b" {
		t.Fatalf("List returned unexpected drafts: %d", len(drafts))
	}

	if err := store.Delete("a"); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete("a"); err != nil {
		t.Fatalf("second delete should be a no-op, got %v", err)
	}
	drafts, err = store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(drafts) != 1 {
		t.Fatalf("expected 1 draft after delete, got %d", len(drafts))
	}
}

func TestSaveFailurePropagatesError(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("running as root; permission checks are ineffective")
	}

	tmp := t.TempDir()
	if err := os.Chmod(tmp, 0o000); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { os.Chmod(tmp, 0o755) })
	t.Setenv("XDG_DATA_HOME", tmp)

	if _, err := session.NewDraftStore(); err == nil {
		t.Fatal("expected error creating store in unwritable directory, got nil")
	}
}
