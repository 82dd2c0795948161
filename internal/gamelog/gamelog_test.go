package gamelog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func sampleRecord(id string) Record {
	return Record{
		GameID:      id,
		Timestamp:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Opponent:    "stockfish-skill-3",
		PlayerColor: "white",
		Result:      "win",
		MovesPlayed: 2,
		PlayerACPL:  18.5,
		WhiteACPL:   18.5,
		BlackACPL:   240,
		MoveHistory: []string{"e2e4", "e7e5"},
	}
}

func TestWriteLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	want := sampleRecord("game-abc-123")

	if err := store.Write(want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := store.Load("game-abc-123")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.GameID != want.GameID || got.Result != want.Result || got.PlayerACPL != want.PlayerACPL {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if len(got.MoveHistory) != 2 || got.MoveHistory[0] != "e2e4" {
		t.Fatalf("move history = %v", got.MoveHistory)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := newTestStore(t)
	for _, id := range []string{"old-game", "new-game"} {
		if err := store.Write(sampleRecord(id)); err != nil {
			t.Fatalf("Write %s: %v", id, err)
		}
	}
	// Push the first file's mtime into the past; List orders by mtime.
	past := time.Now().Add(-time.Hour)
	oldPath := storePath(store, "old-game")
	if err := os.Chtimes(oldPath, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	ids, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 2 || ids[0] != "new-game" || ids[1] != "old-game" {
		t.Fatalf("ids = %v, want [new-game old-game]", ids)
	}
}

func TestLoadMissing(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Load("never-written"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGameIDValidation(t *testing.T) {
	store := newTestStore(t)
	for _, id := range []string{"", "../../etc/passwd", "a/b", "x y", "dot.dot"} {
		if _, err := store.Load(id); !errors.Is(err, ErrBadGameID) {
			t.Fatalf("Load(%q) err = %v, want ErrBadGameID", id, err)
		}
		if err := store.Write(sampleRecord(id)); !errors.Is(err, ErrBadGameID) {
			t.Fatalf("Write(%q) err = %v, want ErrBadGameID", id, err)
		}
	}
}

func storePath(s *Store, id string) string {
	return filepath.Join(s.dir, id+".json")
}
