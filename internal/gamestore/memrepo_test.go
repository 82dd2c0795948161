package gamestore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func archivedFixture(gameID string, ended time.Time) *ArchivedGame {
	return &ArchivedGame{
		GameID:      gameID,
		Opponent:    "stockfish-skill-5",
		PlayerColor: "black",
		Result:      "loss",
		MovesUCI:    []string{"e2e4", "e7e5", "g1f3"},
		PlayerACPL:  88.1,
		StartedAt:   ended.Add(-5 * time.Minute),
		EndedAt:     ended,
		Duration:    5 * time.Minute,
	}
}

func TestMemrepoInsertAndGet(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	id, err := repo.InsertGame(ctx, archivedFixture("aaaa-bbbb", time.Unix(1700000000, 0)))
	if err != nil {
		t.Fatalf("InsertGame: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected assigned id")
	}

	got, err := repo.GetGame(ctx, "aaaa-bbbb")
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if got == nil || got.ID != id || len(got.MovesUCI) != 3 {
		t.Fatalf("got %+v", got)
	}

	// Returned copy must not alias stored state.
	got.MovesUCI = nil
	again, _ := repo.GetGame(ctx, "aaaa-bbbb")
	if again == nil || len(again.MovesUCI) != 3 {
		t.Fatalf("stored game mutated through returned copy")
	}
}

func TestMemrepoDuplicate(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	if _, err := repo.InsertGame(ctx, archivedFixture("dup", time.Unix(1700000000, 0))); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := repo.InsertGame(ctx, archivedFixture("dup", time.Unix(1700000500, 0))); !errors.Is(err, ErrDuplicateGame) {
		t.Fatalf("err = %v, want ErrDuplicateGame", err)
	}
}

func TestMemrepoRecentGames(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	base := time.Unix(1700000000, 0)
	for i, id := range []string{"g1", "g2", "g3"} {
		if _, err := repo.InsertGame(ctx, archivedFixture(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("InsertGame %s: %v", id, err)
		}
	}

	recent, err := repo.RecentGames(ctx, 2)
	if err != nil {
		t.Fatalf("RecentGames: %v", err)
	}
	if len(recent) != 2 || recent[0].GameID != "g3" || recent[1].GameID != "g2" {
		t.Fatalf("recent = %v", []string{recent[0].GameID, recent[1].GameID})
	}

	missing, err := repo.GetGame(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("missing game: %v %v", missing, err)
	}
}
