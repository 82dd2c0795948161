package gamestore

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestSummaryStore(t *testing.T) (*SummaryStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewSummaryStore(rdb), mr
}

func summaryFixture(id string, finished time.Time) Summary {
	return Summary{
		GameID:      id,
		Opponent:    "stockfish-skill-3",
		PlayerColor: "white",
		Result:      "win",
		MovesPlayed: 42,
		PlayerACPL:  23.7,
		FinishedAt:  finished,
	}
}

func TestSummaryRoundTrip(t *testing.T) {
	store, _ := newTestSummaryStore(t)
	ctx := context.Background()

	want := summaryFixture("g1", time.Unix(1700000000, 0))
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load(ctx, "g1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil || got.GameID != "g1" || got.PlayerACPL != 23.7 || got.MovesPlayed != 42 {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestSummaryLoadAbsent(t *testing.T) {
	store, _ := newTestSummaryStore(t)
	got, err := store.Load(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != nil {
		t.Fatalf("absent key must yield nil, got %+v", got)
	}
}

func TestRecentOrderAndPrune(t *testing.T) {
	store, mr := newTestSummaryStore(t)
	ctx := context.Background()

	base := time.Unix(1700000000, 0)
	for i, id := range []string{"g1", "g2", "g3"} {
		if err := store.Save(ctx, summaryFixture(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Save %s: %v", id, err)
		}
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 || recent[0].GameID != "g3" || recent[1].GameID != "g2" {
		t.Fatalf("recent = %+v, want g3 then g2", recent)
	}

	// Expire one summary; Recent must skip it and prune the index entry.
	mr.Del(keySummaryPrefix + "g3")
	recent, err = store.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent after expiry: %v", err)
	}
	for _, sum := range recent {
		if sum.GameID == "g3" {
			t.Fatalf("expired summary must not be returned")
		}
	}
}
