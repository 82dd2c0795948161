package evalui

import (
	"bytes"
	"encoding/json"
	"image/png"
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/Bot-Rakshit/sft/internal/gamelog"
	"github.com/Bot-Rakshit/sft/internal/render"
	"github.com/Bot-Rakshit/sft/pkg/gamedto"
)

func newTestServer(t *testing.T) (*Server, *gamelog.Store) {
	t.Helper()
	logs, err := gamelog.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return NewServer(logs, render.NewRenderer(), nil), logs
}

func doRequest(t *testing.T, srv *Server, path string, method string) *fasthttp.RequestCtx {
	t.Helper()
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	srv.Handler()(&ctx)
	return &ctx
}

func writeFixture(t *testing.T, logs *gamelog.Store, id string, moves []string) {
	t.Helper()
	err := logs.Write(gamelog.Record{
		GameID:      id,
		Timestamp:   time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC),
		Opponent:    "stockfish-skill-4",
		PlayerColor: "white",
		Result:      "win",
		MovesPlayed: len(moves),
		PlayerACPL:  21.5,
		MoveHistory: moves,
	})
	if err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

func TestListGames(t *testing.T) {
	srv, logs := newTestServer(t)
	writeFixture(t, logs, "game-one", []string{"e2e4", "e7e5"})

	ctx := doRequest(t, srv, "/api/games", fasthttp.MethodGet)
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("status = %d", ctx.Response.StatusCode())
	}

	var summaries []gamedto.GameSummary
	if err := json.Unmarshal(ctx.Response.Body(), &summaries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(summaries) != 1 || summaries[0].GameID != "game-one" || summaries[0].MovesPlayed != 2 {
		t.Fatalf("summaries = %+v", summaries)
	}
}

func TestGameDetailReplaysPositions(t *testing.T) {
	srv, logs := newTestServer(t)
	writeFixture(t, logs, "game-two", []string{"e2e4", "e7e5", "g1f3"})

	ctx := doRequest(t, srv, "/api/games/game-two", fasthttp.MethodGet)
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("status = %d body=%s", ctx.Response.StatusCode(), ctx.Response.Body())
	}

	var detail gamedto.GameDetail
	if err := json.Unmarshal(ctx.Response.Body(), &detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(detail.Positions) != 4 {
		t.Fatalf("positions = %d, want initial + 3 plies", len(detail.Positions))
	}
	if detail.Positions[0] != "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1" {
		t.Fatalf("first position = %q", detail.Positions[0])
	}
}

func TestGameDetailStopsAtBadMove(t *testing.T) {
	srv, logs := newTestServer(t)
	writeFixture(t, logs, "game-bad", []string{"e2e4", "zz99", "e7e5"})

	ctx := doRequest(t, srv, "/api/games/game-bad", fasthttp.MethodGet)
	var detail gamedto.GameDetail
	if err := json.Unmarshal(ctx.Response.Body(), &detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(detail.Positions) != 2 {
		t.Fatalf("positions = %d, want replay to stop after the valid prefix", len(detail.Positions))
	}
}

func TestBoardPNG(t *testing.T) {
	srv, logs := newTestServer(t)
	writeFixture(t, logs, "game-png", []string{"e2e4", "e7e5"})

	ctx := doRequest(t, srv, "/api/games/game-png/board/2", fasthttp.MethodGet)
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("status = %d body=%s", ctx.Response.StatusCode(), ctx.Response.Body())
	}
	if ct := string(ctx.Response.Header.ContentType()); ct != "image/png" {
		t.Fatalf("content-type = %q", ct)
	}
	if _, err := png.Decode(bytes.NewReader(ctx.Response.Body())); err != nil {
		t.Fatalf("body is not PNG: %v", err)
	}
}

func TestBoardInvalidPly(t *testing.T) {
	srv, logs := newTestServer(t)
	writeFixture(t, logs, "game-ply", []string{"e2e4"})

	for _, ply := range []string{"-1", "2", "abc"} {
		ctx := doRequest(t, srv, "/api/games/game-ply/board/"+ply, fasthttp.MethodGet)
		if ctx.Response.StatusCode() != fasthttp.StatusBadRequest {
			t.Fatalf("ply %s: status = %d, want 400", ply, ctx.Response.StatusCode())
		}
	}
}

func TestErrorResponses(t *testing.T) {
	srv, _ := newTestServer(t)

	if ctx := doRequest(t, srv, "/api/games/no-such-game", fasthttp.MethodGet); ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("missing game: status = %d", ctx.Response.StatusCode())
	}
	if ctx := doRequest(t, srv, "/api/games/bad.id", fasthttp.MethodGet); ctx.Response.StatusCode() != fasthttp.StatusBadRequest {
		t.Fatalf("malformed id: status = %d", ctx.Response.StatusCode())
	}
	if ctx := doRequest(t, srv, "/api/games", fasthttp.MethodPost); ctx.Response.StatusCode() != fasthttp.StatusMethodNotAllowed {
		t.Fatalf("POST: status = %d", ctx.Response.StatusCode())
	}
	if ctx := doRequest(t, srv, "/nope", fasthttp.MethodGet); ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("unknown path: status = %d", ctx.Response.StatusCode())
	}
}

func TestIndexPage(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := doRequest(t, srv, "/", fasthttp.MethodGet)
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("status = %d", ctx.Response.StatusCode())
	}
	if !bytes.Contains(ctx.Response.Body(), []byte("Agent Game Inspector")) {
		t.Fatalf("index page content missing")
	}
}
