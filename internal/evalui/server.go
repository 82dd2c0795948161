package evalui

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/corentings/chess/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/Bot-Rakshit/sft/internal/gamelog"
	"github.com/Bot-Rakshit/sft/internal/render"
	"github.com/Bot-Rakshit/sft/pkg/gamedto"
)

// Server is the game inspector: it lists finished games, replays their
// moves into per-ply positions and renders board snapshots.
type Server struct {
	logs     *gamelog.Store
	renderer *render.Renderer
	logger   *zap.Logger
}

func NewServer(logs *gamelog.Store, renderer *render.Renderer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{logs: logs, renderer: renderer, logger: logger}
}

func (s *Server) ListenAndServe(addr string) error {
	srv := &fasthttp.Server{
		Handler: s.Handler(),
		Name:    "eval-ui",
	}
	s.logger.Info("eval ui listening", zap.String("addr", addr))
	return srv.ListenAndServe(addr)
}

func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if !ctx.IsGet() {
			s.writeError(ctx, fasthttp.StatusMethodNotAllowed, "only GET is supported")
			return
		}

		path := string(ctx.Path())
		switch {
		case path == "/":
			ctx.SetContentType("text/html; charset=utf-8")
			ctx.SetBody(indexHTML)
		case path == "/api/games":
			s.handleList(ctx)
		case strings.HasPrefix(path, "/api/games/"):
			s.routeGame(ctx, strings.TrimPrefix(path, "/api/games/"))
		default:
			s.writeError(ctx, fasthttp.StatusNotFound, "not found")
		}
	}
}

func (s *Server) routeGame(ctx *fasthttp.RequestCtx, rest string) {
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		s.handleDetail(ctx, parts[0])
	case len(parts) == 3 && parts[1] == "board":
		s.handleBoard(ctx, parts[0], parts[2])
	default:
		s.writeError(ctx, fasthttp.StatusNotFound, "not found")
	}
}

func (s *Server) handleList(ctx *fasthttp.RequestCtx) {
	ids, err := s.logs.List()
	if err != nil {
		s.logger.Error("list game logs", zap.Error(err))
		s.writeError(ctx, fasthttp.StatusInternalServerError, "list games failed")
		return
	}

	summaries := make([]gamedto.GameSummary, 0, len(ids))
	for _, id := range ids {
		rec, err := s.logs.Load(id)
		if err != nil {
			s.logger.Warn("skip unreadable game log", zap.String("game_id", id), zap.Error(err))
			continue
		}
		summaries = append(summaries, summaryFromRecord(rec))
	}
	s.writeJSON(ctx, fasthttp.StatusOK, summaries)
}

func (s *Server) handleDetail(ctx *fasthttp.RequestCtx, id string) {
	rec, err := s.loadRecord(ctx, id)
	if err != nil {
		return
	}

	detail := gamedto.GameDetail{
		GameSummary:  summaryFromRecord(rec),
		OpponentACPL: rec.OpponentACPL,
		WhiteACPL:    rec.WhiteACPL,
		BlackACPL:    rec.BlackACPL,
		MoveHistory:  rec.MoveHistory,
		MoveComments: rec.MoveComments,
		Positions:    replayPositions(rec.MoveHistory),
	}
	s.writeJSON(ctx, fasthttp.StatusOK, detail)
}

func (s *Server) handleBoard(ctx *fasthttp.RequestCtx, id, plyRaw string) {
	rec, err := s.loadRecord(ctx, id)
	if err != nil {
		return
	}

	ply, err := strconv.Atoi(plyRaw)
	if err != nil || ply < 0 || ply > len(rec.MoveHistory) {
		s.writeError(ctx, fasthttp.StatusBadRequest, "invalid ply")
		return
	}

	game := chess.NewGame()
	var lastMove *render.MoveHighlight
	notation := chess.UCINotation{}
	for i := 0; i < ply; i++ {
		mv, decodeErr := notation.Decode(game.Position(), rec.MoveHistory[i])
		if decodeErr != nil {
			s.writeError(ctx, fasthttp.StatusBadRequest, "unreplayable move history")
			return
		}
		if pushErr := game.PushNotationMove(rec.MoveHistory[i], notation, nil); pushErr != nil {
			s.writeError(ctx, fasthttp.StatusBadRequest, "unreplayable move history")
			return
		}
		lastMove = &render.MoveHighlight{From: mv.S1(), To: mv.S2()}
	}

	png, err := s.renderer.RenderPNG(context.Background(), game.Position().Board(), render.Options{Highlight: lastMove})
	if err != nil {
		s.logger.Error("render board", zap.String("game_id", id), zap.Error(err))
		s.writeError(ctx, fasthttp.StatusInternalServerError, "render failed")
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("image/png")
	ctx.SetBody(png)
}

func (s *Server) loadRecord(ctx *fasthttp.RequestCtx, id string) (gamelog.Record, error) {
	rec, err := s.logs.Load(id)
	switch {
	case errors.Is(err, gamelog.ErrBadGameID):
		s.writeError(ctx, fasthttp.StatusBadRequest, "invalid game id")
	case errors.Is(err, gamelog.ErrNotFound):
		s.writeError(ctx, fasthttp.StatusNotFound, "game not found")
	case err != nil:
		s.logger.Error("load game log", zap.String("game_id", id), zap.Error(err))
		s.writeError(ctx, fasthttp.StatusInternalServerError, "load game failed")
	}
	return rec, err
}

// replayPositions reconstructs the FEN after every ply, starting with the
// initial position. Replay stops at the first undecodable move so a damaged
// record still shows its valid prefix.
func replayPositions(moves []string) []string {
	game := chess.NewGame()
	positions := make([]string, 0, len(moves)+1)
	positions = append(positions, game.FEN())
	for _, mv := range moves {
		if err := game.PushNotationMove(mv, chess.UCINotation{}, nil); err != nil {
			break
		}
		positions = append(positions, game.FEN())
	}
	return positions
}

func summaryFromRecord(rec gamelog.Record) gamedto.GameSummary {
	return gamedto.GameSummary{
		GameID:      rec.GameID,
		Timestamp:   rec.Timestamp,
		Opponent:    rec.Opponent,
		PlayerColor: rec.PlayerColor,
		Result:      rec.Result,
		MovesPlayed: rec.MovesPlayed,
		PlayerACPL:  rec.PlayerACPL,
	}
}

func (s *Server) writeJSON(ctx *fasthttp.RequestCtx, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.writeError(ctx, fasthttp.StatusInternalServerError, "encode response failed")
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json; charset=utf-8")
	ctx.SetBody(body)
}

func (s *Server) writeError(ctx *fasthttp.RequestCtx, status int, msg string) {
	body, _ := json.Marshal(gamedto.ErrorResponse{Error: msg})
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json; charset=utf-8")
	ctx.SetBody(body)
}
