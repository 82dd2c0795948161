package arena

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/corentings/chess/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Bot-Rakshit/sft/internal/agent"
	"github.com/Bot-Rakshit/sft/internal/gamelog"
	"github.com/Bot-Rakshit/sft/internal/gamestore"
	"github.com/Bot-Rakshit/sft/internal/uci"
)

const (
	// maxPlies caps runaway games; a game that reaches it scores as a draw.
	maxPlies = 100

	defaultAnalysisDepth    = 10
	defaultOpponentMoveTime = 200 * time.Millisecond
)

type Config struct {
	Games         int
	OpponentSkill int
	// Parallelism bounds concurrently running games. Zero means sequential.
	Parallelism   int
	AnalysisDepth int
	// OpponentMoveTime is the per-move search budget of the opponent engine.
	OpponentMoveTime time.Duration
	// Selector holds the safety-check tuning passed through to each game's
	// selector.
	Selector agent.Config
}

func (c Config) withDefaults() Config {
	if c.Games <= 0 {
		c.Games = 1
	}
	if c.Parallelism <= 0 {
		c.Parallelism = 1
	}
	if c.AnalysisDepth <= 0 {
		c.AnalysisDepth = defaultAnalysisDepth
	}
	if c.OpponentMoveTime <= 0 {
		c.OpponentMoveTime = defaultOpponentMoveTime
	}
	return c
}

// Harness plays complete games between the safety-checked agent and an
// opponent engine, scoring each side's ACPL from an analysis session. Redis
// summaries and the archive repository are optional sinks.
type Harness struct {
	pool      *uci.Pool
	proposer  agent.Proposer
	logs      *gamelog.Store
	summaries *gamestore.SummaryStore
	archive   gamestore.Repository
	logger    *zap.Logger
	cfg       Config
}

func NewHarness(pool *uci.Pool, proposer agent.Proposer, logs *gamelog.Store, cfg Config, logger *zap.Logger) (*Harness, error) {
	if pool == nil {
		return nil, fmt.Errorf("engine pool is required")
	}
	if proposer == nil {
		return nil, fmt.Errorf("move proposer is required")
	}
	if logs == nil {
		return nil, fmt.Errorf("game log store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harness{
		pool:     pool,
		proposer: proposer,
		logs:     logs,
		logger:   logger,
		cfg:      cfg.withDefaults(),
	}, nil
}

// WithSummaryStore attaches the optional Redis summary sink.
func (h *Harness) WithSummaryStore(s *gamestore.SummaryStore) *Harness {
	h.summaries = s
	return h
}

// WithArchive attaches the optional durable archive sink.
func (h *Harness) WithArchive(repo gamestore.Repository) *Harness {
	h.archive = repo
	return h
}

type BatchResult struct {
	Wins, Losses, Draws int
	// AvgPlayerACPL averages the agent's ACPL across finished games.
	AvgPlayerACPL float64
	Records       []gamelog.Record
}

// RunBatch plays the configured number of games with bounded parallelism.
// The agent alternates colors game by game.
func (h *Harness) RunBatch(ctx context.Context) (*BatchResult, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(h.cfg.Parallelism)

	var mu sync.Mutex
	records := make([]gamelog.Record, 0, h.cfg.Games)

	for i := 0; i < h.cfg.Games; i++ {
		agentWhite := i%2 == 0
		g.Go(func() error {
			rec, err := h.PlayGame(ctx, agentWhite)
			if err != nil {
				return err
			}
			mu.Lock()
			records = append(records, rec)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &BatchResult{Records: records}
	var acplSum float64
	for _, rec := range records {
		switch rec.Result {
		case "win":
			res.Wins++
		case "loss":
			res.Losses++
		default:
			res.Draws++
		}
		acplSum += rec.PlayerACPL
	}
	if len(records) > 0 {
		res.AvgPlayerACPL = acplSum / float64(len(records))
	}
	return res, nil
}

// PlayGame runs one full game and persists the record to every configured
// sink before returning it.
func (h *Harness) PlayGame(ctx context.Context, agentWhite bool) (gamelog.Record, error) {
	started := time.Now()

	selectorSession, err := h.pool.Acquire(ctx, uci.Options{})
	if err != nil {
		return gamelog.Record{}, fmt.Errorf("acquire selector session: %w", err)
	}
	selector, err := agent.NewSelector(h.proposer, &pooledEvaluator{pool: h.pool, session: selectorSession}, h.cfg.Selector, h.logger)
	if err != nil {
		h.pool.Release(selectorSession, err)
		return gamelog.Record{}, err
	}
	defer func() { _ = selector.Close() }()

	opponent, err := h.pool.Acquire(ctx, uci.Options{SkillLevel: h.cfg.OpponentSkill})
	if err != nil {
		return gamelog.Record{}, fmt.Errorf("acquire opponent session: %w", err)
	}
	var opponentErr error
	defer func() { h.pool.Release(opponent, opponentErr) }()

	analysis, err := h.pool.Acquire(ctx, uci.Options{})
	if err != nil {
		return gamelog.Record{}, fmt.Errorf("acquire analysis session: %w", err)
	}
	var analysisErr error
	defer func() { h.pool.Release(analysis, analysisErr) }()

	game := chess.NewGame()
	var (
		moves []string
		evals []int
	)

	for ply := 0; ply < maxPlies; ply++ {
		if game.Outcome() != chess.NoOutcome {
			break
		}

		score, err := analysis.Evaluate(ctx, game.FEN(), h.cfg.AnalysisDepth)
		if err != nil {
			analysisErr = err
			return gamelog.Record{}, fmt.Errorf("analyze ply %d: %w", ply, err)
		}
		evals = append(evals, score.Centipawns())

		agentTurn := (game.Position().Turn() == chess.White) == agentWhite
		var mv string
		if agentTurn {
			var ok bool
			mv, ok = selector.SelectMove(ctx, game, true)
			if !ok {
				break
			}
		} else {
			mv, opponentErr = opponent.BestMove(ctx, game.FEN(), h.cfg.OpponentMoveTime)
			if opponentErr != nil {
				return gamelog.Record{}, fmt.Errorf("opponent move at ply %d: %w", ply, opponentErr)
			}
		}

		if err := game.PushNotationMove(mv, chess.UCINotation{}, nil); err != nil {
			return gamelog.Record{}, fmt.Errorf("apply %s at ply %d: %w", mv, ply, err)
		}
		moves = append(moves, mv)
	}

	if score, err := analysis.Evaluate(ctx, game.FEN(), h.cfg.AnalysisDepth); err == nil {
		evals = append(evals, score.Centipawns())
	} else {
		analysisErr = err
	}

	whiteACPL, blackACPL := ComputeACPL(evals)
	rec := h.buildRecord(game, agentWhite, moves, whiteACPL, blackACPL, started)
	h.persist(ctx, rec)

	h.logger.Info("game finished",
		zap.String("game_id", rec.GameID),
		zap.String("result", rec.Result),
		zap.Int("moves", rec.MovesPlayed),
		zap.Float64("player_acpl", rec.PlayerACPL),
	)
	return rec, nil
}

func (h *Harness) buildRecord(game *chess.Game, agentWhite bool, moves []string, whiteACPL, blackACPL float64, started time.Time) gamelog.Record {
	playerColor := "white"
	playerACPL, opponentACPL := whiteACPL, blackACPL
	if !agentWhite {
		playerColor = "black"
		playerACPL, opponentACPL = blackACPL, whiteACPL
	}

	return gamelog.Record{
		GameID:       uuid.NewString(),
		Timestamp:    started.UTC(),
		Opponent:     fmt.Sprintf("stockfish-skill-%d", h.cfg.OpponentSkill),
		PlayerColor:  playerColor,
		Result:       resultForPlayer(game.Outcome(), agentWhite),
		MovesPlayed:  len(moves),
		PlayerACPL:   playerACPL,
		OpponentACPL: opponentACPL,
		WhiteACPL:    whiteACPL,
		BlackACPL:    blackACPL,
		MoveHistory:  moves,
	}
}

func (h *Harness) persist(ctx context.Context, rec gamelog.Record) {
	if err := h.logs.Write(rec); err != nil {
		h.logger.Error("write game log", zap.String("game_id", rec.GameID), zap.Error(err))
	}

	if h.summaries != nil {
		sum := gamestore.Summary{
			GameID:      rec.GameID,
			Opponent:    rec.Opponent,
			PlayerColor: rec.PlayerColor,
			Result:      rec.Result,
			MovesPlayed: rec.MovesPlayed,
			PlayerACPL:  rec.PlayerACPL,
			FinishedAt:  time.Now().UTC(),
		}
		if err := h.summaries.Save(ctx, sum); err != nil {
			h.logger.Error("save game summary", zap.String("game_id", rec.GameID), zap.Error(err))
		}
	}

	if h.archive != nil {
		archived := &gamestore.ArchivedGame{
			GameID:       rec.GameID,
			Opponent:     rec.Opponent,
			PlayerColor:  rec.PlayerColor,
			Result:       rec.Result,
			MovesUCI:     rec.MoveHistory,
			MoveComments: rec.MoveComments,
			PlayerACPL:   rec.PlayerACPL,
			OpponentACPL: rec.OpponentACPL,
			WhiteACPL:    rec.WhiteACPL,
			BlackACPL:    rec.BlackACPL,
			StartedAt:    rec.Timestamp,
			EndedAt:      time.Now().UTC(),
			Duration:     time.Since(rec.Timestamp),
		}
		if _, err := h.archive.InsertGame(ctx, archived); err != nil && !errors.Is(err, gamestore.ErrDuplicateGame) {
			h.logger.Error("archive game", zap.String("game_id", rec.GameID), zap.Error(err))
		}
	}
}

// resultForPlayer maps the board outcome to the agent's point of view. An
// unfinished game (ply cap) counts as a draw.
func resultForPlayer(outcome chess.Outcome, agentWhite bool) string {
	switch outcome {
	case chess.WhiteWon:
		if agentWhite {
			return "win"
		}
		return "loss"
	case chess.BlackWon:
		if agentWhite {
			return "loss"
		}
		return "win"
	default:
		return "draw"
	}
}

// pooledEvaluator lets a Selector use a pooled engine session: Close returns
// the session to the pool instead of killing the process.
type pooledEvaluator struct {
	pool    *uci.Pool
	session *uci.Session
}

func (e *pooledEvaluator) Evaluate(ctx context.Context, fen string, depth int) (uci.Score, error) {
	return e.session.Evaluate(ctx, fen, depth)
}

func (e *pooledEvaluator) Rank(ctx context.Context, fen string, n, depth int) ([]uci.Candidate, error) {
	return e.session.Rank(ctx, fen, n, depth)
}

func (e *pooledEvaluator) BestMove(ctx context.Context, fen string, moveTime time.Duration) (string, error) {
	return e.session.BestMove(ctx, fen, moveTime)
}

func (e *pooledEvaluator) Available() bool { return e.session.Available() }

func (e *pooledEvaluator) Close() error {
	e.pool.Release(e.session, nil)
	return nil
}

var _ agent.Evaluator = (*pooledEvaluator)(nil)

// FormatSummary renders the batch tally for CLI output.
func FormatSummary(res *BatchResult) string {
	if res == nil {
		return "no games played"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "games=%d W/L/D=%d/%d/%d avg_acpl=%.1f",
		len(res.Records), res.Wins, res.Losses, res.Draws, res.AvgPlayerACPL)
	return b.String()
}
