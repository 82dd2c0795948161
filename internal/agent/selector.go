package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"github.com/Bot-Rakshit/sft/internal/uci"
)

// Policy constants for the tactical safety checks. The comparisons are
// strict: a loss of exactly HangingLossThreshold does not count as hanging.
const (
	// HangingLossThreshold is the centipawn loss above which a candidate is
	// treated as dropping material.
	HangingLossThreshold = 200
	// BlunderLossThreshold is the centipawn loss above which the final
	// shallow-search validation replaces the candidate with the engine's
	// best move.
	BlunderLossThreshold = 150

	hangingAlternatives    = 5
	repetitionAlternatives = 3
)

const (
	DefaultCheckDepth       = 8
	DefaultRankDepth        = 10
	DefaultFallbackMoveTime = 100 * time.Millisecond
)

// Proposer produces at most one candidate move for a position. An empty
// string means no usable move could be obtained; that is a routine outcome,
// not an error.
type Proposer interface {
	Propose(ctx context.Context, game *chess.Game) (string, error)
}

// Evaluator is the reference-engine surface the selector consults. All
// scores are from White's perspective. Close must be safe to call more than
// once.
type Evaluator interface {
	Evaluate(ctx context.Context, fen string, depth int) (uci.Score, error)
	Rank(ctx context.Context, fen string, n, depth int) ([]uci.Candidate, error)
	BestMove(ctx context.Context, fen string, moveTime time.Duration) (string, error)
	Available() bool
	Close() error
}

type Config struct {
	// CheckDepth is the search depth for the per-move safety evaluations.
	CheckDepth int
	// RankDepth is the search depth when asking for ranked alternatives.
	RankDepth int
	// FallbackMoveTime bounds the engine search used when the proposer
	// yields nothing.
	FallbackMoveTime time.Duration
}

func (c Config) withDefaults() Config {
	if c.CheckDepth <= 0 {
		c.CheckDepth = DefaultCheckDepth
	}
	if c.RankDepth <= 0 {
		c.RankDepth = DefaultRankDepth
	}
	if c.FallbackMoveTime <= 0 {
		c.FallbackMoveTime = DefaultFallbackMoveTime
	}
	return c
}

// Selector wraps a move proposer with tactical sanity checks backed by a
// reference engine. One selector serves one game, single-threaded; it owns
// the evaluator handle and releases it on Close.
type Selector struct {
	proposer Proposer
	eval     Evaluator
	cfg      Config
	logger   *zap.Logger

	history []string

	closeOnce sync.Once
	closeErr  error
}

// NewSelector builds a selector. The evaluator may be nil, which disables
// the safety checks but keeps the proposer-miss fallback to the first legal
// move.
func NewSelector(proposer Proposer, eval Evaluator, cfg Config, logger *zap.Logger) (*Selector, error) {
	if proposer == nil {
		return nil, fmt.Errorf("move proposer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{
		proposer: proposer,
		eval:     eval,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}, nil
}

// SelectMove returns the chosen move in UCI notation. The second result is
// false only when the position has no legal moves; the caller treats that as
// game over, not as an error. The returned move is always legal in the given
// position.
func (s *Selector) SelectMove(ctx context.Context, game *chess.Game, useSafetyChecks bool) (string, bool) {
	legal, legalSet := legalMoves(game)
	if len(legal) == 0 {
		return "", false
	}

	candidate, err := s.proposer.Propose(ctx, game)
	if err != nil {
		s.logger.Warn("proposer failed, falling back", zap.Error(err))
		candidate = ""
	}
	candidate = strings.ToLower(strings.TrimSpace(candidate))
	if candidate != "" && !legalSet[candidate] {
		s.logger.Warn("proposer returned illegal move, falling back", zap.String("move", candidate))
		candidate = ""
	}
	if candidate == "" {
		return s.fallbackMove(ctx, game, legal), true
	}

	if useSafetyChecks && s.evaluatorReady() {
		candidate = s.checkHangingPiece(ctx, game, legalSet, candidate)
		candidate = s.checkRepetition(ctx, game, legalSet, candidate)
		candidate = s.checkBlunder(ctx, game, legalSet, candidate)
	}

	s.history = append(s.history, candidate)
	return candidate, true
}

// History returns the moves selected so far, oldest first. Diagnostic only.
func (s *Selector) History() []string {
	return append([]string(nil), s.history...)
}

// Close releases the evaluator's engine process. Safe to call repeatedly;
// the release happens exactly once.
func (s *Selector) Close() error {
	s.closeOnce.Do(func() {
		if s.eval != nil {
			s.closeErr = s.eval.Close()
		}
	})
	return s.closeErr
}

func (s *Selector) evaluatorReady() bool {
	return s.eval != nil && s.eval.Available()
}

// fallbackMove covers the proposer-miss path: a fast engine search when an
// evaluator is present, otherwise the first enumerated legal move. It never
// returns an illegal move.
func (s *Selector) fallbackMove(ctx context.Context, game *chess.Game, legal []string) string {
	if s.evaluatorReady() {
		mv, err := s.eval.BestMove(ctx, game.FEN(), s.cfg.FallbackMoveTime)
		if err != nil {
			s.logger.Warn("engine fallback failed, using first legal move", zap.Error(err))
		} else {
			mv = strings.ToLower(strings.TrimSpace(mv))
			for _, lm := range legal {
				if lm == mv {
					return mv
				}
			}
			s.logger.Warn("engine fallback move not legal, using first legal move", zap.String("move", mv))
		}
	}
	return legal[0]
}

// checkHangingPiece replaces a candidate that drops material with the first
// ranked alternative that does not. When every alternative also hangs
// material the original candidate stays: the least bad known option beats
// stalling.
func (s *Selector) checkHangingPiece(ctx context.Context, game *chess.Game, legalSet map[string]bool, candidate string) string {
	loss, err := s.moveLoss(ctx, game, candidate)
	if err != nil || loss <= HangingLossThreshold {
		return candidate
	}

	s.logger.Info("candidate hangs material, scanning alternatives",
		zap.String("move", candidate),
		zap.Int("loss_cp", loss),
	)

	alts, err := s.eval.Rank(ctx, game.FEN(), hangingAlternatives, s.cfg.RankDepth)
	if err != nil {
		s.logger.Warn("ranked alternatives unavailable, keeping candidate", zap.Error(err))
		return candidate
	}
	for _, alt := range alts {
		mv := strings.ToLower(strings.TrimSpace(alt.Move))
		if !legalSet[mv] {
			continue
		}
		altLoss, err := s.moveLoss(ctx, game, mv)
		if err != nil {
			continue
		}
		if altLoss <= HangingLossThreshold {
			s.logger.Info("substituting non-hanging engine move", zap.String("move", mv))
			return mv
		}
	}

	s.logger.Info("all alternatives hang material, keeping candidate", zap.String("move", candidate))
	return candidate
}

// checkRepetition swaps a candidate whose resulting position was already
// seen for a ranked alternative that breaks the repeat. One prior occurrence
// is enough to trigger avoidance; this is deliberately looser than the
// three-fold rule.
func (s *Selector) checkRepetition(ctx context.Context, game *chess.Game, legalSet map[string]bool, candidate string) string {
	if !wouldRepeat(game, candidate) {
		return candidate
	}

	s.logger.Info("candidate repeats a prior position, scanning alternatives", zap.String("move", candidate))

	alts, err := s.eval.Rank(ctx, game.FEN(), repetitionAlternatives, s.cfg.RankDepth)
	if err != nil {
		s.logger.Warn("ranked alternatives unavailable, keeping candidate", zap.Error(err))
		return candidate
	}
	for _, alt := range alts {
		mv := strings.ToLower(strings.TrimSpace(alt.Move))
		if !legalSet[mv] {
			continue
		}
		if !wouldRepeat(game, mv) {
			s.logger.Info("substituting non-repeating engine move", zap.String("move", mv))
			return mv
		}
	}
	return candidate
}

// checkBlunder is the final shallow-search validation: if the current
// candidate still loses more than BlunderLossThreshold it is replaced by the
// engine's single best move.
func (s *Selector) checkBlunder(ctx context.Context, game *chess.Game, legalSet map[string]bool, candidate string) string {
	loss, err := s.moveLoss(ctx, game, candidate)
	if err != nil || loss <= BlunderLossThreshold {
		return candidate
	}

	s.logger.Info("candidate loses too much, using engine move",
		zap.String("move", candidate),
		zap.Int("loss_cp", loss),
	)

	alts, err := s.eval.Rank(ctx, game.FEN(), 1, s.cfg.RankDepth)
	if err != nil || len(alts) == 0 {
		return candidate
	}
	mv := strings.ToLower(strings.TrimSpace(alts[0].Move))
	if !legalSet[mv] {
		return candidate
	}
	return mv
}

// moveLoss evaluates the position before and after the move, both normalized
// to the mover's perspective, and returns how many centipawns the move gives
// up. Lookahead happens on a disposable clone; the caller's game is never
// touched.
func (s *Selector) moveLoss(ctx context.Context, game *chess.Game, move string) (int, error) {
	before, err := s.eval.Evaluate(ctx, game.FEN(), s.cfg.CheckDepth)
	if err != nil {
		return 0, err
	}

	clone := game.Clone()
	if err := clone.PushNotationMove(move, chess.UCINotation{}, nil); err != nil {
		return 0, fmt.Errorf("apply move %s: %w", move, err)
	}
	after, err := s.eval.Evaluate(ctx, clone.FEN(), s.cfg.CheckDepth)
	if err != nil {
		return 0, err
	}

	mover := game.Position().Turn()
	return toMoverPerspective(before, mover) - toMoverPerspective(after, mover), nil
}

// toMoverPerspective converts a White-perspective score to the side to move.
// All comparison logic goes through here so the checks never special-case
// color.
func toMoverPerspective(score uci.Score, mover chess.Color) int {
	cp := score.Centipawns()
	if mover == chess.Black {
		return -cp
	}
	return cp
}

// wouldRepeat reports whether playing the move recreates a position already
// present in the game's position history.
func wouldRepeat(game *chess.Game, move string) bool {
	clone := game.Clone()
	if err := clone.PushNotationMove(move, chess.UCINotation{}, nil); err != nil {
		return false
	}
	positions := clone.Positions()
	if len(positions) == 0 {
		return false
	}
	key := repetitionKey(positions[len(positions)-1])
	count := 0
	for _, pos := range positions {
		if repetitionKey(pos) == key {
			count++
		}
	}
	return count >= 2
}

// repetitionKey reduces a position to the FEN fields that matter for
// repetition: placement, side to move, castling rights and en-passant
// target. Move counters are ignored.
func repetitionKey(pos *chess.Position) string {
	fields := strings.Fields(pos.String())
	if len(fields) < 4 {
		return pos.String()
	}
	return strings.Join(fields[:4], " ")
}

// legalMoves enumerates the position's legal moves in the library's stable
// generation order, as lowercase UCI strings plus a membership set.
func legalMoves(game *chess.Game) ([]string, map[string]bool) {
	valid := game.ValidMoves()
	moves := make([]string, 0, len(valid))
	set := make(map[string]bool, len(valid))
	for _, mv := range valid {
		uciMove := strings.ToLower(mv.String())
		moves = append(moves, uciMove)
		set[uciMove] = true
	}
	return moves, set
}
