package modelclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"github.com/Bot-Rakshit/sft/internal/promptcat"
)

// Proposer asks the model for one move per position. It renders the prompts
// from the catalog and normalizes the completion into a legal UCI move; an
// unusable completion yields an empty move, not an error, so the caller's
// fallback path takes over.
type Proposer struct {
	client  *Client
	prompts *promptcat.Catalog
	logger  *zap.Logger

	model       string
	temperature float64
	maxTokens   int
}

type ProposerConfig struct {
	Model       string
	Temperature float64
	// MaxTokens bounds the completion. Zero lets the server decide.
	MaxTokens int
}

func NewProposer(client *Client, prompts *promptcat.Catalog, cfg ProposerConfig, logger *zap.Logger) (*Proposer, error) {
	if client == nil {
		return nil, fmt.Errorf("model client is required")
	}
	if prompts == nil {
		return nil, fmt.Errorf("prompt catalog is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Proposer{
		client:      client,
		prompts:     prompts,
		logger:      logger,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func (p *Proposer) Propose(ctx context.Context, game *chess.Game) (string, error) {
	legal := legalUCIMoves(game)
	if len(legal) == 0 {
		return "", nil
	}

	system, err := p.prompts.Render("agent.system", nil)
	if err != nil {
		return "", fmt.Errorf("render system prompt: %w", err)
	}
	user, err := p.prompts.Render("agent.move", map[string]string{
		"Side":       sideName(game.Position().Turn()),
		"FEN":        game.FEN(),
		"History":    moveHistory(game),
		"LegalMoves": strings.Join(legal, " "),
	})
	if err != nil {
		return "", fmt.Errorf("render move prompt: %w", err)
	}

	content, err := p.client.ChatCompletion(ctx, ChatRequest{
		Model: p.model,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	mv := ParseMove(content, legal)
	if mv == "" {
		p.logger.Warn("completion contained no legal move",
			zap.String("completion", truncate(content, 256)),
		)
	}
	return mv, nil
}

func legalUCIMoves(game *chess.Game) []string {
	valid := game.ValidMoves()
	moves := make([]string, 0, len(valid))
	for _, mv := range valid {
		moves = append(moves, strings.ToLower(mv.String()))
	}
	return moves
}

func moveHistory(game *chess.Game) string {
	moves := game.Moves()
	if len(moves) == 0 {
		return "(none)"
	}
	parts := make([]string, 0, len(moves))
	for _, mv := range moves {
		parts = append(parts, mv.String())
	}
	return strings.Join(parts, " ")
}

func sideName(c chess.Color) string {
	if c == chess.Black {
		return "Black"
	}
	return "White"
}
