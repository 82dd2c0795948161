package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"github.com/Bot-Rakshit/sft/internal/agent"
	appcfg "github.com/Bot-Rakshit/sft/internal/config"
	"github.com/Bot-Rakshit/sft/internal/modelclient"
	"github.com/Bot-Rakshit/sft/internal/obslog"
	"github.com/Bot-Rakshit/sft/internal/promptcat"
	"github.com/Bot-Rakshit/sft/internal/uci"
)

func main() {
	fen := flag.String("fen", "", "position to analyze (FEN); empty for the start position")
	noChecks := flag.Bool("no-checks", false, "disable the engine safety checks")
	flag.Parse()

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	game, err := gameFromFEN(*fen)
	if err != nil {
		log.Fatalf("position error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	session, err := uci.NewSession(ctx, cfg.StockfishPath, uci.Options{})
	if err != nil {
		log.Fatalf("engine init: %v", err)
	}

	prompts, err := promptcat.New(cfg.PromptOverrideDir)
	if err != nil {
		log.Fatalf("prompt catalog: %v", err)
	}
	client := modelclient.NewClient(cfg.ModelBaseURL,
		modelclient.WithAPIKey(cfg.ModelAPIKey),
		modelclient.WithTimeout(time.Duration(cfg.ModelTimeoutMS)*time.Millisecond),
	)
	proposer, err := modelclient.NewProposer(client, prompts, modelclient.ProposerConfig{Model: cfg.ModelName}, logger)
	if err != nil {
		log.Fatalf("proposer init: %v", err)
	}

	selector, err := agent.NewSelector(proposer, session, agent.Config{
		CheckDepth: cfg.AgentCheckDepth,
		RankDepth:  cfg.AgentRankDepth,
	}, logger)
	if err != nil {
		log.Fatalf("selector init: %v", err)
	}
	defer func() { _ = selector.Close() }()

	legal := make([]string, 0)
	for _, mv := range game.ValidMoves() {
		legal = append(legal, mv.String())
	}

	fmt.Printf("position: %s\n", game.FEN())
	fmt.Printf("legal moves (%d): %s\n", len(legal), strings.Join(legal, " "))

	useChecks := cfg.AgentSafetyChecks && !*noChecks
	move, ok := selector.SelectMove(ctx, game, useChecks)
	if !ok {
		fmt.Println("no legal moves: game over")
		return
	}
	fmt.Printf("selected move: %s\n", move)
	logger.Info("selection complete", zap.String("move", move), zap.Bool("safety_checks", useChecks))
}

func gameFromFEN(fen string) (*chess.Game, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == "startpos" {
		return chess.NewGame(), nil
	}
	option, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen %q: %w", fen, err)
	}
	return chess.NewGame(option), nil
}
