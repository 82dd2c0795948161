package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Bot-Rakshit/sft/internal/agent"
	"github.com/Bot-Rakshit/sft/internal/arena"
	appcfg "github.com/Bot-Rakshit/sft/internal/config"
	"github.com/Bot-Rakshit/sft/internal/gamelog"
	"github.com/Bot-Rakshit/sft/internal/gamestore"
	"github.com/Bot-Rakshit/sft/internal/modelclient"
	"github.com/Bot-Rakshit/sft/internal/obslog"
	"github.com/Bot-Rakshit/sft/internal/promptcat"
	"github.com/Bot-Rakshit/sft/internal/uci"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := uci.NewPool(uci.PoolConfig{BinaryPath: cfg.StockfishPath})
	if err != nil {
		log.Fatalf("engine pool: %v", err)
	}
	defer func() { _ = pool.Close() }()

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

	logs, err := gamelog.NewStore(cfg.GameLogsDir)
	if err != nil {
		log.Fatalf("game log store: %v", err)
	}

	harness, err := arena.NewHarness(pool, proposer, logs, arena.Config{
		Games:         cfg.ArenaGames,
		OpponentSkill: cfg.ArenaOpponentSkill,
		Parallelism:   cfg.ArenaParallelism,
		AnalysisDepth: cfg.ArenaAnalysisDepth,
		Selector: agent.Config{
			CheckDepth: cfg.AgentCheckDepth,
			RankDepth:  cfg.AgentRankDepth,
		},
	}, logger)
	if err != nil {
		log.Fatalf("harness init: %v", err)
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis url: %v", err)
		}
		rdb := redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()
		harness.WithSummaryStore(gamestore.NewSummaryStore(rdb))
	}

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database open: %v", err)
		}
		defer func() { _ = db.Close() }()
		if err := db.PingContext(ctx); err != nil {
			log.Fatalf("database ping: %v", err)
		}
		harness.WithArchive(gamestore.NewRepository(db))
	} else {
		// Dev runs without Postgres still exercise the archive path.
		harness.WithArchive(gamestore.NewMemoryRepository())
	}

	logger.Info("arena starting",
		zap.Int("games", cfg.ArenaGames),
		zap.Int("opponent_skill", cfg.ArenaOpponentSkill),
		zap.Int("parallelism", cfg.ArenaParallelism),
	)

	res, err := harness.RunBatch(ctx)
	if err != nil {
		log.Fatalf("arena run: %v", err)
	}
	fmt.Println(arena.FormatSummary(res))
}
