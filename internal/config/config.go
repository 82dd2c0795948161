package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

type AppConfig struct {
	StockfishPath string

	ModelBaseURL   string
	ModelName      string
	ModelAPIKey    string
	ModelTimeoutMS int

	GameLogsDir string
	EvalUIAddr  string

	RedisURL    string
	DatabaseURL string

	PromptOverrideDir string

	AgentSafetyChecks bool
	AgentCheckDepth   int
	AgentRankDepth    int

	ArenaGames         int
	ArenaOpponentSkill int
	ArenaParallelism   int
	ArenaAnalysisDepth int
}

// Load reads the configuration from environment variables. Numeric values
// that fail to parse silently keep their defaults; only the fields no
// component can default are required.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ModelName:          "local-chess-sft",
		ModelTimeoutMS:     120000,
		GameLogsDir:        "game_logs",
		EvalUIAddr:         ":8777",
		AgentSafetyChecks:  true,
		ArenaGames:         10,
		ArenaOpponentSkill: 3,
		ArenaParallelism:   1,
	}

	cfg.StockfishPath = strings.TrimSpace(os.Getenv("STOCKFISH_PATH"))
	cfg.ModelBaseURL = strings.TrimSpace(os.Getenv("MODEL_BASE_URL"))
	cfg.ModelAPIKey = strings.TrimSpace(os.Getenv("MODEL_API_KEY"))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.PromptOverrideDir = strings.TrimSpace(os.Getenv("PROMPT_OVERRIDE_DIR"))

	if v := strings.TrimSpace(os.Getenv("MODEL_NAME")); v != "" {
		cfg.ModelName = v
	}
	if v := strings.TrimSpace(os.Getenv("MODEL_TIMEOUT_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ModelTimeoutMS = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("GAME_LOGS_DIR")); v != "" {
		cfg.GameLogsDir = v
	}
	if v := strings.TrimSpace(os.Getenv("EVAL_UI_ADDR")); v != "" {
		cfg.EvalUIAddr = v
	}

	if v := strings.TrimSpace(os.Getenv("AGENT_SAFETY_CHECKS")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AgentSafetyChecks = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("AGENT_CHECK_DEPTH")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AgentCheckDepth = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("AGENT_RANK_DEPTH")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AgentRankDepth = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("ARENA_GAMES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ArenaGames = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ARENA_OPPONENT_SKILL")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.ArenaOpponentSkill = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ARENA_PARALLELISM")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ArenaParallelism = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ARENA_ANALYSIS_DEPTH")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ArenaAnalysisDepth = n
		}
	}

	if cfg.StockfishPath == "" {
		return nil, errors.New("STOCKFISH_PATH is required")
	}
	if cfg.ModelBaseURL == "" {
		return nil, errors.New("MODEL_BASE_URL is required")
	}

	return cfg, nil
}
