package main

import (
	"log"
	"os"
	"strings"

	"github.com/Bot-Rakshit/sft/internal/evalui"
	"github.com/Bot-Rakshit/sft/internal/gamelog"
	"github.com/Bot-Rakshit/sft/internal/obslog"
	"github.com/Bot-Rakshit/sft/internal/render"
)

// The eval UI only needs the logs directory and a listen address, so it
// reads those two directly instead of demanding the full agent config.
func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	logsDir := strings.TrimSpace(os.Getenv("GAME_LOGS_DIR"))
	if logsDir == "" {
		logsDir = "game_logs"
	}
	addr := strings.TrimSpace(os.Getenv("EVAL_UI_ADDR"))
	if addr == "" {
		addr = ":8777"
	}

	logs, err := gamelog.NewStore(logsDir)
	if err != nil {
		log.Fatalf("game log store: %v", err)
	}

	srv := evalui.NewServer(logs, render.NewRenderer(), logger)
	if err := srv.ListenAndServe(addr); err != nil {
		log.Fatalf("eval ui server: %v", err)
	}
}
