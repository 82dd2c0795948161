package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/Bot-Rakshit/sft/internal/modelclient"
	"github.com/Bot-Rakshit/sft/internal/uci"
)

// Preflight: verifies the engine binary handshakes and the model server
// answers its health endpoint before a long arena run is kicked off.
func main() {
	enginePath := os.Getenv("STOCKFISH_PATH")
	modelURL := os.Getenv("MODEL_BASE_URL")

	if enginePath == "" {
		log.Fatal("STOCKFISH_PATH is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	session, err := uci.NewSession(ctx, enginePath, uci.Options{})
	if err != nil {
		log.Fatalf("engine check failed: %v", err)
	}
	score, err := session.Evaluate(ctx, "", 6)
	if err != nil {
		log.Printf("engine eval error: %v", err)
	} else {
		log.Printf("engine ok: startpos eval %+d cp", score.Centipawns())
	}
	if err := session.Close(); err != nil {
		log.Printf("engine close: %v", err)
	}

	if modelURL == "" {
		log.Println("MODEL_BASE_URL not set; skipping model check")
		return
	}
	client := modelclient.NewClient(modelURL, modelclient.WithTimeout(5*time.Second))
	if err := client.Health(ctx); err != nil {
		log.Printf("model health error: %v", err)
		return
	}
	log.Println("model server ok")
}
