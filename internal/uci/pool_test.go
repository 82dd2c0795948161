package uci

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestMain doubles as a stub UCI engine: when the pool tests spawn the test
// binary as an engine process, the env var below routes it into the stub
// loop instead of the test runner.
func TestMain(m *testing.M) {
	if os.Getenv("UCI_STUB_ENGINE") == "1" {
		runStubEngine()
		os.Exit(0)
	}
	os.Exit(m.Run())
}

// runStubEngine answers the handshake commands a Session sends and records
// every received line to the file named by UCI_STUB_LOG.
func runStubEngine() {
	var logFile *os.File
	if path := os.Getenv("UCI_STUB_LOG"); path != "" {
		logFile, _ = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if logFile != nil {
			fmt.Fprintln(logFile, line)
		}
		switch line {
		case "uci":
			fmt.Println("id name stub-engine")
			fmt.Println("uciok")
		case "isready":
			fmt.Println("readyok")
		case "quit":
			return
		}
	}
}

func TestAcquire_ReusedSessionStartsNewGame(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "engine.log")
	t.Setenv("UCI_STUB_ENGINE", "1")
	t.Setenv("UCI_STUB_LOG", logPath)

	pool, err := NewPool(PoolConfig{BinaryPath: os.Args[0], Capacity: 1})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer func() { _ = pool.Close() }()

	ctx := context.Background()
	first, err := pool.Acquire(ctx, Options{})
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	pool.Release(first, nil)

	second, err := pool.Acquire(ctx, Options{})
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if second != first {
		t.Fatalf("bucket must hand back the idle session")
	}
	pool.Release(second, nil)

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read stub log: %v", err)
	}
	if !strings.Contains(string(data), "ucinewgame") {
		t.Fatalf("reused session must be reset with ucinewgame; engine saw:\n%s", data)
	}
}

func TestRelease_ErroredSessionIsDiscarded(t *testing.T) {
	t.Setenv("UCI_STUB_ENGINE", "1")
	t.Setenv("UCI_STUB_LOG", "")

	pool, err := NewPool(PoolConfig{BinaryPath: os.Args[0], Capacity: 1})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer func() { _ = pool.Close() }()

	ctx := context.Background()
	first, err := pool.Acquire(ctx, Options{})
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	pool.Release(first, fmt.Errorf("search failed"))

	if first.Available() {
		t.Fatalf("errored session must be closed on release")
	}

	second, err := pool.Acquire(ctx, Options{})
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if second == first {
		t.Fatalf("discarded session must not be handed out again")
	}
	pool.Release(second, nil)
}
