package promptcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmbeddedPromptsRender(t *testing.T) {
	cat, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sys, err := cat.Render("agent.system", nil)
	if err != nil {
		t.Fatalf("render system prompt: %v", err)
	}
	if !strings.Contains(sys, "<uci_move>") {
		t.Fatalf("system prompt must mention the move tag, got %q", sys)
	}

	move, err := cat.Render("agent.move", map[string]string{
		"Side":       "White",
		"FEN":        "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"History":    "(none)",
		"LegalMoves": "e2e4 d2d4",
	})
	if err != nil {
		t.Fatalf("render move prompt: %v", err)
	}
	for _, want := range []string{"White", "RNBQKBNR", "e2e4 d2d4"} {
		if !strings.Contains(move, want) {
			t.Fatalf("move prompt missing %q:\n%s", want, move)
		}
	}
}

func TestRenderMissingKey(t *testing.T) {
	cat, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := cat.Render("agent.nope", nil); err == nil {
		t.Fatalf("unknown key must error")
	}
	if _, err := cat.Render("agent.move", map[string]string{"Side": "White"}); err == nil {
		t.Fatalf("missing template data must error")
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	override := "agent:\n  system: |\n    Custom instructions with <uci_move> tag.\n"
	if err := os.WriteFile(filepath.Join(dir, "10-system.yaml"), []byte(override), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	cat, err := New(dir)
	if err != nil {
		t.Fatalf("New with overrides: %v", err)
	}
	sys, err := cat.Render("agent.system", nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(sys, "Custom instructions") {
		t.Fatalf("override not applied: %q", sys)
	}
}

func TestOverrideDuplicateKeyRejected(t *testing.T) {
	dir := t.TempDir()
	body := []byte("agent:\n  system: dup\n")
	for _, name := range []string{"a.yaml", "b.yaml"} {
		if err := os.WriteFile(filepath.Join(dir, name), body, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("duplicate keys across override files must error")
	}
}
