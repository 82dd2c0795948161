package modelclient

import "testing"

func TestParseMove_TaggedMove(t *testing.T) {
	legal := []string{"e2e4", "d2d4", "g1f3"}

	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"plain_tag", "<uci_move>e2e4</uci_move>", "e2e4"},
		{"surrounding_prose", "After some thought I choose <uci_move>g1f3</uci_move> here.", "g1f3"},
		{"whitespace_inside_tag", "<uci_move>\n d2d4 </uci_move>", "d2d4"},
		{"uppercase", "<UCI_MOVE>E2E4</UCI_MOVE>", "e2e4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseMove(tc.raw, legal); got != tc.want {
				t.Fatalf("ParseMove(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestParseMove_ProseFallback(t *testing.T) {
	legal := []string{"e2e4", "d2d4", "g1f3"}

	if got := ParseMove("I think d2d4 controls the center better than g1f3.", legal); got != "d2d4" {
		t.Fatalf("earliest mentioned legal move should win, got %q", got)
	}
	if got := ParseMove("Let's castle: O-O", legal); got != "" {
		t.Fatalf("no legal move mentioned, want empty, got %q", got)
	}
}

func TestParseMove_IllegalTagFallsThrough(t *testing.T) {
	legal := []string{"e7e5", "g8f6"}
	raw := "<uci_move>e2e4</uci_move> though e7e5 is also fine"
	if got := ParseMove(raw, legal); got != "e7e5" {
		t.Fatalf("illegal tag content must fall back to prose scan, got %q", got)
	}
}

func TestParseMove_Promotion(t *testing.T) {
	legal := []string{"a7a8q", "a7a8n", "a7a8"}
	if got := ParseMove("<uci_move>a7a8q</uci_move>", legal); got != "a7a8q" {
		t.Fatalf("promotion suffix must survive parsing, got %q", got)
	}
}

func TestParseMove_NoLegalMoves(t *testing.T) {
	if got := ParseMove("<uci_move>e2e4</uci_move>", nil); got != "" {
		t.Fatalf("empty legal set must yield empty move, got %q", got)
	}
}
