package arena

import (
	"math"
	"testing"

	"github.com/corentings/chess/v2"

	"github.com/Bot-Rakshit/sft/internal/gamelog"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeACPL(t *testing.T) {
	cases := []struct {
		name      string
		evals     []int
		wantWhite float64
		wantBlack float64
	}{
		{
			name:  "empty_trace",
			evals: nil,
		},
		{
			name:  "single_eval",
			evals: []int{30},
		},
		{
			// White plays, eval drops 30 -> -20: loss 50.
			name:      "one_white_move",
			evals:     []int{30, -20},
			wantWhite: 50,
		},
		{
			// Ply 0 (White): 20 -> 10, loss 10.
			// Ply 1 (Black): 10 -> 60, Black persp loss 50.
			// Ply 2 (White): 60 -> 40, loss 20. White avg (10+20)/2.
			name:      "three_plies",
			evals:     []int{20, 10, 60, 40},
			wantWhite: 15,
			wantBlack: 50,
		},
		{
			// Gains clamp to zero loss: eval improving for the mover is a
			// free move, not negative loss.
			name:      "improving_moves_clamped",
			evals:     []int{0, 100, 0, 100},
			wantWhite: 0,
			wantBlack: 100,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			white, black := ComputeACPL(tc.evals)
			if !almostEqual(white, tc.wantWhite) || !almostEqual(black, tc.wantBlack) {
				t.Fatalf("ComputeACPL(%v) = %.2f/%.2f, want %.2f/%.2f",
					tc.evals, white, black, tc.wantWhite, tc.wantBlack)
			}
		})
	}
}

func TestResultForPlayer(t *testing.T) {
	cases := []struct {
		outcome    chess.Outcome
		agentWhite bool
		want       string
	}{
		{chess.WhiteWon, true, "win"},
		{chess.WhiteWon, false, "loss"},
		{chess.BlackWon, true, "loss"},
		{chess.BlackWon, false, "win"},
		{chess.Draw, true, "draw"},
		{chess.NoOutcome, false, "draw"},
	}
	for _, tc := range cases {
		if got := resultForPlayer(tc.outcome, tc.agentWhite); got != tc.want {
			t.Fatalf("resultForPlayer(%v, white=%v) = %q, want %q", tc.outcome, tc.agentWhite, got, tc.want)
		}
	}
}

func TestFormatSummary(t *testing.T) {
	if got := FormatSummary(nil); got != "no games played" {
		t.Fatalf("nil result: %q", got)
	}
	res := &BatchResult{
		Wins: 2, Losses: 1, Draws: 1,
		AvgPlayerACPL: 33.25,
		Records:       make([]gamelog.Record, 4),
	}
	want := "games=4 W/L/D=2/1/1 avg_acpl=33.2"
	if got := FormatSummary(res); got != want {
		t.Fatalf("FormatSummary = %q, want %q", got, want)
	}
}
