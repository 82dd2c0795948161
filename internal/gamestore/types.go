package gamestore

import "time"

// Summary is the lightweight per-game payload kept in Redis for quick
// "recent games" views.
type Summary struct {
	GameID      string    `json:"game_id"`
	Opponent    string    `json:"opponent"`
	PlayerColor string    `json:"player_color"`
	Result      string    `json:"result"`
	MovesPlayed int       `json:"moves_played"`
	PlayerACPL  float64   `json:"player_acpl"`
	FinishedAt  time.Time `json:"finished_at"`
}

// ArchivedGame is the durable archive row: the full move list plus the
// quality metrics computed by the harness.
type ArchivedGame struct {
	ID           int64
	GameID       string
	Opponent     string
	PlayerColor  string
	Result       string
	MovesUCI     []string
	MoveComments []string
	PlayerACPL   float64
	OpponentACPL float64
	WhiteACPL    float64
	BlackACPL    float64
	StartedAt    time.Time
	EndedAt      time.Time
	Duration     time.Duration
}
