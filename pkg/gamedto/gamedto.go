// Package gamedto holds the wire types of the evaluation UI API.
package gamedto

import "time"

// GameSummary is one row of the game list endpoint.
type GameSummary struct {
	GameID      string    `json:"game_id"`
	Timestamp   time.Time `json:"timestamp"`
	Opponent    string    `json:"opponent"`
	PlayerColor string    `json:"player_color"`
	Result      string    `json:"result"`
	MovesPlayed int       `json:"moves_played"`
	PlayerACPL  float64   `json:"player_acpl"`
}

// GameDetail is the full record plus the replayed position list, one FEN
// per ply starting at the initial position.
type GameDetail struct {
	GameSummary
	OpponentACPL float64  `json:"opponent_acpl"`
	WhiteACPL    float64  `json:"white_acpl"`
	BlackACPL    float64  `json:"black_acpl"`
	MoveHistory  []string `json:"move_history"`
	MoveComments []string `json:"move_comments,omitempty"`
	Positions    []string `json:"positions"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
