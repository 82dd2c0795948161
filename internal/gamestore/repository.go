package gamestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrDuplicateGame = errors.New("game already archived")

// Repository is the durable archive of finished games.
type Repository interface {
	InsertGame(ctx context.Context, game *ArchivedGame) (int64, error)
	GetGame(ctx context.Context, gameID string) (*ArchivedGame, error)
	RecentGames(ctx context.Context, limit int) ([]*ArchivedGame, error)
}

type repository struct {
	db *sql.DB
}

// NewRepository wraps a Postgres handle (lib/pq driver). Schema:
//
//	CREATE TABLE agent_games (
//	    id             BIGSERIAL PRIMARY KEY,
//	    game_id        UUID NOT NULL UNIQUE,
//	    opponent       TEXT NOT NULL,
//	    player_color   TEXT NOT NULL,
//	    result         TEXT NOT NULL,
//	    moves_uci      JSONB NOT NULL,
//	    move_comments  JSONB NOT NULL,
//	    player_acpl    DOUBLE PRECISION NOT NULL,
//	    opponent_acpl  DOUBLE PRECISION NOT NULL,
//	    white_acpl     DOUBLE PRECISION NOT NULL,
//	    black_acpl     DOUBLE PRECISION NOT NULL,
//	    started_at     TIMESTAMPTZ NOT NULL,
//	    ended_at       TIMESTAMPTZ NOT NULL,
//	    duration_ms    BIGINT NOT NULL
//	);
func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) InsertGame(ctx context.Context, game *ArchivedGame) (int64, error) {
	if game == nil {
		return 0, fmt.Errorf("nil game payload")
	}

	movesUCI, err := json.Marshal(game.MovesUCI)
	if err != nil {
		return 0, fmt.Errorf("marshal moves_uci: %w", err)
	}
	comments, err := json.Marshal(game.MoveComments)
	if err != nil {
		return 0, fmt.Errorf("marshal move_comments: %w", err)
	}

	const query = `
		INSERT INTO agent_games (
			game_id,
			opponent,
			player_color,
			result,
			moves_uci,
			move_comments,
			player_acpl,
			opponent_acpl,
			white_acpl,
			black_acpl,
			started_at,
			ended_at,
			duration_ms
		)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (game_id) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err = r.db.QueryRowContext(
		ctx,
		query,
		game.GameID,
		game.Opponent,
		game.PlayerColor,
		game.Result,
		movesUCI,
		comments,
		game.PlayerACPL,
		game.OpponentACPL,
		game.WhiteACPL,
		game.BlackACPL,
		game.StartedAt,
		game.EndedAt,
		game.Duration.Milliseconds(),
	).Scan(&id)
	if err == sql.ErrNoRows || (err == nil && !id.Valid) {
		return 0, ErrDuplicateGame
	}
	if err != nil {
		return 0, fmt.Errorf("insert game: %w", err)
	}
	return id.Int64, nil
}

const selectColumns = `
	id,
	game_id,
	opponent,
	player_color,
	result,
	moves_uci,
	move_comments,
	player_acpl,
	opponent_acpl,
	white_acpl,
	black_acpl,
	started_at,
	ended_at,
	duration_ms`

func (r *repository) GetGame(ctx context.Context, gameID string) (*ArchivedGame, error) {
	const query = `
		SELECT` + selectColumns + `
		FROM agent_games
		WHERE game_id = $1
		LIMIT 1`

	game, err := scanGame(r.db.QueryRowContext(ctx, query, gameID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select game: %w", err)
	}
	return game, nil
}

func (r *repository) RecentGames(ctx context.Context, limit int) ([]*ArchivedGame, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `
		SELECT` + selectColumns + `
		FROM agent_games
		ORDER BY ended_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select recent games: %w", err)
	}
	defer rows.Close()

	games := make([]*ArchivedGame, 0, limit)
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, game)
	}
	return games, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*ArchivedGame, error) {
	var (
		game         ArchivedGame
		movesJSON    []byte
		commentsJSON []byte
		durationMS   sql.NullInt64
	)
	if err := row.Scan(
		&game.ID,
		&game.GameID,
		&game.Opponent,
		&game.PlayerColor,
		&game.Result,
		&movesJSON,
		&commentsJSON,
		&game.PlayerACPL,
		&game.OpponentACPL,
		&game.WhiteACPL,
		&game.BlackACPL,
		&game.StartedAt,
		&game.EndedAt,
		&durationMS,
	); err != nil {
		return nil, err
	}
	if durationMS.Valid {
		game.Duration = time.Duration(durationMS.Int64) * time.Millisecond
	}
	if err := json.Unmarshal(movesJSON, &game.MovesUCI); err != nil {
		return nil, fmt.Errorf("unmarshal moves_uci: %w", err)
	}
	if err := json.Unmarshal(commentsJSON, &game.MoveComments); err != nil {
		return nil, fmt.Errorf("unmarshal move_comments: %w", err)
	}
	return &game, nil
}
