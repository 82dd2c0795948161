package gamelog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	ErrNotFound  = errors.New("game log not found")
	ErrBadGameID = errors.New("invalid game id")
)

// Record is one finished game as stored on disk, one JSON file per game.
// ACPL is average centipawn loss; the per-side fields let the inspector
// compare the agent against its opponent directly.
type Record struct {
	GameID       string    `json:"game_id"`
	Timestamp    time.Time `json:"timestamp"`
	Opponent     string    `json:"opponent"`
	PlayerColor  string    `json:"player_color"`
	Result       string    `json:"result"`
	MovesPlayed  int       `json:"moves_played"`
	PlayerACPL   float64   `json:"player_acpl"`
	OpponentACPL float64   `json:"opponent_acpl"`
	WhiteACPL    float64   `json:"white_acpl"`
	BlackACPL    float64   `json:"black_acpl"`
	MoveHistory  []string  `json:"move_history"`
	MoveComments []string  `json:"move_comments,omitempty"`
}

// Store reads and writes game records in a single directory.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("game log directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create game log dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Write persists one record under <game_id>.json. The write goes through a
// temp file and rename so a crashed run never leaves a half-written record
// for the UI to choke on.
func (s *Store) Write(rec Record) error {
	if err := validateGameID(rec.GameID); err != nil {
		return err
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	payload, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	final := filepath.Join(s.dir, rec.GameID+".json")
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("finalize record: %w", err)
	}
	return nil
}

// List returns the stored game ids newest-first by file modification time.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read game log dir: %w", err)
	}

	type item struct {
		id    string
		mtime time.Time
	}
	items := make([]item, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		items = append(items, item{
			id:    strings.TrimSuffix(e.Name(), ".json"),
			mtime: info.ModTime(),
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].mtime.Equal(items[j].mtime) {
			return items[i].id > items[j].id
		}
		return items[i].mtime.After(items[j].mtime)
	})

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.id)
	}
	return ids, nil
}

// Load reads one record by game id.
func (s *Store) Load(gameID string) (Record, error) {
	if err := validateGameID(gameID); err != nil {
		return Record{}, err
	}
	raw, err := os.ReadFile(filepath.Join(s.dir, gameID+".json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("read record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("decode record %s: %w", gameID, err)
	}
	return rec, nil
}

// validateGameID rejects ids that could escape the log directory. Accepted
// ids are the UUIDs and timestamped names the harness generates.
func validateGameID(id string) error {
	if id == "" || len(id) > 128 {
		return ErrBadGameID
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return ErrBadGameID
		}
	}
	return nil
}
