package gamestore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// memrepo is a development-only in-memory Repository used when no database
// is configured.
type memrepo struct {
	mu sync.RWMutex

	nextID int64

	gamesByID     map[int64]*ArchivedGame
	gamesByGameID map[string]*ArchivedGame
}

func NewMemoryRepository() Repository {
	return &memrepo{
		gamesByID:     make(map[int64]*ArchivedGame),
		gamesByGameID: make(map[string]*ArchivedGame),
	}
}

func (m *memrepo) InsertGame(_ context.Context, game *ArchivedGame) (int64, error) {
	if game == nil {
		return 0, fmt.Errorf("nil game payload")
	}
	key := strings.TrimSpace(game.GameID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.gamesByGameID[key]; exists {
		return 0, ErrDuplicateGame
	}

	m.nextID++
	stored := *game
	stored.ID = m.nextID

	m.gamesByID[stored.ID] = &stored
	m.gamesByGameID[key] = &stored
	return stored.ID, nil
}

func (m *memrepo) GetGame(_ context.Context, gameID string) (*ArchivedGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.gamesByGameID[strings.TrimSpace(gameID)]; ok && g != nil {
		out := *g
		return &out, nil
	}
	return nil, nil
}

func (m *memrepo) RecentGames(_ context.Context, limit int) ([]*ArchivedGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]*ArchivedGame, 0, len(m.gamesByID))
	for _, g := range m.gamesByID {
		out := *g
		items = append(items, &out)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].ID > items[j].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
