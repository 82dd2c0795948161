package gamestore

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ttlSummary = 7 * 24 * time.Hour

	keySummaryPrefix = "agent:game:"
	keyRecentIndex   = "agent:games:recent"
)

// SummaryStore keeps recent game summaries in Redis with a bounded
// lifetime. The durable history lives in the archive repository; this store
// only feeds dashboards and quick lookups.
type SummaryStore struct{ rdb *redis.Client }

func NewSummaryStore(rdb *redis.Client) *SummaryStore { return &SummaryStore{rdb: rdb} }

func (s *SummaryStore) keySummary(gameID string) string {
	return keySummaryPrefix + strings.TrimSpace(gameID)
}

func (s *SummaryStore) Save(ctx context.Context, sum Summary) error {
	raw, err := json.Marshal(sum)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.keySummary(sum.GameID), raw, ttlSummary).Err(); err != nil {
		return err
	}
	if err := s.rdb.ZAdd(ctx, keyRecentIndex, redis.Z{
		Score:  float64(sum.FinishedAt.Unix()),
		Member: sum.GameID,
	}).Err(); err != nil {
		return err
	}
	return s.rdb.Expire(ctx, keyRecentIndex, ttlSummary).Err()
}

// Load returns nil without error when the summary is absent or expired.
func (s *SummaryStore) Load(ctx context.Context, gameID string) (*Summary, error) {
	raw, err := s.rdb.Get(ctx, s.keySummary(gameID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sum Summary
	if err := json.Unmarshal(raw, &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}

// Recent returns up to limit summaries, newest first. Entries whose summary
// key already expired are dropped from the result and lazily pruned from the
// index.
func (s *SummaryStore) Recent(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 10
	}
	ids, err := s.rdb.ZRevRange(ctx, keyRecentIndex, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		sum, err := s.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		if sum == nil {
			_ = s.rdb.ZRem(ctx, keyRecentIndex, id).Err()
			continue
		}
		out = append(out, *sum)
	}
	return out, nil
}
