package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"flagquiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// StatsStore persists user statistics as JSONB. Writes happen only inside
// the single terminal transition of a ledger, so a plain upsert suffices.
type StatsStore struct {
	pool *pgxpool.Pool
}

func NewStatsStore(pool *pgxpool.Pool) *StatsStore {
	return &StatsStore{pool: pool}
}

func (s *StatsStore) Get(ctx context.Context, userID string) (domain.UserStats, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM user_stats WHERE user_id=$1`, userID).Scan(&raw)
	if err == pgx.ErrNoRows {
		return domain.UserStats{}, domain.ErrStatsNotFound
	}
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("load stats: %w", err)
	}
	var stats domain.UserStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return domain.UserStats{}, fmt.Errorf("unmarshal stats: %w", err)
	}
	return stats, nil
}

func (s *StatsStore) Save(ctx context.Context, stats domain.UserStats) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO user_stats (user_id, data, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (user_id) DO UPDATE SET data=EXCLUDED.data, updated_at=now()`,
		stats.UserID, raw)
	if err != nil {
		return fmt.Errorf("save stats: %w", err)
	}
	return nil
}
