package memory

import (
	"context"
	"sync"

	"flagquiz-service/internal/domain"
)

// StatsStore is an in-memory implementation of app.StatsStore.
type StatsStore struct {
	mu    sync.RWMutex
	stats map[string]domain.UserStats
}

func NewStatsStore() *StatsStore {
	return &StatsStore{stats: make(map[string]domain.UserStats)}
}

func (s *StatsStore) Get(_ context.Context, userID string) (domain.UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats, ok := s.stats[userID]
	if !ok {
		return domain.UserStats{}, domain.ErrStatsNotFound
	}
	return cloneStats(stats), nil
}

func (s *StatsStore) Save(_ context.Context, stats domain.UserStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats[stats.UserID] = cloneStats(stats)
	return nil
}

func cloneStats(st domain.UserStats) domain.UserStats {
	codes := make([]string, len(st.IncorrectCodes))
	copy(codes, st.IncorrectCodes)
	st.IncorrectCodes = codes
	st.ByCategory = cloneTallies(st.ByCategory)
	st.ByFormat = cloneTallies(st.ByFormat)
	return st
}

func cloneTallies(in map[string]domain.Tally) map[string]domain.Tally {
	out := make(map[string]domain.Tally, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
