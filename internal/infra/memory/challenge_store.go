package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"flagquiz-service/internal/domain"
)

// ChallengeStore is an in-memory implementation of app.ChallengeStore.
// Create is atomic create-if-absent under the store mutex, so concurrent
// resolvers for the same unseen date converge on a single winner.
type ChallengeStore struct {
	mu      sync.RWMutex
	byDate  map[string]domain.DailyChallenge
	ordered []string // date keys, kept sorted for history listings
}

func NewChallengeStore() *ChallengeStore {
	return &ChallengeStore{byDate: make(map[string]domain.DailyChallenge)}
}

func (s *ChallengeStore) GetByDate(_ context.Context, date time.Time) (domain.DailyChallenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.byDate[domain.DateKey(date)]
	if !ok {
		return domain.DailyChallenge{}, domain.ErrChallengeNotFound
	}
	return ch, nil
}

func (s *ChallengeStore) Create(_ context.Context, ch domain.DailyChallenge) error {
	key := domain.DateKey(ch.Date)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byDate[key]; exists {
		return domain.ErrChallengeExists
	}
	s.byDate[key] = ch
	s.ordered = append(s.ordered, key)
	sort.Strings(s.ordered)
	return nil
}

func (s *ChallengeStore) CycleState(_ context.Context) (int, []string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cycle := 0
	for _, ch := range s.byDate {
		if ch.Cycle > cycle {
			cycle = ch.Cycle
		}
	}
	var used []string
	for _, ch := range s.byDate {
		if ch.Cycle == cycle {
			used = append(used, ch.CountryCode)
		}
	}
	return cycle, used, nil
}

func (s *ChallengeStore) ListBefore(_ context.Context, date time.Time, limit int) ([]domain.DailyChallenge, error) {
	cutoff := domain.DateKey(date)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.DailyChallenge, 0, limit)
	// ordered is ascending; walk backwards for newest-first.
	for i := len(s.ordered) - 1; i >= 0 && len(out) < limit; i-- {
		key := s.ordered[i]
		if key >= cutoff {
			continue
		}
		out = append(out, s.byDate[key])
	}
	return out, nil
}
