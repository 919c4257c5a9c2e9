package memory

import (
	"context"
	"sync"

	"flagquiz-service/internal/domain"
)

// LedgerStore is an in-memory implementation of app.LedgerStore with an
// optimistic version check: a save succeeds only against the version the
// ledger was loaded at, so concurrent submissions for one (user, challenge)
// pair serialize and the loser retries.
type LedgerStore struct {
	mu      sync.RWMutex
	ledgers map[string]domain.AttemptLedger
}

func NewLedgerStore() *LedgerStore {
	return &LedgerStore{ledgers: make(map[string]domain.AttemptLedger)}
}

func (s *LedgerStore) Get(_ context.Context, userID, challengeID string) (domain.AttemptLedger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ledger, ok := s.ledgers[ledgerKey(userID, challengeID)]
	if !ok {
		return domain.AttemptLedger{}, domain.ErrLedgerNotFound
	}
	return cloneLedger(ledger), nil
}

func (s *LedgerStore) Save(_ context.Context, ledger domain.AttemptLedger) error {
	key := ledgerKey(ledger.UserID, ledger.ChallengeID)
	s.mu.Lock()
	defer s.mu.Unlock()
	current, exists := s.ledgers[key]
	if exists {
		if current.Version != ledger.Version {
			return domain.ErrVersionConflict
		}
	} else if ledger.Version != 0 {
		return domain.ErrVersionConflict
	}
	ledger.Version++
	s.ledgers[key] = cloneLedger(ledger)
	return nil
}

func ledgerKey(userID, challengeID string) string {
	return userID + "|" + challengeID
}

// cloneLedger copies the attempts slice so callers cannot mutate stored state.
func cloneLedger(l domain.AttemptLedger) domain.AttemptLedger {
	attempts := make([]domain.Attempt, len(l.Attempts))
	copy(attempts, l.Attempts)
	l.Attempts = attempts
	return l
}
