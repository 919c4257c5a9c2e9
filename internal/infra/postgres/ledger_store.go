package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"flagquiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// LedgerStore persists attempt ledgers with an optimistic version column.
// A save only succeeds against the version the ledger was loaded at; the
// loser of a concurrent submission gets domain.ErrVersionConflict and the
// service retries against the fresh row.
type LedgerStore struct {
	pool *pgxpool.Pool
}

func NewLedgerStore(pool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

func (s *LedgerStore) Get(ctx context.Context, userID, challengeID string) (domain.AttemptLedger, error) {
	var (
		raw     []byte
		version int
	)
	err := s.pool.QueryRow(ctx,
		`SELECT data, version FROM attempt_ledgers WHERE user_id=$1 AND challenge_id=$2`,
		userID, challengeID).Scan(&raw, &version)
	if err == pgx.ErrNoRows {
		return domain.AttemptLedger{}, domain.ErrLedgerNotFound
	}
	if err != nil {
		return domain.AttemptLedger{}, fmt.Errorf("load ledger: %w", err)
	}
	var ledger domain.AttemptLedger
	if err := json.Unmarshal(raw, &ledger); err != nil {
		return domain.AttemptLedger{}, fmt.Errorf("unmarshal ledger: %w", err)
	}
	ledger.Version = version
	return ledger, nil
}

func (s *LedgerStore) Save(ctx context.Context, ledger domain.AttemptLedger) error {
	raw, err := json.Marshal(ledger)
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	if ledger.Version == 0 {
		tag, err := s.pool.Exec(ctx,
			`INSERT INTO attempt_ledgers (user_id, challenge_id, version, data)
			 VALUES ($1, $2, 1, $3)
			 ON CONFLICT (user_id, challenge_id) DO NOTHING`,
			ledger.UserID, ledger.ChallengeID, raw)
		if err != nil {
			return fmt.Errorf("insert ledger: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrVersionConflict
		}
		return nil
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE attempt_ledgers
		 SET data=$3, version=version+1, updated_at=now()
		 WHERE user_id=$1 AND challenge_id=$2 AND version=$4`,
		ledger.UserID, ledger.ChallengeID, raw, ledger.Version)
	if err != nil {
		return fmt.Errorf("update ledger: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}
	return nil
}
