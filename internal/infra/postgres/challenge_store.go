package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"flagquiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ChallengeStore persists daily challenges in Postgres. The date primary key
// makes Create an atomic create-if-absent: ON CONFLICT DO NOTHING reports
// zero rows to the loser of a race.
type ChallengeStore struct {
	pool *pgxpool.Pool
}

func NewChallengeStore(pool *pgxpool.Pool) *ChallengeStore {
	return &ChallengeStore{pool: pool}
}

func (s *ChallengeStore) GetByDate(ctx context.Context, date time.Time) (domain.DailyChallenge, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM daily_challenges WHERE challenge_date=$1`, date).Scan(&raw)
	if err == pgx.ErrNoRows {
		return domain.DailyChallenge{}, domain.ErrChallengeNotFound
	}
	if err != nil {
		return domain.DailyChallenge{}, fmt.Errorf("load challenge: %w", err)
	}
	var ch domain.DailyChallenge
	if err := json.Unmarshal(raw, &ch); err != nil {
		return domain.DailyChallenge{}, fmt.Errorf("unmarshal challenge: %w", err)
	}
	return ch, nil
}

func (s *ChallengeStore) Create(ctx context.Context, ch domain.DailyChallenge) error {
	raw, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO daily_challenges (challenge_date, cycle, country_code, data)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (challenge_date) DO NOTHING`,
		ch.Date, ch.Cycle, ch.CountryCode, raw)
	if err != nil {
		return fmt.Errorf("create challenge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrChallengeExists
	}
	return nil
}

func (s *ChallengeStore) CycleState(ctx context.Context) (int, []string, error) {
	var cycle int
	if err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(cycle), 0) FROM daily_challenges`).Scan(&cycle); err != nil {
		return 0, nil, fmt.Errorf("read max cycle: %w", err)
	}
	if cycle == 0 {
		return 0, nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT country_code FROM daily_challenges WHERE cycle=$1`, cycle)
	if err != nil {
		return 0, nil, fmt.Errorf("read cycle codes: %w", err)
	}
	defer rows.Close()
	var used []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return 0, nil, fmt.Errorf("scan cycle code: %w", err)
		}
		used = append(used, code)
	}
	return cycle, used, rows.Err()
}

func (s *ChallengeStore) ListBefore(ctx context.Context, date time.Time, limit int) ([]domain.DailyChallenge, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM daily_challenges WHERE challenge_date < $1
		 ORDER BY challenge_date DESC LIMIT $2`, date, limit)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	defer rows.Close()
	var out []domain.DailyChallenge
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan challenge: %w", err)
		}
		var ch domain.DailyChallenge
		if err := json.Unmarshal(raw, &ch); err != nil {
			return nil, fmt.Errorf("unmarshal challenge: %w", err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}
