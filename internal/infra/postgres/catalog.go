package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"flagquiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Catalog serves country rows stored as JSONB in Postgres.
type Catalog struct {
	pool *pgxpool.Pool
}

func NewCatalog(pool *pgxpool.Pool) *Catalog {
	return &Catalog{pool: pool}
}

func (c *Catalog) List(ctx context.Context) ([]domain.Country, error) {
	rows, err := c.pool.Query(ctx, `SELECT data FROM countries ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}
	defer rows.Close()

	var countries []domain.Country
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan country: %w", err)
		}
		var country domain.Country
		if err := json.Unmarshal(raw, &country); err != nil {
			return nil, fmt.Errorf("unmarshal country: %w", err)
		}
		countries = append(countries, country)
	}
	return countries, rows.Err()
}

func (c *Catalog) GetByCode(ctx context.Context, code string) (domain.Country, error) {
	var raw []byte
	err := c.pool.QueryRow(ctx, `SELECT data FROM countries WHERE code=$1`, code).Scan(&raw)
	if err == pgx.ErrNoRows {
		return domain.Country{}, domain.ErrCountryNotFound
	}
	if err != nil {
		return domain.Country{}, fmt.Errorf("load country: %w", err)
	}
	var country domain.Country
	if err := json.Unmarshal(raw, &country); err != nil {
		return domain.Country{}, fmt.Errorf("unmarshal country: %w", err)
	}
	return country, nil
}

// Upsert inserts or refreshes a country row. Returns true when the row was
// newly created. Used by the countries load command; the engine itself never
// writes reference data.
func (c *Catalog) Upsert(ctx context.Context, country domain.Country) (bool, error) {
	raw, err := json.Marshal(country)
	if err != nil {
		return false, fmt.Errorf("marshal country: %w", err)
	}
	// xmax = 0 only for a freshly inserted row, so created is decided in the
	// same statement and stays accurate under concurrent loads.
	var created bool
	err = c.pool.QueryRow(ctx,
		`INSERT INTO countries (code, name, data, updated_at) VALUES ($1, $2, $3, now())
		 ON CONFLICT (code) DO UPDATE SET name=EXCLUDED.name, data=EXCLUDED.data, updated_at=now()
		 RETURNING (xmax = 0)`,
		country.Code, country.Name, raw).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert country: %w", err)
	}
	return created, nil
}
