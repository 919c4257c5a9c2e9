package memory

import (
	"context"
	"sort"

	"flagquiz-service/internal/domain"
)

// Catalog is an in-memory country catalog (useful for tests/demos and for
// running without Postgres).
type Catalog struct {
	byCode map[string]domain.Country
	sorted []domain.Country
}

// NewCatalog builds a catalog from a fixed country set.
func NewCatalog(countries []domain.Country) *Catalog {
	byCode := make(map[string]domain.Country, len(countries))
	sorted := make([]domain.Country, len(countries))
	copy(sorted, countries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	for _, c := range sorted {
		byCode[c.Code] = c
	}
	return &Catalog{byCode: byCode, sorted: sorted}
}

func (c *Catalog) List(_ context.Context) ([]domain.Country, error) {
	out := make([]domain.Country, len(c.sorted))
	copy(out, c.sorted)
	return out, nil
}

func (c *Catalog) GetByCode(_ context.Context, code string) (domain.Country, error) {
	country, ok := c.byCode[code]
	if !ok {
		return domain.Country{}, domain.ErrCountryNotFound
	}
	return country, nil
}
