package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"flagquiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// CatalogLoader fetches the country set from a backing store (e.g. Postgres).
type CatalogLoader interface {
	List(ctx context.Context) ([]domain.Country, error)
	GetByCode(ctx context.Context, code string) (domain.Country, error)
}

const countriesKey = "countries:all"

// CountryCache caches the full country list in Redis and falls back to the
// loader on a miss. Reference data is read-heavy and changes only when the
// load command runs, so one list key with a TTL is enough.
type CountryCache struct {
	client *redis.Client
	loader CatalogLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewCountryCache(client *redis.Client, loader CatalogLoader, ttl time.Duration) *CountryCache {
	return &CountryCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CountryCache) List(ctx context.Context) ([]domain.Country, error) {
	if cached, ok := c.fromCache(ctx); ok {
		return cached, nil
	}

	result, err, _ := c.sf.Do(countriesKey, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if cached, ok := c.fromCache(ctx); ok {
			return cached, nil
		}
		countries, err := c.loader.List(ctx)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(countries); err == nil {
			// best-effort fill; a failed set just means another miss later
			_ = c.client.Set(ctx, countriesKey, raw, c.ttlWithJitter()).Err()
		}
		return countries, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Country), nil
}

func (c *CountryCache) GetByCode(ctx context.Context, code string) (domain.Country, error) {
	countries, err := c.List(ctx)
	if err != nil {
		return domain.Country{}, err
	}
	for _, country := range countries {
		if country.Code == code {
			return country, nil
		}
	}
	return domain.Country{}, domain.ErrCountryNotFound
}

// Invalidate drops the cached list; the load command calls this after an
// upsert pass so refreshed data is visible immediately.
func (c *CountryCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, countriesKey).Err()
}

func (c *CountryCache) fromCache(ctx context.Context) ([]domain.Country, bool) {
	raw, err := c.client.Get(ctx, countriesKey).Bytes()
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	var countries []domain.Country
	if err := json.Unmarshal(raw, &countries); err != nil {
		return nil, false
	}
	return countries, true
}

func (c *CountryCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
