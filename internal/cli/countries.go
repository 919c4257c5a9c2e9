package cli

import (
	"context"
	"log"
	"time"

	"flagquiz-service/internal/config"
	pgstore "flagquiz-service/internal/infra/postgres"
	rediscache "flagquiz-service/internal/infra/redis"
	"flagquiz-service/internal/infra/restcountries"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewCountriesCmd loads the country reference set from the REST Countries
// API into Postgres. Idempotent: reruns refresh existing rows.
func NewCountriesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "countries",
		Short: "Load country data from the REST Countries API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return loadCountries(cmd.Context(), *configPath)
		},
	}
}

func loadCountries(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()
	catalog := pgstore.NewCatalog(pool)

	log.Printf("fetching countries from REST Countries API...")
	countries, err := restcountries.NewClient().FetchAll(ctx)
	if err != nil {
		return err
	}
	log.Printf("fetched %d countries", len(countries))

	created, updated := 0, 0
	for _, country := range countries {
		wasNew, err := catalog.Upsert(ctx, country)
		if err != nil {
			return err
		}
		if wasNew {
			created++
		} else {
			updated++
		}
	}
	log.Printf("load complete: %d created, %d updated", created, updated)

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		cache := rediscache.NewCountryCache(client, catalog, time.Minute)
		if err := cache.Invalidate(ctx); err != nil {
			log.Printf("cache invalidation failed (continuing): %v", err)
		}
	}
	return nil
}
