package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"flagquiz-service/internal/app"
	"flagquiz-service/internal/domain"
	pgstore "flagquiz-service/internal/infra/postgres"
	pgmigrations "flagquiz-service/internal/infra/postgres/migrations"
	infraredis "flagquiz-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestDailyChallengeEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	runMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	catalog := pgstore.NewCatalog(pool)
	for _, country := range seedCountries() {
		created, err := catalog.Upsert(ctx, country)
		if err != nil {
			t.Fatalf("upsert %s: %v", country.Code, err)
		}
		if !created {
			t.Fatalf("expected fresh insert for %s", country.Code)
		}
	}
	// Reruns refresh in place and report the row as updated, not created.
	created, err := catalog.Upsert(ctx, seedCountries()[0])
	if err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	if created {
		t.Fatalf("expected refresh on second upsert, got created")
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	cached := infraredis.NewCountryCache(redisClient, catalog, 5*time.Minute)

	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	service := app.NewChallengeServiceWithClock(
		cached,
		pgstore.NewChallengeStore(pool),
		pgstore.NewLedgerStore(pool),
		pgstore.NewStatsStore(pool),
		func() time.Time { return now },
		rand.New(rand.NewSource(1)),
	)
	service.SetResetLocation(time.UTC)

	// Both users resolve the same challenge.
	alice, err := service.Today(ctx, "alice")
	if err != nil {
		t.Fatalf("today alice: %v", err)
	}
	bob, err := service.Today(ctx, "bob")
	if err != nil {
		t.Fatalf("today bob: %v", err)
	}
	if alice.ChallengeID != bob.ChallengeID || alice.Question.ID != bob.Question.ID {
		t.Fatalf("users diverged: %q vs %q", alice.Question.ID, bob.Question.ID)
	}
	if alice.Canonical != nil || alice.CountryName != "" {
		t.Fatalf("answer material leaked pre-terminal: %+v", alice)
	}

	// The question ID carries the country code; solve by looking it up.
	code := alice.Question.ID[strings.LastIndex(alice.Question.ID, "-")+1:]
	country, err := service.Country(ctx, code)
	if err != nil {
		t.Fatalf("country %s: %v", code, err)
	}

	miss, err := service.Submit(ctx, "alice", domain.Answer{Text: "atlantis"})
	if err != nil {
		t.Fatalf("submit miss: %v", err)
	}
	if miss.Correct || miss.AttemptsRemaining != 2 {
		t.Fatalf("unexpected miss result %+v", miss)
	}

	hit, err := service.Submit(ctx, "alice", domain.Answer{Text: country.Name})
	if err != nil {
		t.Fatalf("submit hit: %v", err)
	}
	if !hit.Correct || hit.State != domain.StateSolved {
		t.Fatalf("expected solve, got %+v", hit)
	}
	if hit.CountryName != country.Name || hit.Canonical == nil {
		t.Fatalf("expected answer revealed on solve, got %+v", hit)
	}

	if _, err := service.Submit(ctx, "alice", domain.Answer{Text: country.Name}); !errors.Is(err, domain.ErrChallengeAlreadyResolved) {
		t.Fatalf("expected rejection after solve, got %v", err)
	}

	stats, err := service.Stats(ctx, "alice")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.CurrentStreak != 1 || stats.TotalCorrect != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	// Bob never played; his view of the solved challenge stays sealed.
	bob, err = service.Today(ctx, "bob")
	if err != nil {
		t.Fatalf("today bob: %v", err)
	}
	if bob.Canonical != nil || bob.State != domain.StateOpen {
		t.Fatalf("alice's solve leaked into bob's view: %+v", bob)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "flagquiz", "POSTGRES_PASSWORD": "flagpass", "POSTGRES_DB": "flagdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://flagquiz:flagpass@%s:%s/flagdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func runMigrations(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func seedCountries() []domain.Country {
	return []domain.Country{
		{
			Code:       "FRA",
			Name:       "France",
			Alternates: []string{"french republic"},
			FlagEmoji:  "🇫🇷",
			FlagSVGURL: "https://flagcdn.com/fr.svg",
			FlagPNGURL: "https://flagcdn.com/w320/fr.png",
			Capital:    "Paris",
			Region:     "Europe",
		},
		{
			Code:       "JPN",
			Name:       "Japan",
			FlagEmoji:  "🇯🇵",
			FlagSVGURL: "https://flagcdn.com/jp.svg",
			FlagPNGURL: "https://flagcdn.com/w320/jp.png",
			Capital:    "Tokyo",
			Region:     "Asia",
		},
		{
			Code:       "BRA",
			Name:       "Brazil",
			FlagEmoji:  "🇧🇷",
			FlagSVGURL: "https://flagcdn.com/br.svg",
			FlagPNGURL: "https://flagcdn.com/w320/br.png",
			Capital:    "Brasília",
			Region:     "Americas",
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
