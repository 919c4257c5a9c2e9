package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flagquiz-service/internal/app"
	"flagquiz-service/internal/config"
	"flagquiz-service/internal/domain"
	"flagquiz-service/internal/infra/memory"
	pgstore "flagquiz-service/internal/infra/postgres"
	rediscache "flagquiz-service/internal/infra/redis"
	transport "flagquiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daily challenge server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var (
		catalog    app.CountryCatalog
		challenges app.ChallengeStore
		ledgers    app.LedgerStore
		stats      app.StatsStore
	)
	if pool != nil {
		catalog = pgstore.NewCatalog(pool)
		challenges = pgstore.NewChallengeStore(pool)
		ledgers = pgstore.NewLedgerStore(pool)
		stats = pgstore.NewStatsStore(pool)
	} else {
		log.Printf("postgres not configured; using in-memory stores with sample countries")
		catalog = memory.NewCatalog(sampleCountries())
		challenges = memory.NewChallengeStore()
		ledgers = memory.NewLedgerStore()
		stats = memory.NewStatsStore()
	}

	if redisClient != nil {
		catalogTTL := config.Duration(cfg.Redis.TTL, 10*time.Minute)
		catalog = rediscache.NewCountryCache(redisClient, catalog, catalogTTL)
	}

	service := app.NewChallengeService(catalog, challenges, ledgers, stats)
	if cfg.Daily.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Daily.Timezone)
		if err != nil {
			return err
		}
		service.SetResetLocation(loc)
	}
	service.SetStoreTimeout(config.Duration(cfg.Daily.StoreTimeout, 5*time.Second))

	api := transport.NewAPI(service)
	live := transport.NewLiveHandler(service.Feed())

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	api.Register(mux)
	mux.HandleFunc("/ws/live", live.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting flag challenge service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleCountries is a minimal demo catalog; run the countries command with
// Postgres configured for the full reference set.
func sampleCountries() []domain.Country {
	return []domain.Country{
		{
			Code: "FRA", Name: "France",
			Alternates: []string{"french republic"},
			FlagEmoji:  "🇫🇷",
			FlagSVGURL: "https://flagcdn.com/fr.svg",
			FlagPNGURL: "https://flagcdn.com/w320/fr.png",
			Capital:    "Paris", LargestCity: "Paris", Region: "Europe",
			Population: 67391582, AreaKm2: 551695,
			Latitude: 46, Longitude: 2,
			Languages:  []string{"French"},
			Currencies: map[string]domain.Currency{"EUR": {Name: "Euro", Symbol: "€"}},
		},
		{
			Code: "JPN", Name: "Japan",
			Alternates: []string{"nippon", "nihon"},
			FlagEmoji:  "🇯🇵",
			FlagSVGURL: "https://flagcdn.com/jp.svg",
			FlagPNGURL: "https://flagcdn.com/w320/jp.png",
			Capital:    "Tokyo", LargestCity: "Tokyo", Region: "Asia",
			Population: 125836021, AreaKm2: 377930,
			Latitude: 36, Longitude: 138,
			Languages:  []string{"Japanese"},
			Currencies: map[string]domain.Currency{"JPY": {Name: "Japanese yen", Symbol: "¥"}},
		},
		{
			Code: "BRA", Name: "Brazil",
			Alternates: []string{"brasil"},
			FlagEmoji:  "🇧🇷",
			FlagSVGURL: "https://flagcdn.com/br.svg",
			FlagPNGURL: "https://flagcdn.com/w320/br.png",
			Capital:    "Brasília", LargestCity: "São Paulo", Region: "Americas",
			Population: 212559409, AreaKm2: 8515767,
			Latitude: -10, Longitude: -55,
			Languages:  []string{"Portuguese"},
			Currencies: map[string]domain.Currency{"BRL": {Name: "Brazilian real", Symbol: "R$"}},
		},
		{
			Code: "KEN", Name: "Kenya",
			FlagEmoji:  "🇰🇪",
			FlagSVGURL: "https://flagcdn.com/ke.svg",
			FlagPNGURL: "https://flagcdn.com/w320/ke.png",
			Capital:    "Nairobi", LargestCity: "Nairobi", Region: "Africa",
			Population: 53771300, AreaKm2: 580367,
			Latitude: 1, Longitude: 38,
			Languages:  []string{"Swahili", "English"},
			Currencies: map[string]domain.Currency{"KES": {Name: "Kenyan shilling", Symbol: "Sh"}},
		},
		{
			Code: "CAN", Name: "Canada",
			FlagEmoji:  "🇨🇦",
			FlagSVGURL: "https://flagcdn.com/ca.svg",
			FlagPNGURL: "https://flagcdn.com/w320/ca.png",
			Capital:    "Ottawa", LargestCity: "Toronto", Region: "Americas",
			Population: 38005238, AreaKm2: 9984670,
			Latitude: 60, Longitude: -95,
			Languages:  []string{"English", "French"},
			Currencies: map[string]domain.Currency{"CAD": {Name: "Canadian dollar", Symbol: "$"}},
		},
	}
}
