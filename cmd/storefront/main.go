package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"Storefront/internal/catalog"
	"Storefront/internal/config"
	"Storefront/internal/postgrest"
	"Storefront/pkg/kit"
)

const service = "storefront"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log, err := kit.NewLogger(service, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := openBackend(cfg)
	if err != nil {
		log.Fatal("open backend failed", zap.String("backend", cfg.Backend), zap.Error(err))
	}
	defer closeBackend()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store := catalog.NewStore(backend, log)
	store.Timeout = cfg.RequestTimeout
	detach := catalog.Instrument(store, kit.NewQueryMetrics(reg, cfg.Backend))
	defer detach()

	if cfg.Preload {
		if err := store.Refresh(ctx); err != nil {
			log.Warn("initial catalog load failed", zap.Error(err))
		}
	}

	s := &catalog.Server{
		Store:           store,
		Log:             log,
		WriterTokenHash: []byte(cfg.WriterTokenHash),
		WriteLimiter:    kit.NewIPRateLimiter(cfg.WriteLimitPerMin, time.Minute),
	}

	h := catalog.NewHandler(s, catalog.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: true,
		MetricsToken:   cfg.MetricsToken,
	})

	log.Info("catalog backend ready", zap.String("backend", cfg.Backend))

	if err := kit.RunHTTPServer(ctx, ":"+cfg.Port, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func openBackend(cfg config.Config) (catalog.Backend, func(), error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		db.SetMaxOpenConns(10)
		db.SetConnMaxIdleTime(5 * time.Minute)
		return catalog.NewPostgresBackend(db), func() { _ = db.Close() }, nil

	case config.BackendMemory:
		return catalog.NewDemoBackend(), func() {}, nil

	default:
		c := postgrest.NewClient(cfg.RESTBaseURL(), cfg.SupabaseKey, cfg.RequestTimeout)
		if cfg.SupabaseJWTSecret != "" {
			c.Tokens = postgrest.NewTokenSigner(cfg.SupabaseJWTSecret, cfg.SupabaseRole, cfg.TokenTTL)
		}
		return catalog.NewRESTBackend(c), func() {}, nil
	}
}
