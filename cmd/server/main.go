package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/campday/cornerquest/internal/cache"
	"github.com/campday/cornerquest/internal/config"
	"github.com/campday/cornerquest/internal/corners"
	"github.com/campday/cornerquest/internal/database"
	"github.com/campday/cornerquest/internal/handler/health"
	"github.com/campday/cornerquest/internal/migrations"
	"github.com/campday/cornerquest/internal/server"
	"github.com/campday/cornerquest/internal/store"
	"github.com/campday/cornerquest/internal/tracker"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- Catalog ---
	catalog, err := loadCatalog(cfg.CatalogFile)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	logger.Info("catalog loaded", "stations", len(catalog.Stations()), "groups", len(catalog.Groups()))

	// --- Database ---
	db, err := database.Open(ctx, cfg.DBDriver, cfg.DSN())
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", cfg.DBDriver, err)
	}
	defer db.Close()

	if err := migrations.Run(db, cfg.DBDriver); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to database", "driver", cfg.DBDriver)

	st, err := store.New(db, cfg.DBDriver)
	if err != nil {
		return err
	}
	if err := st.SeedGroups(ctx, catalog.Groups()); err != nil {
		return fmt.Errorf("seeding groups: %w", err)
	}

	checks := []health.Check{
		{Name: cfg.DBDriver, Checker: health.CheckerFunc(st.Ping)},
	}

	// --- Cache ---
	var snapshots cache.Cache = cache.NewMemory()
	if cfg.RedisURL != "" {
		rdb, err := cache.Open(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()

		rc := cache.NewRedis(rdb, cfg.CacheTTL)
		snapshots = rc
		checks = append(checks, health.Check{Name: "redis", Checker: health.CheckerFunc(rc.Ping), Optional: true})
		logger.Info("connected to redis")
	}

	// --- Tracker ---
	broker := server.NewBroker()
	ctl := tracker.New(catalog, cfg.Policy(), st, snapshots, broker, logger)

	deps := server.Deps{
		Tracker:        ctl,
		Broker:         broker,
		Logger:         logger,
		ScorerCodeHash: cfg.ScorerCodeHash,
	}
	if cfg.MetricsEnabled {
		deps.Metrics = server.NewMetrics()
	}
	if cfg.StaticDir != "" {
		deps.Static = os.DirFS(cfg.StaticDir)
		logger.Info("serving scoreboard", "dir", cfg.StaticDir)
	}
	if cfg.ScorerCodeHash == "" {
		logger.Warn("no scorer code configured, write routes are open")
	}

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, deps, func(r chi.Router) {
		r.Mount("/healthz", health.NewHandler(logger, checks...).Routes())
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func loadCatalog(path string) (*corners.Catalog, error) {
	if path == "" {
		return corners.DefaultCatalog()
	}
	return corners.LoadCatalogFile(path)
}
