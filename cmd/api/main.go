package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bryanwahyu/sellerpulse/internal/application"
	apphealth "github.com/bryanwahyu/sellerpulse/internal/application/health"
	"github.com/bryanwahyu/sellerpulse/internal/application/syncs"
	"github.com/bryanwahyu/sellerpulse/internal/config"
	"github.com/bryanwahyu/sellerpulse/internal/domain/health"
	mysqlp "github.com/bryanwahyu/sellerpulse/internal/infra/db/mysql"
	"github.com/bryanwahyu/sellerpulse/internal/infra/db/postgres"
	"github.com/bryanwahyu/sellerpulse/internal/infra/db/sqlite"
	"github.com/bryanwahyu/sellerpulse/internal/infra/db/sqlstore"
	"github.com/bryanwahyu/sellerpulse/internal/infra/httpserver"
	"github.com/bryanwahyu/sellerpulse/internal/infra/marketplace"
	minioStore "github.com/bryanwahyu/sellerpulse/internal/infra/storage"
	"github.com/bryanwahyu/sellerpulse/internal/middleware"
)

func main() {
	if err := config.LoadEnvFile(".env"); err != nil {
		log.Fatal().Err(err).Msg("env file")
	}

	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("config load error")
	}
	setupLogger(cfg)

	ctx := context.Background()

	db, dialect, err := openDatabase(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("database connect error")
	}
	defer db.Close()
	store := sqlstore.New(db, dialect)

	checkers := map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
	}

	// archive is optional; a nil interface keeps the sync from trying
	var archive health.PayloadStore
	if cfg.Minio.Endpoint != "" {
		objects, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("minio init error")
		}
		archive = objects
		checkers["storage"] = objects
	}

	connector := marketplace.NewConnector(marketplace.ConnectorOptions{
		Retailer: marketplace.APIConfig{
			BaseURL:  cfg.Marketplace.Retailer.BaseURL,
			TokenURL: cfg.Marketplace.Retailer.TokenURL,
			Accept:   cfg.Marketplace.Retailer.Accept,
		},
		Advertiser: marketplace.APIConfig{
			BaseURL:  cfg.Marketplace.Advertiser.BaseURL,
			TokenURL: cfg.Marketplace.Advertiser.TokenURL,
			Accept:   cfg.Marketplace.Advertiser.Accept,
		},
		Delay:   cfg.Marketplace.RequestDelay,
		Timeout: cfg.Marketplace.Timeout,
	})

	clock := application.SystemClock{}
	customers := sqlstore.NewCustomerRepository(store)
	timeseries := sqlstore.NewTimeseriesRepository(store)
	phaseErrors := sqlstore.NewPhaseErrorRepository(store)
	analyses := sqlstore.NewAnalysisRepository(store)

	syncSvc := &syncs.Service{
		Customers:   customers,
		Snapshots:   sqlstore.NewSnapshotRepository(store),
		Analyses:    analyses,
		Timeseries:  timeseries,
		Jobs:        &syncs.JobTracker{Jobs: sqlstore.NewJobRepository(store), Clock: clock},
		Backfill:    &syncs.BackfillPlanner{Repo: sqlstore.NewBackfillRepository(store), Clock: clock},
		PhaseErrors: phaseErrors,
		Connector:   connector,
		Archive:     archive,
		Metrics:     middleware.PhaseRecorder{},
		Clock:       clock,
	}
	healthSvc := &apphealth.Service{
		Customers:   customers,
		Analyses:    analyses,
		Timeseries:  timeseries,
		PhaseErrors: phaseErrors,
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst, 10*time.Minute)
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go limiter.Run(sweepCtx, 5*time.Minute)

	handler := httpserver.NewRouter(httpserver.Options{
		Syncs:       syncSvc,
		Health:      healthSvc,
		APIKeys:     cfg.Auth.APIKeys,
		CronSecret:  cfg.Auth.CronSecret,
		Limiter:     limiter,
		CORSOrigins: cfg.Server.CORSOrigins,
		Checkers:    checkers,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// a full sync is paced upstream and can take minutes
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Str("driver", cfg.Database.Driver).Bool("archive", archive != nil).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.Log.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, sqlstore.Dialect, error) {
	dialect, ok := sqlstore.ParseDialect(cfg.Database.Driver)
	if !ok {
		return nil, 0, fmt.Errorf("unsupported driver %q", cfg.Database.Driver)
	}
	var (
		db  *sql.DB
		err error
	)
	switch dialect {
	case sqlstore.SQLite:
		// sqlite applies its schema on connect
		db, err = sqlite.Connect(ctx, cfg.DSN())
		return db, dialect, err
	case sqlstore.Postgres:
		db, err = postgres.Connect(ctx, cfg.DSN())
	default:
		db, err = mysqlp.Connect(ctx, cfg.DSN())
	}
	if err != nil {
		return nil, 0, err
	}
	if cfg.Database.Migrate {
		migrate := mysqlp.Migrate
		if dialect == sqlstore.Postgres {
			migrate = postgres.Migrate
		}
		if err := migrate(ctx, db); err != nil {
			db.Close()
			return nil, 0, err
		}
	}
	return db, dialect, nil
}
