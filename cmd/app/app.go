// Package main is the entry point for the currency conversion service.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"convertsvc/internal/config"
	"convertsvc/internal/provider"
	"convertsvc/internal/ratestore"
	"convertsvc/internal/repository"
	"convertsvc/internal/service"
	"convertsvc/internal/worker"
)

// App holds all application dependencies and manages their lifecycle.
type App struct {
	cfg         *config.Config
	logger      *zap.SugaredLogger
	db          *sql.DB
	rdbCache    *redis.Client
	rdbAsynq    *redis.Client
	asynqClient *asynq.Client
	asynqServer *asynq.Server
	asynqMux    *asynq.ServeMux
	scheduler   *worker.RefreshScheduler
	store       ratestore.Store
	httpServer  *http.Server
}

// NewApp initializes all dependencies and returns a ready-to-run App.
func NewApp(cfg *config.Config, logger *zap.SugaredLogger) (*App, error) {
	app := &App{
		cfg:    cfg,
		logger: logger,
	}

	if err := app.initStorage(); err != nil {
		_ = app.close()
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.close()
		return nil, err
	}

	return app, nil
}

// close releases database and Redis connections
func (app *App) close() error {
	var errs []error
	if app.asynqClient != nil {
		if err := app.asynqClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("asynq client close: %w", err))
		}
	}
	if app.rdbAsynq != nil {
		if err := app.rdbAsynq.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis asynq close: %w", err))
		}
	}
	if app.rdbCache != nil {
		if err := app.rdbCache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis cache close: %w", err))
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("db close: %w", err))
		}
	}
	return errors.Join(errs...)
}

// initStorage connects the optional backing stores: Postgres when the audit
// log is enabled and Redis when it backs the rate table cache.
func (app *App) initStorage() error {
	if app.cfg.Audit.Enabled {
		db, err := repository.NewPostgresDB(&app.cfg.Database)
		if err != nil {
			return fmt.Errorf("connect to Postgres: %w", err)
		}
		app.db = db

		if err := repository.RunMigrations(app.db, app.logger); err != nil {
			return fmt.Errorf("run DB migrations: %w", err)
		}
	}

	if app.cfg.Cache.Backend == config.CacheBackendRedis {
		app.rdbCache = redis.NewClient(&redis.Options{
			Addr: app.cfg.Cache.RedisAddr,
		})
		if err := app.rdbCache.Ping(context.Background()).Err(); err != nil {
			return fmt.Errorf("connect to Redis (cache, %s): %w", app.cfg.Cache.RedisAddr, err)
		}
		app.logger.Infow("Connected to Redis cache", "addr", app.cfg.Cache.RedisAddr)
		app.store = ratestore.NewRedisStore(app.rdbCache, app.logger)
	} else {
		app.store = ratestore.NewMemoryStore()
	}

	return nil
}

func (app *App) initServices() error {
	rateProvider := provider.NewOpenERAPIProvider(app.cfg.Provider.BaseURL, app.cfg.Provider.Timeout)

	var auditRepo repository.ConversionRepository
	if app.cfg.Audit.Enabled {
		auditRepo = repository.NewPostgresConversionRepository(app.db)
	}

	converter := service.NewConverter(app.store, rateProvider, auditRepo, app.logger, app.cfg.Cache)

	if app.cfg.Worker.Enabled || app.cfg.Server.ServeAsynqmon {
		app.rdbAsynq = redis.NewClient(&redis.Options{Addr: app.cfg.Redis.AsynqAddr})
	}

	if app.cfg.Worker.Enabled {
		redisOpt := asynq.RedisClientOpt{Addr: app.cfg.Redis.AsynqAddr}

		app.asynqClient = asynq.NewClient(redisOpt)
		app.asynqServer = asynq.NewServer(
			redisOpt,
			asynq.Config{
				Concurrency: app.cfg.Worker.Concurrency,
			},
		)
		app.asynqMux = asynq.NewServeMux()
		app.asynqMux.HandleFunc(worker.TaskTypeRefreshRates, worker.NewRefreshRatesHandler(converter, app.logger))

		app.scheduler = worker.NewRefreshScheduler(
			app.asynqClient,
			app.store,
			app.logger,
			time.Duration(app.cfg.Worker.RefreshIntervalSec)*time.Second,
			app.cfg.Worker.MaxRetry,
			time.Duration(app.cfg.Worker.TimeoutSec)*time.Second,
		)
		app.logger.Infow("Rate refresh worker configured", "addr", app.cfg.Redis.AsynqAddr,
			"interval_sec", app.cfg.Worker.RefreshIntervalSec)
	}

	app.initHTTP(converter)
	return nil
}

// Run starts the HTTP server and optional background workers, blocking until
// the context is canceled.
func (app *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if app.asynqServer != nil {
		g.Go(func() error {
			app.logger.Infow("Starting Asynq worker server")
			if err := app.asynqServer.Start(app.asynqMux); err != nil {
				return fmt.Errorf("asynq worker failed to start: %w", err)
			}

			<-ctx.Done()
			return nil
		})
	}

	if app.scheduler != nil {
		g.Go(func() error {
			app.logger.Infow("Starting refresh scheduler")
			return app.scheduler.Run(ctx)
		})
	}

	g.Go(func() error {
		app.logger.Infow("HTTP server listening", "port", app.cfg.Server.Port)
		if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown: triggered by context cancellation (signal or component failure).
	g.Go(func() error {
		<-ctx.Done()
		return app.shutdown()
	})

	return g.Wait()
}

// shutdown performs ordered teardown: HTTP server -> Asynq worker -> connections.
// This ensures in-flight refresh tasks finish before the connections close.
func (app *App) shutdown() error {
	app.logger.Infow("Shutting down server...")

	var errs []error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 1. Stop accepting new HTTP requests, drain in-flight
	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		app.logger.Errorw("HTTP server shutdown error", "error", err)
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	// 2. Drain in-flight refresh tasks
	if app.asynqServer != nil {
		app.asynqServer.Shutdown()
	}

	// 3. Close connections (asynq client, Redis, database)
	if err := app.close(); err != nil {
		app.logger.Errorw("Connection cleanup errors", "error", err)
		errs = append(errs, err)
	}

	app.logger.Infow("Shutdown complete")
	return errors.Join(errs...)
}
