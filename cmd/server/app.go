package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"github.com/phrazzld/adsmith-api/internal/config"
	"github.com/phrazzld/adsmith-api/internal/generation"
	"github.com/phrazzld/adsmith-api/internal/platform/gemini"
	"github.com/phrazzld/adsmith-api/internal/platform/httpretry"
	"github.com/phrazzld/adsmith-api/internal/platform/metrics"
	"github.com/phrazzld/adsmith-api/internal/platform/objectstore"
	"github.com/phrazzld/adsmith-api/internal/platform/postgres"
	"github.com/phrazzld/adsmith-api/internal/platform/ratelimit"
	"github.com/phrazzld/adsmith-api/internal/service"
	"github.com/phrazzld/adsmith-api/internal/service/auth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

const (
	defaultMediaPath   = "/media"
	janitorInterval    = time.Minute
	limiterIdleTimeout = 10 * time.Minute
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	metrics *metrics.Collector
	limiter ratelimit.Limiter

	userService       service.UserService
	generationService service.GenerationService
	jwtService        auth.JWTService
	modelLister       generation.ModelLister

	// media serves locally stored objects; nil for the GCS backend.
	media http.Handler

	closers []func() error
}

// newApplication creates a new application instance with all dependencies initialized.
// The database must already be connected and migrated.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.metrics = metrics.NewCollector(registry)

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		slog.Int("token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes))

	bcrypt := auth.NewBcryptVerifier(cfg.Auth.BCryptCost)
	app.userService = service.NewUserService(postgres.NewPostgresUserStore(db, logger), bcrypt, bcrypt, logger)

	retry := httpretry.New(&http.Client{},
		httpretry.WithLogger(logger),
		httpretry.WithObserver(app.metrics))

	enhancer, err := gemini.NewEnhancer(retry, cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize prompt enhancer: %w", err)
	}
	images, err := gemini.NewImageGenerator(retry, cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize image generator: %w", err)
	}

	objects, err := app.setupObjectStore(ctx)
	if err != nil {
		app.releaseClients()
		return nil, err
	}

	app.generationService, err = service.NewGenerationService(
		enhancer,
		images,
		objects,
		postgres.NewPostgresGenerationStore(db, logger),
		logger,
		service.WithRecorder(app.metrics),
	)
	if err != nil {
		app.releaseClients()
		return nil, fmt.Errorf("failed to create generation service: %w", err)
	}

	app.limiter, err = app.setupRateLimiter(ctx)
	if err != nil {
		app.releaseClients()
		return nil, err
	}

	if cfg.Server.DebugRoutes {
		app.modelLister, err = gemini.NewModelLister(ctx, cfg.LLM, logger)
		if err != nil {
			app.releaseClients()
			return nil, fmt.Errorf("failed to initialize model lister: %w", err)
		}
		logger.Warn("debug routes enabled")
	}

	logger.Info("application initialized successfully")
	return app, nil
}

// setupObjectStore builds the configured object store backend.
func (app *application) setupObjectStore(ctx context.Context) (objectstore.Store, error) {
	cfg := app.config.Storage
	switch cfg.Backend {
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		app.closers = append(app.closers, client.Close)
		store, err := objectstore.NewGCSStore(client, cfg.Bucket, cfg.PublicBaseURL, app.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCS object store: %w", err)
		}
		app.logger.Info("using GCS object store", slog.String("bucket", cfg.Bucket))
		return store, nil
	case "local":
		baseURL := cfg.PublicBaseURL
		if baseURL == "" {
			baseURL = defaultMediaPath
		}
		store, err := objectstore.NewLocalStore(cfg.LocalDir, baseURL, app.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create local object store: %w", err)
		}
		app.media = store.Handler()
		app.logger.Info("using local object store", slog.String("dir", cfg.LocalDir))
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// setupRateLimiter builds the configured limiter. The memory janitor stops with ctx.
func (app *application) setupRateLimiter(ctx context.Context) (ratelimit.Limiter, error) {
	cfg := app.config.RateLimit
	switch cfg.Backend {
	case "redis":
		client, err := ratelimit.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, func() error { return closeRedis(client) })
		limiter, err := ratelimit.NewRedis(client, cfg.RequestsPerMinute)
		if err != nil {
			return nil, err
		}
		app.logger.Info("using redis rate limiter", slog.Int("requests_per_minute", cfg.RequestsPerMinute))
		return limiter, nil
	case "memory":
		limiter := ratelimit.NewMemory(cfg.RequestsPerMinute, cfg.Burst)
		limiter.StartJanitor(ctx, janitorInterval, limiterIdleTimeout)
		app.logger.Info("using in-memory rate limiter",
			slog.Int("requests_per_minute", cfg.RequestsPerMinute),
			slog.Int("burst", cfg.Burst))
		return limiter, nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", cfg.Backend)
	}
}

func closeRedis(client *redis.Client) error {
	if err := client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (app *application) Run(ctx context.Context) error {
	defer app.cleanup()

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// releaseClients closes the storage and redis clients in reverse creation order.
func (app *application) releaseClients() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Error("error closing resource", slog.String("error", err.Error()))
		}
	}
	app.closers = nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	app.releaseClients()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
		app.db = nil
	}
}
