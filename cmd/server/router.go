package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/adsmith-api/internal/api"
	apiMiddleware "github.com/phrazzld/adsmith-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))
	r.Use(apiMiddleware.Metrics(app.metrics))
	r.Use(middleware.Recoverer)

	authHandler := api.NewAuthHandler(
		app.userService,
		app.jwtService,
		time.Duration(app.config.Auth.TokenLifetimeMinutes)*time.Minute,
	)
	generationHandler := api.NewGenerationHandler(
		app.generationService,
		api.WithEnhanceTimeout(time.Duration(app.config.Server.EnhanceTimeoutSeconds)*time.Second),
		api.WithRetryAfterSeconds(app.config.Server.RetryAfterSeconds),
	)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	rateLimit := apiMiddleware.RateLimit(app.limiter, app.metrics)

	r.Route("/api", func(r chi.Router) {
		// Public endpoints
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.RefreshToken)
		r.Get("/styles", generationHandler.Styles)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Post("/enhance", generationHandler.Enhance)
			r.With(rateLimit).Post("/generate", generationHandler.Generate)
			r.Get("/gallery", generationHandler.Gallery)
			r.Delete("/gallery", generationHandler.DeleteGeneration)

			if app.modelLister != nil {
				debugHandler := api.NewDebugHandler(app.modelLister)
				r.Get("/debug/list-models", debugHandler.ListModels)
			}
		})
	})

	if app.media != nil {
		r.Handle(defaultMediaPath+"/*", http.StripPrefix(defaultMediaPath, app.media))
	}

	r.Handle("/metrics", app.metrics.Handler())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", slog.String("error", err.Error()))
		}
	})

	return r
}
