// Package api wires HTTP handlers onto the chi router.
package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/candidstudio/moodgrab/internal/api/handler"
	mw "github.com/candidstudio/moodgrab/internal/api/middleware"
)

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(
	itemHandler *handler.ItemHandler,
	profileHandler *handler.ProfileHandler,
	healthHandler *handler.HealthHandler,
	apiKey string,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.CleanPath)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	// CORS for the board frontend and the clipper extension
	r.Use(mw.CORS)

	// Health endpoints (no auth)
	r.Get("/health", healthHandler.Live)
	r.Get("/ready", healthHandler.Ready)

	// API v1 (authenticated)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(apiKey))

		r.Post("/items", itemHandler.Create)
		r.Post("/items/batch", itemHandler.CreateBatch)
		r.Get("/items", itemHandler.List)
		r.Get("/items/{itemID}", itemHandler.Get)
		r.Delete("/items/{itemID}", itemHandler.Delete)
		r.Post("/items/{itemID}/reprocess", itemHandler.Reprocess)
		r.Post("/items/{itemID}/transcribe", itemHandler.Transcribe)
		r.Post("/items/{itemID}/analyze", itemHandler.Analyze)
		r.Post("/items/{itemID}/rescript", itemHandler.Rescript)

		r.Post("/profile", profileHandler.Analyze)
	})

	return r
}
