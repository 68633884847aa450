package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"peakform/amsbridge/internal/api"
	"peakform/amsbridge/internal/db"
	"peakform/amsbridge/internal/logging"
	"peakform/amsbridge/internal/metrics"
	"peakform/amsbridge/internal/middleware"
)

func RegisterRoutes(upSince time.Time) http.Handler {

	r := chi.NewRouter()

	metricsReg := metrics.NewMetricsRegistry()

	// global middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.MetricsMiddleware(metricsReg))
	r.Use(middleware.RateLimitMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://localhost:8081"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	logging.Info("Router initialized with metrics and logging middleware")

	r.Get("/healthCheck", api.HealthCheckHandler(db.DB, upSince))

	deps, err := api.InitDependencies(metricsReg)
	if err != nil {
		panic("Failed to initialize dependencies: " + err.Error())
	}

	importHandler := api.NewImportHandler(deps.Services.Imports)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(deps.Repo.Keys))
		r.Post("/import/events", importHandler.Events)
		r.Post("/import/profiles", importHandler.Profiles)
	})

	return r
}
