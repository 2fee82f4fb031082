package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/PavoWillow/wine-data-toolkit/internal/handlers"
	"github.com/PavoWillow/wine-data-toolkit/internal/metrics"
	"github.com/PavoWillow/wine-data-toolkit/internal/middleware"
)

func SetupRouter(r *chi.Mux, baseLogger *zap.Logger, queryHandler *handlers.QueryHandler) {

	r.Use(metrics.Middleware)

	// base middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	r.Use(middleware.LoggingContext(baseLogger))
	r.Use(middleware.Recoverer())               // panic recovery
	r.Use(middleware.Timeout(60 * time.Second)) // request timeout, generation retries included
	r.Use(middleware.MaxBodySize(64 * 1024))    // 64 KB max body

	// routes
	r.Route("/v1", func(r chi.Router) {
		r.Post("/query", queryHandler.Query)
		r.Get("/metrics", queryHandler.Metrics)
		r.Post("/metrics/reset", queryHandler.ResetMetrics)
		r.Get("/sessions", queryHandler.Sessions)
	})

	// health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", metrics.Handler())
}
