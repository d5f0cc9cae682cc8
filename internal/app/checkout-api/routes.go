// Package checkoutapi собирает HTTP-приложение сервиса оплаты.
package checkoutapi

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	_ "github.com/laudocar/checkout-api/docs"
	"github.com/laudocar/checkout-api/internal/http/handlers/checkout/create"
	"github.com/laudocar/checkout-api/internal/http/handlers/health"
	"github.com/laudocar/checkout-api/internal/http/middlewarectx"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, createHandler *create.Handler, limiter *rate.Limiter, gatherer prometheus.Gatherer) {
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health.New().ServeHTTP)

		// все методы попадают в обработчик, он сам отвечает 405
		r.With(middlewarectx.RateLimitMiddleware(logger, limiter)).
			Handle("/create-payment", createHandler)
	})

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
