package checkoutapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/streadway/amqp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/laudocar/checkout-api/internal/checkout"
	"github.com/laudocar/checkout-api/internal/config"
	"github.com/laudocar/checkout-api/internal/http/handlers/checkout/create"
	"github.com/laudocar/checkout-api/internal/lib/sl"
	"github.com/laudocar/checkout-api/internal/metrics"
	"github.com/laudocar/checkout-api/internal/paymentprovider"
	"github.com/laudocar/checkout-api/internal/rabbitmq"
)

type App struct {
	server   *http.Server
	logger   *slog.Logger
	amqp     *amqp.Connection
	checkout *create.Handler
}

// New собирает приложение. tp используется для серверных и клиентских спанов.
func New(cfg *config.Config, logger *slog.Logger, tp trace.TracerProvider) (*App, error) {
	const op = "app.checkout.New"

	var (
		publisher create.Publisher = rabbitmq.NoopPublisher{}
		conn      *amqp.Connection
	)
	if cfg.RabbitMQ.URL != "" {
		var err error
		conn, err = rabbitmq.Connect(cfg.RabbitMQ.URL, 5, 2*time.Second)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ch, err := rabbitmq.SetupChannel(conn, cfg.Exchange)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		publisher = rabbitmq.NewPublisher(ch, cfg.Exchange, cfg.RoutingKey)
		logger.Info("publishing checkout events", slog.String("exchange", cfg.Exchange))
	}

	handler, createHandler := newRouter(cfg, logger, publisher, prometheus.NewRegistry(), tp)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      handler,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:   srv,
		logger:   logger,
		amqp:     conn,
		checkout: createHandler,
	}, nil
}

// NewHandler собирает роутер со всеми зависимостями.
func NewHandler(cfg *config.Config, logger *slog.Logger, publisher create.Publisher, reg *prometheus.Registry, tp trace.TracerProvider) http.Handler {
	handler, _ := newRouter(cfg, logger, publisher, reg, tp)
	return handler
}

func newRouter(cfg *config.Config, logger *slog.Logger, publisher create.Publisher, reg *prometheus.Registry, tp trace.TracerProvider) (http.Handler, *create.Handler) {
	reg.MustRegister(collectors.NewGoCollector())
	propagator := propagation.TraceContext{}

	providerClient := paymentprovider.NewClient(cfg.Provider, cfg.Breaker,
		paymentprovider.WithTracerProvider(tp),
		paymentprovider.WithPropagator(propagator),
	)
	translator := checkout.New(providerClient, cfg.Checkout)
	createHandler := create.New(logger, translator, publisher, metrics.NewCheckout(reg), cfg.PublishTimeout)
	limiter := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, createHandler, limiter, reg)

	return otelhttp.NewHandler(router, "checkout-api",
		otelhttp.WithTracerProvider(tp),
		otelhttp.WithPropagators(propagator),
	), createHandler
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.checkout.Wait()
		a.closeAMQP()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		// события уже отданных ответов публикуются до закрытия соединения
		a.checkout.Wait()
		a.closeAMQP()
		return err
	}
}

func (a *App) closeAMQP() {
	if a.amqp == nil {
		return
	}
	if err := a.amqp.Close(); err != nil {
		a.logger.Warn("failed to close rabbitmq connection", sl.Err(err))
	}
}
