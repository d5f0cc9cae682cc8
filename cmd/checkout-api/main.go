// Package main Laudo Car Checkout API
//
// @title           Laudo Car Checkout API
// @version         1.0
// @description     API para criar links de pagamento do Mercado Pago
//
// @host      localhost:8080
// @BasePath  /api
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	checkoutapi "github.com/laudocar/checkout-api/internal/app/checkout-api"
	"github.com/laudocar/checkout-api/internal/config"
	"github.com/laudocar/checkout-api/internal/lib/sl"
	"github.com/laudocar/checkout-api/internal/lib/tracing"
)

const envLocal = "local"

func main() {
	cfg := config.MustLoad()
	logger := setupLogger(cfg.Env)

	logger.Info("starting checkout-api", slog.String("env", cfg.Env))
	logger.Debug("config loaded", slog.String("config", cfg.String()))

	tp, err := tracing.NewProvider(cfg.Tracing, os.Stdout)
	if err != nil {
		logger.Error("failed to initialize tracing", sl.Err(err))
		os.Exit(1)
	}
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	if err := run(cfg, logger, tp); err != nil {
		logger.Error("app stopped with error", sl.Err(err))
		shutdownTracing(logger, tp.Shutdown)
		os.Exit(1)
	}

	shutdownTracing(logger, tp.Shutdown)
	logger.Info("checkout-api stopped gracefully")
}

func run(cfg *config.Config, logger *slog.Logger, tp *sdktrace.TracerProvider) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := checkoutapi.New(cfg, logger, tp)
	if err != nil {
		return err
	}

	if err := app.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func shutdownTracing(logger *slog.Logger, shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logger.Warn("failed to flush traces", sl.Err(err))
	}
}

func setupLogger(env string) *slog.Logger {
	if env == envLocal {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
