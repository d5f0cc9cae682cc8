// Package tracing собирает TracerProvider OpenTelemetry по настройкам сервиса.
package tracing

import (
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/laudocar/checkout-api/internal/config"
)

const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// NewProvider создаёт TracerProvider. Для stdout спаны пишутся в w в виде JSON,
// для none спаны создаются, но никуда не выгружаются.
// Вызывающий обязан вызвать Shutdown при остановке.
func NewProvider(cfg config.Tracing, w io.Writer) (*sdktrace.TracerProvider, error) {
	const op = "tracing.NewProvider"

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
		)),
	}

	switch cfg.Exporter {
	case ExporterNone, "":
	case ExporterStdout:
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	default:
		return nil, fmt.Errorf("%s: unknown exporter %q", op, cfg.Exporter)
	}

	return sdktrace.NewTracerProvider(opts...), nil
}
