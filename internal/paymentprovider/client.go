// Package paymentprovider содержит HTTP-клиент Mercado Pago для создания
// checkout preference.
package paymentprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/laudocar/checkout-api/internal/config"
)

const preferencesPath = "/checkout/preferences"

// Client клиент Mercado Pago
type Client struct {
	accessToken string
	apiURL      string
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker[*PreferenceResponse]
}

// Option настраивает Client.
type Option func(*options)

type options struct {
	tracerProvider trace.TracerProvider
	propagator     propagation.TextMapPropagator
}

// WithTracerProvider задаёт провайдер трейсов для исходящих запросов.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithPropagator задаёт формат распространения контекста трейса.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(o *options) { o.propagator = p }
}

// NewClient создаёт новый клиент Mercado Pago
func NewClient(cfg config.Provider, br config.Breaker, opts ...Option) *Client {
	o := options{
		tracerProvider: otel.GetTracerProvider(),
		propagator:     otel.GetTextMapPropagator(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	maxFailures := br.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	return &Client{
		accessToken: cfg.AccessToken,
		apiURL:      strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.ProviderTimeout,
			Transport: otelhttp.NewTransport(
				http.DefaultTransport,
				otelhttp.WithTracerProvider(o.tracerProvider),
				otelhttp.WithPropagators(o.propagator),
			),
		},
		breaker: gobreaker.NewCircuitBreaker[*PreferenceResponse](gobreaker.Settings{
			Name:    "mercadopago",
			Timeout: br.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			// сбоем провайдера считаются только недоступность и битый ответ;
			// отказы 4xx и отмена запроса клиентом на breaker не влияют
			IsSuccessful: func(err error) bool {
				return !errors.Is(err, ErrUnavailable) && !errors.Is(err, ErrMalformedResponse)
			},
		}),
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// CreatePreference создаёт checkout preference и возвращает ответ провайдера.
// Повторов нет: любая ошибка возвращается вызывающему.
func (c *Client) CreatePreference(ctx context.Context, reqParams PreferenceRequest) (*PreferenceResponse, error) {
	const op = "paymentprovider.CreatePreference"

	resp, err := c.breaker.Execute(func() (*PreferenceResponse, error) {
		return c.createPreference(ctx, reqParams)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp, nil
}

func (c *Client) createPreference(ctx context.Context, reqParams PreferenceRequest) (*PreferenceResponse, error) {
	req, err := c.newRequest(ctx, http.MethodPost, preferencesPath, reqParams)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, statusError(resp)
	}

	var prefResp PreferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&prefResp); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if prefResp.InitPoint == "" {
		return nil, fmt.Errorf("%w: empty init_point", ErrMalformedResponse)
	}
	return &prefResp, nil
}

func statusError(resp *http.Response) error {
	var kind error
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		kind = ErrUnauthorized
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		kind = ErrRejected
	default:
		kind = ErrUnavailable
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("%w: unexpected status %s: %s", kind, resp.Status, apiErr.Message)
	}
	return fmt.Errorf("%w: unexpected status %s", kind, resp.Status)
}
