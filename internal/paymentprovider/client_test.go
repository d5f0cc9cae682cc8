package paymentprovider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/laudocar/checkout-api/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, maxFailures uint32) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(
		config.Provider{AccessToken: "TEST-token", BaseURL: srv.URL + "/", ProviderTimeout: 2 * time.Second},
		config.Breaker{MaxFailures: maxFailures, OpenTimeout: time.Minute},
	)
}

func samplePreference() PreferenceRequest {
	return PreferenceRequest{
		Items: []Item{{
			ID:          "ABC1234",
			Title:       "Plano Básico - Placa ABC1234",
			Description: "Consulta de histórico veicular Laudo Car",
			Quantity:    1,
			UnitPrice:   49.9,
			CurrencyID:  "BRL",
		}},
		BackURLs: BackURLs{
			Success: "https://laudo.example/ok",
			Failure: "https://laudo.example/fail",
			Pending: "https://laudo.example/wait",
		},
		AutoReturn:        "approved",
		ExternalReference: "ref-1",
	}
}

func TestClient_CreatePreference_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout/preferences", r.URL.Path)
		assert.Equal(t, "Bearer TEST-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "approved", body["auto_return"])
		assert.Equal(t, "ref-1", body["external_reference"])

		items := body["items"].([]any)
		require.Len(t, items, 1)
		item := items[0].(map[string]any)
		assert.Equal(t, "ABC1234", item["id"])
		assert.Equal(t, 49.9, item["unit_price"])
		assert.Equal(t, "BRL", item["currency_id"])
		assert.Equal(t, float64(1), item["quantity"])

		backURLs := body["back_urls"].(map[string]any)
		assert.Equal(t, "https://laudo.example/wait", backURLs["pending"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"pref-1","init_point":"https://pay.example/abc","external_reference":"ref-1"}`))
	}, 5)

	resp, err := client.CreatePreference(context.Background(), samplePreference())
	require.NoError(t, err)
	assert.Equal(t, "pref-1", resp.ID)
	assert.Equal(t, "https://pay.example/abc", resp.InitPoint)
}

func TestClient_CreatePreference_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{
			name:    "unauthorized",
			status:  http.StatusUnauthorized,
			body:    `{"message":"invalid access token","error":"unauthorized","status":401}`,
			wantErr: ErrUnauthorized,
			wantMsg: "invalid access token",
		},
		{
			name:    "forbidden",
			status:  http.StatusForbidden,
			body:    `{}`,
			wantErr: ErrUnauthorized,
		},
		{
			name:    "bad request",
			status:  http.StatusBadRequest,
			body:    `{"message":"unit_price invalid","error":"bad_request","status":400}`,
			wantErr: ErrRejected,
			wantMsg: "unit_price invalid",
		},
		{
			name:    "server error",
			status:  http.StatusBadGateway,
			body:    `oops`,
			wantErr: ErrUnavailable,
		},
		{
			name:    "malformed json",
			status:  http.StatusCreated,
			body:    `{"init_point":`,
			wantErr: ErrMalformedResponse,
		},
		{
			name:    "missing init point",
			status:  http.StatusCreated,
			body:    `{"id":"pref-1"}`,
			wantErr: ErrMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, 5)

			resp, err := client.CreatePreference(context.Background(), samplePreference())
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), "paymentprovider.CreatePreference")
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestClient_CreatePreference_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(
		config.Provider{AccessToken: "TEST-token", BaseURL: url, ProviderTimeout: time.Second},
		config.Breaker{MaxFailures: 5, OpenTimeout: time.Minute},
	)

	_, err := client.CreatePreference(context.Background(), samplePreference())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_CreatePreference_NoRetry(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, 5)

	_, err := client.CreatePreference(context.Background(), samplePreference())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_CreatePreference_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, 2)

	for range 2 {
		_, err := client.CreatePreference(context.Background(), samplePreference())
		require.ErrorIs(t, err, ErrUnavailable)
	}

	_, err := client.CreatePreference(context.Background(), samplePreference())
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), calls.Load(), "open breaker must not reach the provider")
}

func TestClient_CreatePreference_CallerAbortsDoNotOpenBreaker(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-time.After(200 * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"pref-1","init_point":"https://pay.example/abc"}`))
	}, 2)

	for range 2 {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		_, err := client.CreatePreference(ctx, samplePreference())
		cancel()
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}

	before := calls.Load()
	resp, err := client.CreatePreference(context.Background(), samplePreference())
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/abc", resp.InitPoint)
	assert.Equal(t, before+1, calls.Load(), "healthy caller must reach the provider")
}

func TestClient_CreatePreference_RecordsSpanAndPropagatesTrace(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	var traceparent atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent.Store(r.Header.Get("traceparent"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"pref-1","init_point":"https://pay.example/abc"}`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(
		config.Provider{AccessToken: "TEST-token", BaseURL: srv.URL, ProviderTimeout: 2 * time.Second},
		config.Breaker{MaxFailures: 5, OpenTimeout: time.Minute},
		WithTracerProvider(tp),
		WithPropagator(propagation.TraceContext{}),
	)

	ctx, parent := tp.Tracer("test").Start(context.Background(), "create-payment")
	_, err := client.CreatePreference(ctx, samplePreference())
	parent.End()
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	var clientSpan sdktrace.ReadOnlySpan
	for _, s := range spans {
		if s.SpanKind() == trace.SpanKindClient {
			clientSpan = s
		}
	}
	require.NotNil(t, clientSpan, "outbound request must produce a client span")
	assert.Equal(t, parent.SpanContext().TraceID(), clientSpan.SpanContext().TraceID())

	header, _ := traceparent.Load().(string)
	assert.Contains(t, header, parent.SpanContext().TraceID().String())
}

func TestClient_CreatePreference_RejectionsDoNotOpenBreaker(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}, 1)

	for range 3 {
		_, err := client.CreatePreference(context.Background(), samplePreference())
		require.ErrorIs(t, err, ErrUnauthorized)
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_CreatePreference_ContextCanceled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.CreatePreference(ctx, samplePreference())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
