// Package metrics содержит Prometheus-метрики создания платежей.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Исходы запроса на создание платежа.
const (
	OutcomeCreated          = "created"
	OutcomeInvalidInput     = "invalid_input"
	OutcomeMethodNotAllowed = "method_not_allowed"
	OutcomeProviderError    = "provider_error"
)

// Checkout метрики обработчика create-payment.
type Checkout struct {
	requests         *prometheus.CounterVec
	providerDuration prometheus.Histogram
}

// NewCheckout создаёт метрики и регистрирует их в reg.
func NewCheckout(reg prometheus.Registerer) *Checkout {
	m := &Checkout{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_requests_total",
			Help: "Checkout requests by outcome.",
		}, []string{"outcome"}),
		providerDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "checkout_provider_duration_seconds",
			Help:    "Duration of checkout session creation at the payment provider.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.requests, m.providerDuration)
	return m
}

// Observe увеличивает счётчик для исхода.
func (m *Checkout) Observe(outcome string) {
	m.requests.WithLabelValues(outcome).Inc()
}

// ObserveProvider записывает длительность вызова провайдера.
func (m *Checkout) ObserveProvider(d time.Duration) {
	m.providerDuration.Observe(d.Seconds())
}
