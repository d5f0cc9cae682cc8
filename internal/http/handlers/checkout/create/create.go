// Package create обрабатывает создание ссылки на оплату плана.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/middleware"

	"github.com/laudocar/checkout-api/internal/checkout"
	"github.com/laudocar/checkout-api/internal/http/response"
	"github.com/laudocar/checkout-api/internal/lib/sl"
	"github.com/laudocar/checkout-api/internal/metrics"
	"github.com/laudocar/checkout-api/internal/rabbitmq"
)

const (
	msgMethodNotAllowed = "Method Not Allowed"
	msgProviderFailure  = "Falha ao comunicar com o sistema de pagamento."

	// maxBodyBytes с запасом покрывает planName, planPrice и plate
	maxBodyBytes = 1 << 16

	defaultPublishTimeout = 5 * time.Second
)

// Translator определяет интерфейс создания checkout-сессии.
type Translator interface {
	Translate(ctx context.Context, req checkout.PurchaseRequest) (*checkout.Session, error)
}

// Publisher публикует событие о созданной сессии.
type Publisher interface {
	PublishCheckoutCreated(ctx context.Context, event rabbitmq.CheckoutCreated) error
}

// Metrics счётчики исходов и длительность вызова провайдера.
type Metrics interface {
	Observe(outcome string)
	ObserveProvider(d time.Duration)
}

// Handler обрабатывает запросы на создание платежа.
type Handler struct {
	log        *slog.Logger
	translator Translator
	publisher  Publisher
	metrics    Metrics
	now        func() time.Time

	publishTimeout time.Duration
	inflight       sync.WaitGroup
}

// New создает новый экземпляр Handler.
// publishTimeout ограничивает фоновую публикацию события, <= 0 означает 5s.
func New(log *slog.Logger, translator Translator, publisher Publisher, m Metrics, publishTimeout time.Duration) *Handler {
	if publisher == nil {
		publisher = rabbitmq.NoopPublisher{}
	}
	if m == nil {
		m = noopMetrics{}
	}
	if publishTimeout <= 0 {
		publishTimeout = defaultPublishTimeout
	}
	return &Handler{
		log:            log,
		translator:     translator,
		publisher:      publisher,
		metrics:        m,
		now:            time.Now,
		publishTimeout: publishTimeout,
	}
}

// Wait блокируется до завершения всех фоновых публикаций.
// Вызывается при остановке до закрытия соединения с RabbitMQ.
func (h *Handler) Wait() {
	h.inflight.Wait()
}

// ServeHTTP godoc
// @Summary Criar link de pagamento
// @Description Cria uma preferência no Mercado Pago para o plano e a placa e devolve a URL de pagamento
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body checkout.PurchaseRequest true "Plano e placa"
// @Success 200 {object} response.PaymentURLResponse
// @Failure 400 {object} response.ErrorResponse "Dados incompletos"
// @Failure 405 {object} response.ErrorResponse "Method Not Allowed"
// @Failure 429 {object} response.ErrorResponse "Too many requests"
// @Failure 500 {object} response.ErrorResponse "Falha no provedor de pagamento"
// @Router /create-payment [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.checkout.create"
	log := h.log.With(
		sl.Op(op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if r.Method != http.MethodPost {
		h.metrics.Observe(metrics.OutcomeMethodNotAllowed)
		w.Header().Set("Allow", http.MethodPost)
		response.JSON(w, r, http.StatusMethodNotAllowed, response.Error(msgMethodNotAllowed))
		return
	}

	var req checkout.PurchaseRequest
	if err := decodeBody(w, r, &req); err != nil {
		log.Debug("failed to decode request", sl.Err(err))
		h.metrics.Observe(metrics.OutcomeInvalidInput)
		response.JSON(w, r, http.StatusBadRequest, response.Error(checkout.MsgIncompleteData))
		return
	}

	start := h.now()
	session, err := h.translator.Translate(r.Context(), req)
	if err != nil {
		var inputErr *checkout.InputError
		if errors.As(err, &inputErr) {
			log.Debug("invalid purchase request", sl.Err(err))
			h.metrics.Observe(metrics.OutcomeInvalidInput)
			response.JSON(w, r, http.StatusBadRequest, response.Error(inputErr.Msg))
			return
		}

		h.metrics.ObserveProvider(h.now().Sub(start))
		log.Error("failed to create preference at payment provider", sl.Err(err))
		h.metrics.Observe(metrics.OutcomeProviderError)
		response.JSON(w, r, http.StatusInternalServerError, response.Error(msgProviderFailure))
		return
	}
	h.metrics.ObserveProvider(h.now().Sub(start))
	h.metrics.Observe(metrics.OutcomeCreated)

	log.Debug("checkout preference created",
		slog.String("preference_id", session.PreferenceID),
		slog.String("external_reference", session.ExternalReference),
	)

	h.publish(r.Context(), log, rabbitmq.CheckoutCreated{
		ExternalReference: session.ExternalReference,
		PreferenceID:      session.PreferenceID,
		Plate:             session.Plate,
		PlanName:          session.PlanName,
		PlanPrice:         session.UnitPrice,
		PaymentURL:        session.PaymentURL,
		CreatedAt:         h.now().UTC(),
	})

	response.JSON(w, r, http.StatusOK, response.PaymentURL(session.PaymentURL))
}

// publish отправляет событие в фоне: ответ клиенту не ждёт брокер,
// а отмена запроса клиентом не обрывает публикацию.
func (h *Handler) publish(ctx context.Context, log *slog.Logger, event rabbitmq.CheckoutCreated) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.publishTimeout)

	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		defer cancel()
		if err := h.publisher.PublishCheckoutCreated(ctx, event); err != nil {
			log.Warn("failed to publish checkout event",
				slog.String("external_reference", event.ExternalReference),
				sl.Err(err),
			)
		}
	}()
}

// decodeBody читает ровно один JSON-объект не длиннее maxBodyBytes.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

type noopMetrics struct{}

func (noopMetrics) Observe(string)                {}
func (noopMetrics) ObserveProvider(time.Duration) {}
