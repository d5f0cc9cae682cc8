// Package checkout переводит запрос на покупку плана в checkout preference
// Mercado Pago и возвращает ссылку на оплату.
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/laudocar/checkout-api/internal/config"
	"github.com/laudocar/checkout-api/internal/paymentprovider"
)

const (
	// Currency валюта всех позиций, переговоров о валюте нет.
	Currency = "BRL"
	// AutoReturnApproved автоматический возврат только для одобренных платежей.
	AutoReturnApproved = "approved"
)

// ProviderClient определяет интерфейс для работы с платежным провайдером.
type ProviderClient interface {
	CreatePreference(ctx context.Context, reqParams paymentprovider.PreferenceRequest) (*paymentprovider.PreferenceResponse, error)
}

// Session созданная checkout-сессия.
type Session struct {
	PaymentURL        string
	PreferenceID      string
	ExternalReference string
	Plate             string
	PlanName          string
	UnitPrice         float64
}

// Translator валидирует запрос, собирает preference и вызывает провайдера.
// Не хранит изменяемого состояния, безопасен для параллельного использования.
type Translator struct {
	provider ProviderClient
	cfg      config.Checkout
	validate *validator.Validate
	newRef   func() string
}

// New создает новый экземпляр Translator.
func New(provider ProviderClient, cfg config.Checkout) *Translator {
	if cfg.AutoReturn == "" {
		cfg.AutoReturn = AutoReturnApproved
	}

	v := validator.New()
	// ошибка возможна только при пустом теге
	_ = v.RegisterValidation("price", validatePrice)

	return &Translator{
		provider: provider,
		cfg:      cfg,
		validate: v,
		newRef:   func() string { return uuid.New().String() },
	}
}

func validatePrice(fl validator.FieldLevel) bool {
	v, err := Price(fl.Field().String()).Float()
	return err == nil && v > 0
}

// Validate проверяет нормализованный запрос.
func (t *Translator) Validate(req PurchaseRequest) error {
	err := t.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &InputError{Msg: MsgIncompleteData, Err: err}
	}
	for _, fe := range verrs {
		if fe.ActualTag() == "required" {
			return &InputError{Msg: MsgIncompleteData, Err: err}
		}
	}
	return &InputError{Msg: MsgInvalidPrice, Err: err}
}

// Build собирает запрос на создание preference из проверенного запроса.
func (t *Translator) Build(req PurchaseRequest) paymentprovider.PreferenceRequest {
	price, _ := req.PlanPrice.Float()

	return paymentprovider.PreferenceRequest{
		Items: []paymentprovider.Item{
			{
				ID:          req.Plate,
				Title:       fmt.Sprintf("%s - Placa %s", req.PlanName, req.Plate),
				Description: t.cfg.ItemDescription,
				Quantity:    1,
				UnitPrice:   price,
				CurrencyID:  Currency,
			},
		},
		BackURLs: paymentprovider.BackURLs{
			Success: t.cfg.Success,
			Failure: t.cfg.Failure,
			Pending: t.cfg.Pending,
		},
		AutoReturn:        t.cfg.AutoReturn,
		ExternalReference: t.newRef(),
	}
}

// Translate нормализует и проверяет запрос, затем создает preference.
// Провайдер не вызывается, пока запрос не прошел валидацию.
func (t *Translator) Translate(ctx context.Context, req PurchaseRequest) (*Session, error) {
	const op = "checkout.Translate"

	req = req.Normalize()
	if err := t.Validate(req); err != nil {
		return nil, err
	}

	pref := t.Build(req)
	resp, err := t.provider.CreatePreference(ctx, pref)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrProviderCommunication, err)
	}

	return &Session{
		PaymentURL:        resp.InitPoint,
		PreferenceID:      resp.ID,
		ExternalReference: pref.ExternalReference,
		Plate:             req.Plate,
		PlanName:          req.PlanName,
		UnitPrice:         pref.Items[0].UnitPrice,
	}, nil
}
