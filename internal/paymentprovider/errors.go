package paymentprovider

import "errors"

var (
	// ErrUnauthorized провайдер отклонил access token (401/403).
	ErrUnauthorized = errors.New("payment provider rejected credentials")
	// ErrRejected провайдер отклонил запрос (прочие 4xx).
	ErrRejected = errors.New("payment provider rejected request")
	// ErrUnavailable сетевая ошибка, 5xx или открытый circuit breaker.
	ErrUnavailable = errors.New("payment provider unavailable")
	// ErrMalformedResponse ответ не удалось разобрать или в нём нет init_point.
	ErrMalformedResponse = errors.New("payment provider returned malformed response")
)
