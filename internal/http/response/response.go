// Package response содержит типы и функции для формирования JSON-ответов
// HTTP-обработчиков.
package response

import (
	"net/http"

	"github.com/go-chi/render"
)

// ErrorResponse тело ответа с ошибкой.
type ErrorResponse struct {
	Error string `json:"error" example:"Dados incompletos. Verifique o plano e a placa."`
}

// PaymentURLResponse тело успешного ответа на создание платежа.
type PaymentURLResponse struct {
	PaymentURL string `json:"paymentUrl" example:"https://www.mercadopago.com.br/checkout/v1/redirect?pref_id=123"`
}

// StatusResponse тело ответа health-check.
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// Error возвращает ErrorResponse с переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{Error: msg}
}

// PaymentURL возвращает ответ со ссылкой на оплату.
func PaymentURL(url string) PaymentURLResponse {
	return PaymentURLResponse{PaymentURL: url}
}

// JSON пишет статус и тело через render.
func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}
