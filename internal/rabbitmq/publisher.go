package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// CheckoutCreated событие о созданной checkout-сессии.
type CheckoutCreated struct {
	ExternalReference string    `json:"external_reference"`
	PreferenceID      string    `json:"preference_id"`
	Plate             string    `json:"plate"`
	PlanName          string    `json:"plan_name"`
	PlanPrice         float64   `json:"plan_price"`
	PaymentURL        string    `json:"payment_url"`
	CreatedAt         time.Time `json:"created_at"`
}

// Channel часть amqp.Channel, нужная для публикации.
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher публикует события в exchange с фиксированным routing key.
type Publisher struct {
	ch         Channel
	exchange   string
	routingKey string
}

// NewPublisher создаёт Publisher.
func NewPublisher(ch Channel, exchange, routingKey string) *Publisher {
	return &Publisher{
		ch:         ch,
		exchange:   exchange,
		routingKey: routingKey,
	}
}

// PublishCheckoutCreated публикует событие CheckoutCreated.
// amqp.Channel.Publish не принимает контекст и может зависнуть при flow control,
// поэтому ожидание ограничено ctx; зависшая публикация дозавершится в фоне.
func (p *Publisher) PublishCheckoutCreated(ctx context.Context, event CheckoutCreated) error {
	const op = "rabbitmq.PublishCheckoutCreated"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- PublishMessage(p.ch, p.exchange, p.routingKey, event)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}
}

// PublishMessage публикует сообщение в RabbitMQ.
func PublishMessage(ch Channel, exchange string, routingkey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		exchange,
		routingkey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// NoopPublisher используется, когда RabbitMQ не настроен.
type NoopPublisher struct{}

// PublishCheckoutCreated ничего не делает.
func (NoopPublisher) PublishCheckoutCreated(context.Context, CheckoutCreated) error {
	return nil
}
