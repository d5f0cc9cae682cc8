// Package config предоставляет структуры и функции для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer `yaml:"http_server"`
	Provider   `yaml:"provider"`
	Checkout   `yaml:"checkout"`
	RateLimit  `yaml:"rate_limit"`
	Breaker    `yaml:"breaker"`
	RabbitMQ   `yaml:"rabbitmq"`
	Tracing    `yaml:"tracing"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"30s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

// Provider настройки подключения к Mercado Pago.
// AccessToken никогда не пишется в логи.
type Provider struct {
	AccessToken     string        `yaml:"access_token" env:"MP_ACCESS_TOKEN" env-required:"true"`
	BaseURL         string        `yaml:"base_url" env:"MP_BASE_URL" env-default:"https://api.mercadopago.com"`
	ProviderTimeout time.Duration `yaml:"timeout" env:"MP_TIMEOUT" env-default:"10s"`
}

// Checkout фиксированные параметры создаваемой preference.
type Checkout struct {
	ItemDescription string `yaml:"item_description" env:"CHECKOUT_ITEM_DESCRIPTION" env-default:"Consulta de histórico veicular Laudo Car"`
	AutoReturn      string `yaml:"auto_return" env:"CHECKOUT_AUTO_RETURN" env-default:"approved"`
	BackURLs        `yaml:"back_urls"`
}

// BackURLs адреса возврата плательщика после оплаты.
type BackURLs struct {
	Success string `yaml:"success" env:"CHECKOUT_SUCCESS_URL" env-default:"https://seusite.vercel.app/pagamento-sucesso"`
	Failure string `yaml:"failure" env:"CHECKOUT_FAILURE_URL" env-default:"https://seusite.vercel.app/pagamento-falha"`
	Pending string `yaml:"pending" env:"CHECKOUT_PENDING_URL" env-default:"https://seusite.vercel.app/pagamento-pendente"`
}

// RateLimit ограничение частоты запросов на создание платежа
type RateLimit struct {
	RPS   float64 `yaml:"rps" env:"RATE_LIMIT_RPS" env-default:"5"`
	Burst int     `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"10"`
}

// Breaker настройки circuit breaker вокруг вызовов провайдера
type Breaker struct {
	MaxFailures uint32        `yaml:"max_failures" env:"BREAKER_MAX_FAILURES" env-default:"5"`
	OpenTimeout time.Duration `yaml:"open_timeout" env:"BREAKER_OPEN_TIMEOUT" env-default:"30s"`
}

// RabbitMQ настройки публикации событий. Пустой URL отключает публикацию.
type RabbitMQ struct {
	URL        string `yaml:"url" env:"RABBITMQ_URL"`
	Exchange   string `yaml:"exchange" env:"RABBITMQ_EXCHANGE" env-default:"checkout"`
	RoutingKey string `yaml:"routing_key" env:"RABBITMQ_ROUTING_KEY" env-default:"checkout.created"`
	// PublishTimeout ограничивает публикацию события, ответ клиенту её не ждёт
	PublishTimeout time.Duration `yaml:"publish_timeout" env:"RABBITMQ_PUBLISH_TIMEOUT" env-default:"5s"`
}

// Tracing настройки OpenTelemetry. Exporter: none или stdout.
type Tracing struct {
	Exporter    string `yaml:"exporter" env:"TRACING_EXPORTER" env-default:"none"`
	ServiceName string `yaml:"service_name" env:"TRACING_SERVICE_NAME" env-default:"checkout-api"`
}

// Load читает конфиг из файла CONFIG_PATH (если задан) и переменных окружения.
func Load() (*Config, error) {
	const op = "config.Load"
	var cfg Config

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &cfg, nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: file %s does not exist", op, configPath)
	}
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad функция для загрузки конфига, завершает процесс при ошибке
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Provider:\n"+
			"  BaseURL: %s\n"+
			"  AccessToken: %s\n"+
			"  Timeout: %s\n"+
			"Checkout:\n"+
			"  AutoReturn: %s\n"+
			"  Success: %s\n"+
			"  Failure: %s\n"+
			"  Pending: %s\n"+
			"RateLimit: %.2f rps, burst %d\n"+
			"Breaker: %d failures, open %s\n"+
			"RabbitMQ enabled: %t, publish timeout %s\n"+
			"Tracing: %s (%s)\n",
		c.Env,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.BaseURL,
		mask(c.AccessToken),
		c.ProviderTimeout,
		c.AutoReturn,
		c.Success,
		c.Failure,
		c.Pending,
		c.RPS,
		c.Burst,
		c.MaxFailures,
		c.OpenTimeout,
		c.RabbitMQ.URL != "",
		c.PublishTimeout,
		c.Exporter,
		c.ServiceName,
	)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "****"
}
