// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
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
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING" env-required:"true"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	HTTPServer              `yaml:"http_server"`
	RedisConnection         `yaml:"redis_connection"`
	JWTToken                `yaml:"jwttoken"`
	RabbitMQ                `yaml:"rabbitmq"`
	Gateway                 `yaml:"gateway"`
	Billing                 `yaml:"billing"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// JWTToken структура для проверки jwt-токенов, выпущенных сервисом авторизации
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY" env-required:"true"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"30m"`
}

// RabbitMQ структура для подключения к брокеру, через который уходят операционные алерты
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// Gateway структура для настройки платежного шлюза Webkassa
type Gateway struct {
	GatewayAPIURL    string        `yaml:"api_url" env:"WEBKASSA_API_URL" env-default:"https://api.webkassa.kz"`
	GatewayAPIKey    string        `yaml:"api_key" env:"WEBKASSA_API_KEY"`
	CashboxID        string        `yaml:"cashbox_id" env:"WEBKASSA_CASHBOX_ID"`
	WebhookSecret    string        `yaml:"webhook_secret" env:"WEBKASSA_WEBHOOK_SECRET"`
	GatewayTimeout   time.Duration `yaml:"timeout" env-default:"30s"`
	ReturnURL        string        `yaml:"return_url" env-default:"http://localhost:3000/payment/success"`
	CancelURL        string        `yaml:"cancel_url" env-default:"http://localhost:3000/payment/cancel"`
	BreakerFailures  uint32        `yaml:"breaker_failures" env-default:"5"`
	BreakerOpenDelay time.Duration `yaml:"breaker_open_delay" env-default:"30s"`
}

// Billing структура с настройками тарифной логики
type Billing struct {
	Currency        string        `yaml:"currency" env-default:"KZT"`
	PlanCacheTTL    time.Duration `yaml:"plan_cache_ttl" env-default:"5m"`
	RedeemPerMinute int           `yaml:"redeem_per_minute" env-default:"5"`
	SweepInterval   time.Duration `yaml:"sweep_interval" env-default:"1h"`
}

// Load читает конфиг по указанному пути и дополняет его переменными окружения.
func Load(configPath string) (*Config, error) {
	const op = "config.Load"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: file %s does not exist", op, configPath)
	}
	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad функция для загрузки конфига по пути из CONFIG_PATH, завершает процесс при ошибке
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"MigrationsPath: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Gateway:\n"+
			"  APIURL: %s\n"+
			"  CashboxID: %s\n"+
			"  Timeout: %s\n"+
			"Billing:\n"+
			"  Currency: %s\n"+
			"  PlanCacheTTL: %s\n",
		c.Env,
		c.MigrationsPath,
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.GatewayAPIURL,
		c.CashboxID,
		c.GatewayTimeout,
		c.Currency,
		c.PlanCacheTTL,
	)
}
