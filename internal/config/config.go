package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr    string
	PostgresDSN   string
	RedisAddr     string
	KafkaBrokers  []string
	JWTSecret     string
	PaymentAPIURL string
	PaymentAPIKey string
	// PublicBaseURL is prefixed to the gateway's success/cancel redirect
	// targets.
	PublicBaseURL string
	UploadDir     string
	Currency      string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, using default values", "error", err)
	}

	cfg := &Config{
		ListenAddr:    os.Getenv("LISTEN_ADDR"),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		KafkaBrokers:  []string{os.Getenv("KAFKA_BROKER")},
		JWTSecret:     os.Getenv("JWT_SECRET"),
		PaymentAPIURL: os.Getenv("PAYMENT_API_URL"),
		PaymentAPIKey: os.Getenv("PAYMENT_API_KEY"),
		PublicBaseURL: os.Getenv("PUBLIC_BASE_URL"),
		UploadDir:     os.Getenv("UPLOAD_DIR"),
		Currency:      os.Getenv("CURRENCY"),
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.PostgresDSN == "" {
		cfg.PostgresDSN = "host=localhost user=postgres password=postgres dbname=railswap sslmode=disable"
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	if len(cfg.KafkaBrokers) == 1 && cfg.KafkaBrokers[0] == "" {
		cfg.KafkaBrokers = []string{"localhost:9092"}
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "supersecret"
	}
	if cfg.PaymentAPIURL == "" {
		cfg.PaymentAPIURL = "http://localhost:9400"
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://localhost:8080"
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}

	slog.Info("config loaded", "listen_addr", cfg.ListenAddr, "postgres_dsn", cfg.PostgresDSN, "redis_addr", cfg.RedisAddr, "kafka_brokers", cfg.KafkaBrokers, "payment_api_url", cfg.PaymentAPIURL)
	return cfg
}
