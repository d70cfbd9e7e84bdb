package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type RabbitConfig struct {
	Host     string
	Port     int
	User     string
	Password string
}

type CatalogConfig struct {
	BaseURL      string
	APIKey       string
	FetchTimeout time.Duration
	// Debounce bounds how often a stale partition is re-checked remotely.
	Debounce time.Duration
	Rabbit   RabbitConfig
}

type OrderConfig struct {
	WhatsAppNumber string
	DeliveryFee    int64
	District       string
	Villages       []string
	// AvailabilityInterval drives the once-per-minute opening-hours recompute.
	AvailabilityInterval time.Duration
}

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Catalog     CatalogConfig
	Order       OrderConfig
}

// Load reads configuration from environment variables, with .env support for
// local development. Missing values fall back to sensible defaults.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Path:            getEnv("DB_PATH", "diorder.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 1),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 1),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Catalog: CatalogConfig{
			BaseURL:      getEnv("CATALOG_BASE_URL", "http://localhost:9000"),
			APIKey:       getEnv("CATALOG_API_KEY", ""),
			FetchTimeout: getEnvDuration("CATALOG_FETCH_TIMEOUT", 10*time.Second),
			Debounce:     getEnvDuration("CATALOG_DEBOUNCE", 5*time.Minute),
			Rabbit: RabbitConfig{
				Host:     getEnv("RABBITMQ_HOST", "localhost"),
				Port:     getEnvInt("RABBITMQ_PORT", 5672),
				User:     getEnv("RABBITMQ_USER", "guest"),
				Password: getEnv("RABBITMQ_PASSWORD", "guest"),
			},
		},
		Order: OrderConfig{
			WhatsAppNumber:       getEnv("ORDER_WHATSAPP_NUMBER", "6282217012023"),
			DeliveryFee:          int64(getEnvInt("ORDER_DELIVERY_FEE", 5000)),
			District:             getEnv("ORDER_DISTRICT", "Duduksampeyan"),
			Villages:             getEnvList("ORDER_VILLAGES", []string{"Duduksampeyan", "Sumengko", "Petisbenem", "Setrohadi"}),
			AvailabilityInterval: getEnvDuration("ORDER_AVAILABILITY_INTERVAL", time.Minute),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
