package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Env  string `env:"APP_ENV" envDefault:"dev"`
	Port int    `env:"PORT" envDefault:"3000"`

	// DatabaseURL wins over the DB_* parts when set.
	DatabaseURL string `env:"DATABASE_URL"`
	DBHost      string `env:"DB_HOST" envDefault:"127.0.0.1"`
	DBPort      string `env:"DB_PORT" envDefault:"5432"`
	DBUser      string `env:"DB_USER" envDefault:"garbagewatch"`
	DBPassword  string `env:"DB_PASSWORD" envDefault:"garbagewatch"`
	DBName      string `env:"DB_NAME" envDefault:"garbagewatch"`
	DBSSLMode   string `env:"DB_SSLMODE" envDefault:"disable"`
	DBURL       string `env:"-"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	AutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`

	JWTSecret string        `env:"JWT_SECRET"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"0s"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	AuthRateLimit  int           `env:"AUTH_RATE_LIMIT" envDefault:"20"`
	AuthRateWindow time.Duration `env:"AUTH_RATE_WINDOW" envDefault:"1m"`

	// per caller on report writes
	WriteRateLimit  int           `env:"WRITE_RATE_LIMIT" envDefault:"60"`
	WriteRateWindow time.Duration `env:"WRITE_RATE_WINDOW" envDefault:"1m"`

	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	MaxBodyBytes       int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	ListCacheTTL       time.Duration `env:"LIST_CACHE_TTL" envDefault:"2s"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"garbagewatch"`

	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
	AdminName     string `env:"ADMIN_NAME" envDefault:"Administrator"`
	AdminRole     string `env:"ADMIN_ROLE" envDefault:"admin"`
}

const devJWTSecret = "dev-secret-change-me"

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	return Parse()
}

// Parse builds a Config from the process environment only.
func Parse() (Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))

	switch cfg.StoreDriver {
	case StorePostgres, StoreMemory:
	default:
		return Config{}, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}

	if cfg.JWTSecret == "" {
		if !cfg.IsDev() {
			return Config{}, errors.New("JWT_SECRET is required outside dev")
		}
		cfg.JWTSecret = devJWTSecret
	}

	if cfg.JWTTTL < 0 {
		return Config{}, errors.New("JWT_TTL must not be negative")
	}

	cfg.DBURL = cfg.DatabaseURL
	if cfg.DBURL == "" {
		cfg.DBURL = buildDBURL(cfg)
	}

	return cfg, nil
}

func (c Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "test"
}

func buildDBURL(c Config) string {
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=" + c.DBSSLMode
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}
