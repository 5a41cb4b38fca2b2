package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTP    HTTPConfig
	Storage StorageConfig
	GitHub  GitHubConfig
	Profile ProfileConfig
	Log     LogConfig
}

type HTTPConfig struct {
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}

// Addr returns the listen address for the HTTP server.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf(":%s", h.Port)
}

type StorageConfig struct {
	Type     string `env:"STORAGE_TYPE" envDefault:"postgres"`
	Postgres PostgresConfig
}

type PostgresConfig struct {
	Host     string `env:"DB_HOST" envDefault:"postgres"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"evolution"`
	Password string `env:"DB_PASSWORD" envDefault:"evolution"`
	DBName   string `env:"DB_NAME" envDefault:"evolution"`
	SSLMode  string `env:"DB_SSL_MODE" envDefault:"disable"`
	MaxConns int32  `env:"DB_MAX_CONNS" envDefault:"4"`
}

func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode)
}

// GitHubConfig configures the identity lookup used to enrich profiles.
// An empty token still works against the public API, only with a lower rate limit.
type GitHubConfig struct {
	URL      string        `env:"GITHUB_URL" envDefault:"https://api.github.com"`
	Token    string        `env:"GITHUB_TOKEN"`
	Timeout  time.Duration `env:"GITHUB_TIMEOUT" envDefault:"10s"`
	CacheTTL time.Duration `env:"GITHUB_CACHE_TTL" envDefault:"15m"`
}

type ProfileConfig struct {
	// EnrichWait bounds how long a profile request waits for the identity
	// lookup before rendering without it.
	EnrichWait time.Duration `env:"PROFILE_ENRICH_WAIT" envDefault:"2s"`
}

type LogConfig struct {
	Level   string `env:"LOG_LEVEL" envDefault:"info"`
	Console bool   `env:"LOG_CONSOLE" envDefault:"true"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
