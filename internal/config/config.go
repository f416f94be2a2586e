package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Repository backends selectable through REPOSITORY_BACKEND.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host     string `env:"HOST"`
	Port     string `env:"PORT" envDefault:"5432"`
	User     string `env:"USER"`
	Password string `env:"PASSWORD"`
	Name     string `env:"NAME"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
}

// LogConfig holds structured logging settings.
type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost      string         `env:"APP_HOST" envDefault:"localhost:8080"`
	Port         string         `env:"PORT" envDefault:"8080"`
	ServiceName  string         `env:"OTEL_SERVICE_NAME" envDefault:"userapi"`
	Backend      string         `env:"REPOSITORY_BACKEND" envDefault:"memory"`
	SeedDemoUser bool           `env:"SEED_DEMO_USER" envDefault:"false"`
	Log          LogConfig      `envPrefix:"LOG_"`
	Database     DatabaseConfig `envPrefix:"DB_"`
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// Real environment variables take precedence over the file.
func Load() (*AppConfig, error) {
	cfg := AppConfig{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	switch cfg.Backend {
	case BackendMemory, BackendPostgres:
	default:
		return nil, fmt.Errorf("unsupported repository backend %q", cfg.Backend)
	}

	return &cfg, nil
}
