// Package config loads process-level configuration from the environment.
// Site-specific settings (SMTP credentials, templates, provider keys)
// are NOT read here; they arrive with every request.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the dispatcher's own runtime configuration.
type Config struct {
	Addr            string        `envconfig:"ADDR"              default:":8080"`
	LogLevel        string        `envconfig:"LOG_LEVEL"         default:"info"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT"      default:"10s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT"     default:"60s"`
	IdleTimeout     time.Duration `envconfig:"IDLE_TIMEOUT"      default:"120s"`
	OutboundTimeout time.Duration `envconfig:"OUTBOUND_TIMEOUT"  default:"30s"`
}

// Load reads configuration from the environment, honoring a local .env
// file when present.
func Load() (*Config, error) {
	// Best effort: a missing .env just means production.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("notify", &cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}

	// The edge platform hands us the listen port via PORT.
	if port := os.Getenv("PORT"); port != "" {
		cfg.Addr = ":" + port
	}

	return &cfg, nil
}
