package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// DefaultBaseURL is the production Appnigma Integrations API endpoint.
const DefaultBaseURL = "https://api.appnigma.ai"

// ErrMissingAPIKey is returned when no API key is available from either an
// explicit value or the APPNIGMA_API_KEY environment variable.
var ErrMissingAPIKey = errors.New("API key is required")

type Config struct {
	APIKey  string
	BaseURL string
	Debug   bool
}

func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	debug, _ := strconv.ParseBool(os.Getenv("APPNIGMA_DEBUG"))

	cfg := &Config{
		APIKey:  os.Getenv("APPNIGMA_API_KEY"),
		BaseURL: os.Getenv("APPNIGMA_BASE_URL"),
		Debug:   debug,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("APPNIGMA_API_KEY: %w", ErrMissingAPIKey)
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	return nil
}
