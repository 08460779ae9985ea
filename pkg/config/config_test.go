package config

import (
	"errors"
	"testing"
)

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv("APPNIGMA_API_KEY", "")

	_, err := Load()

	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got: %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("APPNIGMA_API_KEY", "sk-test")
	t.Setenv("APPNIGMA_BASE_URL", "https://staging.appnigma.ai")
	t.Setenv("APPNIGMA_DEBUG", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIKey != "sk-test" {
		t.Errorf("expected APIKey=sk-test, got %q", cfg.APIKey)
	}

	if cfg.BaseURL != "https://staging.appnigma.ai" {
		t.Errorf("unexpected BaseURL: %q", cfg.BaseURL)
	}

	if !cfg.Debug {
		t.Error("expected Debug=true")
	}
}

func TestValidate_DefaultBaseURL(t *testing.T) {
	t.Parallel()

	cfg := &Config{APIKey: "sk-test"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("expected default base URL, got %q", cfg.BaseURL)
	}
}
