package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Store.Driver != "sqlite" {
		t.Errorf("expected sqlite driver by default, got %q", cfg.Store.Driver)
	}
	if cfg.API.StaticBaseURL != "http://localhost:8000/predictions" {
		t.Errorf("unexpected static base URL %q", cfg.API.StaticBaseURL)
	}
	if cfg.Server.Address() != "127.0.0.1:8090" {
		t.Errorf("unexpected address %q", cfg.Server.Address())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.org/")
	t.Setenv("API_TIMEOUT", "5s")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example.org , ,https://b.example.org")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.API.BaseURL != "https://api.example.org" {
		t.Errorf("trailing slash should be trimmed, got %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", cfg.API.Timeout)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 {
		t.Errorf("expected 2 origins, got %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORE_DRIVER", "mysql")
	t.Setenv("API_BASE_URL", "not-a-url")

	_, err := Load()
	if err == nil {
		t.Fatal("expected configuration error")
	}

	for _, want := range []string{"STORE_DRIVER", "STORE_SEAL_SECRET", "API_BASE_URL"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s, got: %v", want, err)
		}
	}
}
