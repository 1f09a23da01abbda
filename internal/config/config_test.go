package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "API_URL", "CLASSIFY_TIMEOUT", "CLASSIFY_MAX_RETRIES", "GEMINI_MODEL_ID", "CORS_ALLOWED_ORIGINS", "REDIS_ADDR"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8000" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" || !cfg.IsDevelopment() {
		t.Fatalf("expected development env, got %s", cfg.Env)
	}
	if cfg.APIURL != "http://localhost:8000" {
		t.Fatalf("expected default api url, got %s", cfg.APIURL)
	}
	if cfg.ClassifyTimeout != 60*time.Second {
		t.Fatalf("expected default classify timeout, got %s", cfg.ClassifyTimeout)
	}
	if cfg.ClassifyMaxRetries != 0 {
		t.Fatalf("expected retries disabled by default, got %d", cfg.ClassifyMaxRetries)
	}
	if cfg.GeminiModelID != "gemini-2.0-flash" {
		t.Fatalf("expected default gemini model, got %s", cfg.GeminiModelID)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("expected wildcard cors default, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RedisAddr != "" {
		t.Fatalf("expected redis disabled by default, got %s", cfg.RedisAddr)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("API_URL", "https://classify.example.com/")
	t.Setenv("CLASSIFY_TIMEOUT", "15s")
	t.Setenv("CLASSIFY_MAX_RETRIES", "2")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("RESULT_CACHE_TTL", "10m")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.IsDevelopment() {
		t.Fatalf("expected production env")
	}
	if cfg.APIURL != "https://classify.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.APIURL)
	}
	if cfg.ClassifyTimeout != 15*time.Second {
		t.Fatalf("expected timeout override, got %s", cfg.ClassifyTimeout)
	}
	if cfg.ClassifyMaxRetries != 2 {
		t.Fatalf("expected retries override, got %d", cfg.ClassifyMaxRetries)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitRPS != 0.5 {
		t.Fatalf("expected rate override, got %v", cfg.RateLimitRPS)
	}
	if !cfg.RedisTLS {
		t.Fatalf("expected redis tls enabled")
	}
	if cfg.ResultCacheTTL != 10*time.Minute {
		t.Fatalf("expected cache ttl override, got %s", cfg.ResultCacheTTL)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("CLASSIFY_TIMEOUT", "soon")
	t.Setenv("CLASSIFY_MAX_RETRIES", "many")
	cfg := Load()
	if cfg.ClassifyTimeout != 60*time.Second {
		t.Fatalf("expected fallback timeout, got %s", cfg.ClassifyTimeout)
	}
	if cfg.ClassifyMaxRetries != 0 {
		t.Fatalf("expected fallback retries, got %d", cfg.ClassifyMaxRetries)
	}
}
