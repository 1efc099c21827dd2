package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{})
	cfg, err := Load("bookwise-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Auth.Required {
		t.Fatal("Auth.Required should default to false in dev")
	}
	if cfg.Library.MaxOpenConns != 20 {
		t.Fatalf("Library.MaxOpenConns = %d", cfg.Library.MaxOpenConns)
	}
	if cfg.AI.Model != "gemini-1.5-flash" {
		t.Fatalf("AI.Model = %q", cfg.AI.Model)
	}
	if cfg.AI.Timeout != 15*time.Second {
		t.Fatalf("AI.Timeout = %v", cfg.AI.Timeout)
	}
	if !cfg.Chat.Enabled {
		t.Fatal("Chat.Enabled should default to true")
	}
	if cfg.Chat.MaxQueryResults != 100 {
		t.Fatalf("Chat.MaxQueryResults = %d", cfg.Chat.MaxQueryResults)
	}
	if !cfg.Audit.Enabled {
		t.Fatal("Audit.Enabled should default to true")
	}
	if cfg.Archive.Enabled {
		t.Fatal("Archive.Enabled should default to false")
	}
	if cfg.Archive.Endpoint != "localhost:9000" {
		t.Fatalf("Archive.Endpoint = %q", cfg.Archive.Endpoint)
	}
	if cfg.Archive.BatchSize != 500 {
		t.Fatalf("Archive.BatchSize = %d", cfg.Archive.BatchSize)
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	lookup := mapLookup(map[string]string{"BOOKWISE_PROFILE": "prod"})
	cfg, err := Load("bookwise-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileProd {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileProd)
	}
	if !cfg.Auth.Required {
		t.Fatal("Auth.Required should default to true in prod")
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.Archive.UseSSL {
		t.Fatal("Archive.UseSSL should default to true in prod")
	}
	if cfg.Archive.AutoCreateBucket {
		t.Fatal("Archive.AutoCreateBucket should default to false in prod")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"BOOKWISE_PROFILE":                "test",
		"BOOKWISE_HTTP_ADDR":              ":9999",
		"BOOKWISE_HTTP_READ_TIMEOUT":      "2s",
		"BOOKWISE_LOG_LEVEL":              "error",
		"BOOKWISE_AUTH_REQUIRED":          "true",
		"BOOKWISE_AUTH_STATIC_KEYS":       "k1:alice@example.com:member",
		"BOOKWISE_LIBRARY_DSN":            "postgres://example",
		"BOOKWISE_LIBRARY_MAX_OPEN_CONNS": "42",
		"BOOKWISE_SERVICE_NAME":           "bookwise-custom",
		"BOOKWISE_AI_MODEL":               "gemini-2.0-flash",
		"BOOKWISE_AI_TEMPERATURE":         "0.4",
		"BOOKWISE_AI_TIMEOUT":             "30s",
		"BOOKWISE_CHAT_MAX_QUERY_RESULTS": "25",
		"BOOKWISE_ARCHIVE_ENABLED":        "true",
		"BOOKWISE_ARCHIVE_BUCKET":         "bookwise-audit",
	})
	cfg, err := Load("bookwise-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.Name != "bookwise-custom" {
		t.Fatalf("Service.Name = %q", cfg.Service.Name)
	}
	if cfg.HTTP.Address != ":9999" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.HTTP.ReadTimeout != 2*time.Second {
		t.Fatalf("HTTP.ReadTimeout = %v", cfg.HTTP.ReadTimeout)
	}
	if cfg.Observability.LogLevel != slog.LevelError {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.Auth.Required {
		t.Fatal("Auth.Required should be true")
	}
	if cfg.Library.DSN != "postgres://example" {
		t.Fatalf("Library.DSN = %q", cfg.Library.DSN)
	}
	if cfg.Library.MaxOpenConns != 42 {
		t.Fatalf("Library.MaxOpenConns = %d", cfg.Library.MaxOpenConns)
	}
	if cfg.AI.Model != "gemini-2.0-flash" {
		t.Fatalf("AI.Model = %q", cfg.AI.Model)
	}
	if cfg.AI.Temperature != 0.4 {
		t.Fatalf("AI.Temperature = %v", cfg.AI.Temperature)
	}
	if cfg.AI.Timeout != 30*time.Second {
		t.Fatalf("AI.Timeout = %v", cfg.AI.Timeout)
	}
	if cfg.Chat.MaxQueryResults != 25 {
		t.Fatalf("Chat.MaxQueryResults = %d", cfg.Chat.MaxQueryResults)
	}
	if !cfg.Archive.Enabled {
		t.Fatal("Archive.Enabled should be true")
	}
	if cfg.Archive.Bucket != "bookwise-audit" {
		t.Fatalf("Archive.Bucket = %q", cfg.Archive.Bucket)
	}
}

func TestLoadRejectsInvalidProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{"BOOKWISE_PROFILE": "staging"})
	if _, err := Load("bookwise-api", lookup); err == nil {
		t.Fatal("expected error for invalid profile")
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	lookup := mapLookup(map[string]string{"BOOKWISE_HTTP_READ_TIMEOUT": "not-a-duration"})
	if _, err := Load("bookwise-api", lookup); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestLoadRejectsChatWithoutBaseURL(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"BOOKWISE_CHAT_ENABLED": "true",
		"BOOKWISE_AI_BASE_URL":  "",
	})
	if _, err := Load("bookwise-api", lookup); err == nil {
		t.Fatal("expected error when chat is enabled without ai base url")
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
