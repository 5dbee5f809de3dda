package config

import (
	"errors"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "REQUEST_TIMEOUT", "CORS_ALLOWED_ORIGINS",
		"LLM_PROVIDER", "OPENAI_API_KEY", "OPENAI_BASE_URL", "ARK_API_KEY", "ARK_BASE_URL", "ARK_REGION",
		"LLM_MODEL", "LLM_TEMPERATURE", "LLM_TOP_P", "LLM_MAX_TOKENS", "LLM_TIMEOUT", "SYSTEM_PROMPT",
		"CHAT_STORE", "REDIS_URL", "DATABASE_URL", "CHAT_HISTORY_TTL", "STORE_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":8000" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Server.RequestTimeout != 60*time.Second {
		t.Fatalf("unexpected request timeout: %s", cfg.Server.RequestTimeout)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "*" {
		t.Fatalf("unexpected origins: %v", cfg.Server.AllowedOrigins)
	}
	if cfg.AI.Provider != ProviderOpenAI || cfg.AI.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected ai config: %+v", cfg.AI)
	}
	if cfg.AI.Timeout != 30*time.Second {
		t.Fatalf("unexpected llm timeout: %s", cfg.AI.Timeout)
	}
	if cfg.Store.Backend != StoreMemory || cfg.Store.Durable() {
		t.Fatalf("expected volatile memory store, got %+v", cfg.Store)
	}
	if cfg.Store.Timeout != 5*time.Second {
		t.Fatalf("unexpected store timeout: %s", cfg.Store.Timeout)
	}
}

func TestLoadRequiresAPIKey(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestLoadArkRequiresArkKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "ark")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	if _, err := Load(); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}

	t.Setenv("ARK_API_KEY", "ark-key")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.AI.BaseURL == "" || cfg.AI.Region != "cn-beijing" {
		t.Fatalf("expected ark endpoint defaults, got %+v", cfg.AI)
	}
}

func TestLoadDurableStoreRequiresConnectionString(t *testing.T) {
	cases := map[string]string{
		StoreRedis:    "REDIS_URL",
		StorePostgres: "DATABASE_URL",
	}

	for backend, key := range cases {
		t.Run(backend, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("OPENAI_API_KEY", "sk-test")
			t.Setenv("CHAT_STORE", backend)

			if _, err := Load(); !errors.Is(err, ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration without %s, got %v", key, err)
			}

			t.Setenv(key, "redis://localhost:6379/0")
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load err: %v", err)
			}
			if !cfg.Store.Durable() {
				t.Fatalf("expected %s to be durable", backend)
			}
		})
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":            "80 80",
		"LLM_TIMEOUT":     "-1",
		"LLM_TEMPERATURE": "warm",
		"CHAT_STORE":      "mongo",
		"LLM_PROVIDER":    "unknown",
	}

	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("OPENAI_API_KEY", "sk-test")
			t.Setenv(key, value)

			if _, err := Load(); !errors.Is(err, ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration for %s=%q, got %v", key, value, err)
			}
		})
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:8501, https://chat.example.com")
	t.Setenv("LLM_MAX_TOKENS", "512")
	t.Setenv("SYSTEM_PROMPT", "  You are terse.  ")
	t.Setenv("CHAT_HISTORY_TTL", "3600")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://chat.example.com" {
		t.Fatalf("unexpected origins: %v", cfg.Server.AllowedOrigins)
	}
	if cfg.AI.MaxTokens == nil || *cfg.AI.MaxTokens != 512 {
		t.Fatalf("unexpected max tokens: %v", cfg.AI.MaxTokens)
	}
	if cfg.AI.SystemPrompt != "You are terse." {
		t.Fatalf("unexpected system prompt: %q", cfg.AI.SystemPrompt)
	}
	if cfg.Store.HistoryTTL != time.Hour {
		t.Fatalf("unexpected ttl: %s", cfg.Store.HistoryTTL)
	}
}
