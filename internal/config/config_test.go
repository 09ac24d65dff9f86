package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":3000" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.DataDir != "data" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.RecordsStrictLoad {
		t.Errorf("RecordsStrictLoad should default to false")
	}
	if cfg.ChatAPITimeout != 60*time.Second {
		t.Errorf("ChatAPITimeout = %s", cfg.ChatAPITimeout)
	}
	if cfg.LLMProvider != ProviderOpenAI {
		t.Errorf("LLMProvider = %q", cfg.LLMProvider)
	}
	if cfg.ReportCron != "0 21 * * *" {
		t.Errorf("ReportCron = %q", cfg.ReportCron)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", "127.0.0.1:8080")
	t.Setenv("DATA_DIR", "/var/lib/chat")
	t.Setenv("RECORDS_STRICT_LOAD", "true")
	t.Setenv("CHAT_API_URL", "https://upstream.example/chat")
	t.Setenv("CHAT_API_TIMEOUT", "5s")
	t.Setenv("LLM_PROVIDER", "yandex")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:8080" || cfg.DataDir != "/var/lib/chat" {
		t.Errorf("unexpected addr/dir: %+v", cfg)
	}
	if !cfg.RecordsStrictLoad {
		t.Errorf("RecordsStrictLoad not parsed")
	}
	if cfg.ChatAPIURL != "https://upstream.example/chat" || cfg.ChatAPITimeout != 5*time.Second {
		t.Errorf("unexpected chat api settings: %+v", cfg)
	}
	if cfg.LLMProvider != ProviderYandex {
		t.Errorf("LLMProvider = %q", cfg.LLMProvider)
	}
}

func TestLoad_RejectsUnknownProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "anthropic")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestLoad_RejectsBadTimeout(t *testing.T) {
	t.Setenv("CHAT_API_TIMEOUT", "0s")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for zero timeout")
	}
}

func TestLoad_RejectsBadGinMode(t *testing.T) {
	t.Setenv("GIN_MODE", "verbose")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown gin mode")
	}
}
