package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	t.Setenv("TEST_DEEPSEEK_KEY", "sk-secret")
	path := writeConfig(t, `
store_path: /tmp/test.db
fetch:
  query: utvecklare
  timeout: 10s
  min_delay: 2s
  max_retries: 3
  retry_base_delay: 1s
llm:
  backend: deepseek
  api_key: ${TEST_DEEPSEEK_KEY}
  workers: 3
keywords:
  llm_related:
    - prompt engineering
    - langchain
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.StorePath != "/tmp/test.db" {
		t.Errorf("store_path: got %q", cfg.StorePath)
	}
	if cfg.Fetch.Timeout != 10*time.Second || cfg.Fetch.MinDelay != 2*time.Second {
		t.Errorf("fetch durations not parsed: %+v", cfg.Fetch)
	}
	if cfg.Fetch.MaxRetries != 3 {
		t.Errorf("max_retries: got %d", cfg.Fetch.MaxRetries)
	}
	if cfg.LLM.APIKey != "sk-secret" {
		t.Errorf("api_key env expansion failed: %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.BaseURL != "https://api.deepseek.com" {
		t.Errorf("expected deepseek base url default, got %q", cfg.LLM.BaseURL)
	}
	if cfg.LLM.Model != "deepseek-chat" {
		t.Errorf("expected deepseek model default, got %q", cfg.LLM.Model)
	}
	if cfg.LLM.Workers != 3 {
		t.Errorf("workers: got %d", cfg.LLM.Workers)
	}
	if len(cfg.Keywords.LLMRelated) != 2 {
		t.Errorf("expected custom keyword partition, got %v", cfg.Keywords.LLMRelated)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
llm:
  backend: kobold
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Fetch.Query != "utvecklare" {
		t.Errorf("expected default query, got %q", cfg.Fetch.Query)
	}
	if cfg.LLM.BaseURL != "http://localhost:5001" {
		t.Errorf("expected kobold base url default, got %q", cfg.LLM.BaseURL)
	}
	if len(cfg.Keywords.LLMRelated) == 0 {
		t.Error("expected default llm_related seed list")
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := writeConfig(t, `
llm:
  backend: bard
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `
fetch:
  timeout: fast
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}

func TestValidateLLMRequiresCredentials(t *testing.T) {
	cfg := Default()
	cfg.LLM.APIKey = ""
	if err := ValidateLLM(cfg); err == nil {
		t.Fatal("expected error for missing api key")
	}

	cfg.LLM.Backend = "kobold"
	cfg.LLM.BaseURL = "http://localhost:5001"
	if err := ValidateLLM(cfg); err != nil {
		t.Errorf("kobold needs no key: %v", err)
	}
}

func TestBackendSwitchDropsStaleDefaults(t *testing.T) {
	// Selecting openai must not inherit the deepseek defaults.
	path := writeConfig(t, `
llm:
  backend: openai
  api_key: sk-test
  model: gpt-4o-mini
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("expected openai base url, got %q", cfg.LLM.BaseURL)
	}
}
