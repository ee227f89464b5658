package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if cfg.Domain != "afl" {
		t.Errorf("expected domain 'afl', got %q", cfg.Domain)
	}
	if len(cfg.Sources.Feeds) == 0 {
		t.Error("expected feeds to be populated")
	}
	if cfg.Oracle.Provider != "ollama" {
		t.Errorf("expected provider 'ollama', got %q", cfg.Oracle.Provider)
	}
	if cfg.Pipeline.RetentionDays != 7 {
		t.Errorf("expected retention 7 days, got %d", cfg.Pipeline.RetentionDays)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
oracle:
  provider: openai
  openai_model: gpt-4o
pipeline:
  triage_batch_size: 10
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Oracle.Provider != "openai" {
		t.Errorf("expected provider 'openai', got %q", cfg.Oracle.Provider)
	}
	if cfg.Pipeline.TriageBatchSize != 10 {
		t.Errorf("expected triage batch 10, got %d", cfg.Pipeline.TriageBatchSize)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Oracle.OllamaURL != "http://localhost:11434" {
		t.Errorf("expected default ollama_url, got %q", cfg.Oracle.OllamaURL)
	}
	if cfg.Pipeline.AnalysisBatchSize != 20 {
		t.Errorf("expected default analysis batch 20, got %d", cfg.Pipeline.AnalysisBatchSize)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if len(cfg.Sources.Feeds) == 0 {
		t.Error("expected feeds to be populated from file")
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	if cfg.GetDataDir() == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
}
