package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
site:
  base_url: https://ruckquest.com
engine:
  window_words: 400
  suggest_workers: 2
gemini:
  api_key: file-key
  model: gemini-2.0-flash
storage:
  backend: filesystem
  base_path: /var/lib/augmenter
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Site.BaseURL != "https://ruckquest.com" {
		t.Errorf("base url = %q", cfg.Site.BaseURL)
	}
	if cfg.Engine.WindowWords != 400 || cfg.Engine.SuggestWorkers != 2 {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	if cfg.Gemini.APIKey != "file-key" {
		t.Errorf("gemini key = %q", cfg.Gemini.APIKey)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("STORAGE_BACKEND", "s3")

	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gemini.APIKey != "env-key" {
		t.Errorf("gemini key = %q, want env override", cfg.Gemini.APIKey)
	}
	if cfg.Storage.Backend != "s3" {
		t.Errorf("storage backend = %q, want env override", cfg.Storage.Backend)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("AUGMENTER_BASE_URL", "https://example.com")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Site.BaseURL != "https://example.com" {
		t.Errorf("base url = %q", cfg.Site.BaseURL)
	}
}

func TestSitemapURLDefault(t *testing.T) {
	var cfg Config
	cfg.Site.BaseURL = "https://ruckquest.com"
	if got := cfg.SitemapURL(); got != "https://ruckquest.com/sitemap.xml" {
		t.Errorf("sitemap url = %q", got)
	}

	cfg.Site.SitemapURL = "https://ruckquest.com/custom.xml"
	if got := cfg.SitemapURL(); got != "https://ruckquest.com/custom.xml" {
		t.Errorf("sitemap url = %q, want explicit value", got)
	}
}
