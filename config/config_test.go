package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wudi/accesspdf/cache"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.AI.Provider != "none" || cfg.AI.Model != "" || cfg.AI.MaxTokens != 300 {
		t.Fatalf("unexpected ai defaults %+v", cfg.AI)
	}
	if cfg.Output.Suffix != "_accessible" || cfg.Output.ReportFormat != "markdown" {
		t.Fatalf("unexpected output defaults %+v", cfg.Output)
	}
	if cfg.AI.Timeout != 60*time.Second || cfg.Cache.Backend != cache.BackendFile {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := writeFile(t, t.TempDir(), FileName, `ai:
  provider: ollama
  model: llava:13b
  base_url: http://localhost:11434
  max_tokens: 500
  timeout: 90s
output:
  suffix: _fixed
  report_format: json
batch:
  workers: 3
headings:
  max_level: 4
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AI.Provider != "ollama" || cfg.AI.Model != "llava:13b" || cfg.AI.MaxTokens != 500 || cfg.AI.Timeout != 90*time.Second {
		t.Fatalf("unexpected ai config %+v", cfg.AI)
	}
	if cfg.Output.Suffix != "_fixed" || cfg.Output.ReportFormat != "json" || cfg.Batch.Workers != 3 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if pc := cfg.Processors(); pc.MaxHeadingLevel != 4 || pc.DefaultLang != "en-US" {
		t.Fatalf("unexpected processor config %+v", pc)
	}
	if cfg.Path != path {
		t.Fatalf("path = %q", cfg.Path)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), FileName, "ai:\n  provider: Anthropic\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AI.Provider != "anthropic" || cfg.AI.MaxTokens != 300 || cfg.Output.ReportFormat != "markdown" {
		t.Fatalf("defaults not preserved: %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"unknown-key.yaml":      "ai:\n  provder: openai\n",
		"unknown-provider.yaml": "ai:\n  provider: watson\n",
		"bad-format.yaml":       "output:\n  report_format: pdf\n",
		"redis.yaml":            "cache:\n  backend: redis\n",
		"backend.yaml":          "cache:\n  backend: s3\n",
		"levels.yaml":           "headings:\n  max_level: 9\n",
	} {
		if _, err := Load(writeFile(t, dir, name, content)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestFindSearchOrder(t *testing.T) {
	home := t.TempDir()
	work := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(work)

	cfg, err := Find("")
	if err != nil || cfg.Path != "" || cfg.AI.Provider != "none" {
		t.Fatalf("expected defaults, got %+v, %v", cfg, err)
	}

	writeFile(t, home, filepath.Join(".config", "accesspdf", FileName), "ai:\n  provider: openai\n")
	cfg, err = Find("")
	if err != nil || cfg.AI.Provider != "openai" {
		t.Fatalf("user config not found: %+v, %v", cfg, err)
	}

	writeFile(t, work, FileName, "ai:\n  provider: gemini\n")
	cfg, err = Find("")
	if err != nil || cfg.AI.Provider != "gemini" {
		t.Fatalf("working directory config must win: %+v, %v", cfg, err)
	}

	explicit := writeFile(t, work, "other.yaml", "ai:\n  provider: ollama\n")
	if cfg, err = Find(explicit); err != nil || cfg.AI.Provider != "ollama" {
		t.Fatalf("explicit config must win: %+v, %v", cfg, err)
	}
	if _, err := Find(filepath.Join(work, "missing.yaml")); err == nil {
		t.Fatal("missing explicit config must fail")
	}
}

func TestProviderConfig(t *testing.T) {
	cfg := Default()
	cfg.AI.Provider = "ollama"
	cfg.AI.Model = "llava:13b"
	cfg.AI.BaseURL = "http://gpu:11434"
	creds := Credentials{"ANTHROPIC_API_KEY": "sk-test"}

	pc := cfg.ProviderConfig("", "", creds)
	if pc.Name != "ollama" || pc.Model != "llava:13b" || pc.BaseURL != "http://gpu:11434" || pc.APIKey != "" {
		t.Fatalf("unexpected provider config %+v", pc)
	}
	pc = cfg.ProviderConfig("anthropic", "", creds)
	if pc.Name != "anthropic" || pc.Model != "" || pc.BaseURL != "" || pc.APIKey != "sk-test" {
		t.Fatalf("override must not carry the other provider's model: %+v", pc)
	}
	if pc.Timeout != cfg.AI.Timeout || pc.MaxTokens != 300 {
		t.Fatalf("limits not carried: %+v", pc)
	}
}

func TestLoadCredentials(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "first.env", "OPENAI_API_KEY=from-file\nANTHROPIC_API_KEY=anthropic-file\n")
	second := writeFile(t, dir, "second.env", "OPENAI_API_KEY=second-file\nGOOGLE_API_KEY=google-file\n")
	t.Setenv("ANTHROPIC_API_KEY", "anthropic-env")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	creds, err := LoadCredentials(first, filepath.Join(dir, "missing.env"), second)
	if err != nil {
		t.Fatalf("LoadCredentials() error = %v", err)
	}
	if got := creds.Get("OPENAI_API_KEY"); got != "from-file" {
		t.Fatalf("OPENAI_API_KEY = %q", got)
	}
	if got := creds.Get("ANTHROPIC_API_KEY"); got != "anthropic-env" {
		t.Fatalf("environment must override files, got %q", got)
	}
	if got := creds.Get("GOOGLE_API_KEY"); got != "google-file" {
		t.Fatalf("GOOGLE_API_KEY = %q", got)
	}
}
