// Package config loads the accesspdf YAML configuration and the provider
// credentials.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wudi/accesspdf/alttext"
	"github.com/wudi/accesspdf/cache"
	"github.com/wudi/accesspdf/processors"
	"github.com/wudi/accesspdf/providers"
	"github.com/wudi/accesspdf/remediate"
	"github.com/wudi/accesspdf/report"
)

const (
	// FileName is the configuration file looked up in the working directory
	// and the user config directory.
	FileName = "accesspdf.yaml"

	defaultProvider      = "none"
	defaultReportFormat  = "markdown"
	defaultCacheFileName = "alttext-cache.json"
)

type Config struct {
	AI           AIConfig           `yaml:"ai"`
	Output       OutputConfig       `yaml:"output"`
	Cache        CacheConfig        `yaml:"cache"`
	Batch        BatchConfig        `yaml:"batch"`
	Headings     HeadingsConfig     `yaml:"headings"`
	ReadingOrder ReadingOrderConfig `yaml:"reading_order"`
	Tables       TablesConfig       `yaml:"tables"`
	Language     LanguageConfig     `yaml:"language"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `yaml:"-"`
}

type AIConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxImageDim int           `yaml:"max_image_dim"`
}

type OutputConfig struct {
	Suffix       string `yaml:"suffix"`
	ReportFormat string `yaml:"report_format"`
}

type CacheConfig struct {
	Backend  string `yaml:"backend"`
	Path     string `yaml:"path"`
	RedisURL string `yaml:"redis_url"`
	DSN      string `yaml:"dsn"`
}

type BatchConfig struct {
	Workers int `yaml:"workers"`
}

type HeadingsConfig struct {
	MaxLevel        int     `yaml:"max_level"`
	MinRatio        float64 `yaml:"min_ratio"`
	DropCapMaxRunes int     `yaml:"drop_cap_max_runes"`
}

type ReadingOrderConfig struct {
	ColumnGap float64 `yaml:"column_gap"`
}

type TablesConfig struct {
	Tolerance       float64 `yaml:"tolerance"`
	HeaderShortfall float64 `yaml:"header_shortfall"`
}

type LanguageConfig struct {
	Default string `yaml:"default"`
}

// Default returns the built-in configuration.
func Default() Config {
	pc := processors.DefaultConfig()
	return Config{
		AI: AIConfig{
			Provider:    defaultProvider,
			MaxTokens:   providers.DefaultMaxTokens,
			Timeout:     alttext.DefaultTimeout,
			MaxImageDim: providers.DefaultMaxImageDim,
		},
		Output: OutputConfig{Suffix: remediate.DefaultSuffix, ReportFormat: defaultReportFormat},
		Cache:  CacheConfig{Backend: cache.BackendFile, Path: defaultCachePath()},
		Headings: HeadingsConfig{
			MaxLevel:        pc.MaxHeadingLevel,
			MinRatio:        pc.HeadingMinRatio,
			DropCapMaxRunes: pc.DropCapMaxRunes,
		},
		ReadingOrder: ReadingOrderConfig{ColumnGap: pc.ColumnGap},
		Tables:       TablesConfig{Tolerance: pc.TableTolerance, HeaderShortfall: pc.HeaderShortfall},
		Language:     LanguageConfig{Default: pc.DefaultLang},
	}
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return defaultCacheFileName
	}
	return filepath.Join(dir, "accesspdf", defaultCacheFileName)
}

// SearchPaths lists the files Find tries, in order.
func SearchPaths() []string {
	paths := []string{FileName}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "accesspdf", FileName))
	}
	return paths
}

// Find loads the configuration. An explicit path must exist; otherwise the
// first file found in SearchPaths is used, falling back to Default.
func Find(explicit string) (*Config, error) {
	if p := strings.TrimSpace(explicit); p != "" {
		return Load(p)
	}
	for _, p := range SearchPaths() {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		return Load(p)
	}
	cfg := Default()
	return &cfg, nil
}

// Load reads the YAML file at path over the defaults. Unknown keys are
// rejected.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}
	cfg := Default()
	if len(bytes.TrimSpace(content)) > 0 {
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
	}
	cfg.Path = path
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %q: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	d := Default()
	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))
	if c.AI.Provider == "" {
		c.AI.Provider = d.AI.Provider
	}
	c.AI.Model = strings.TrimSpace(c.AI.Model)
	c.AI.BaseURL = strings.TrimSpace(c.AI.BaseURL)
	if c.AI.MaxTokens <= 0 {
		c.AI.MaxTokens = d.AI.MaxTokens
	}
	if c.AI.Timeout <= 0 {
		c.AI.Timeout = d.AI.Timeout
	}
	if c.AI.MaxImageDim <= 0 {
		c.AI.MaxImageDim = d.AI.MaxImageDim
	}
	if strings.TrimSpace(c.Output.Suffix) == "" {
		c.Output.Suffix = d.Output.Suffix
	}
	c.Output.ReportFormat = strings.ToLower(strings.TrimSpace(c.Output.ReportFormat))
	if c.Output.ReportFormat == "" {
		c.Output.ReportFormat = d.Output.ReportFormat
	}
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = d.Cache.Backend
	}
	if c.Cache.Path == "" {
		c.Cache.Path = d.Cache.Path
	}
	if c.Batch.Workers < 0 {
		c.Batch.Workers = 0
	}
}

// Validate rejects values no component accepts.
func (c *Config) Validate() error {
	if _, ok := providers.Lookup(c.AI.Provider); !ok {
		return fmt.Errorf("unknown ai.provider %q (available: %s)", c.AI.Provider, strings.Join(providers.Names(), ", "))
	}
	if _, err := report.ParseFormat(c.Output.ReportFormat); err != nil {
		return fmt.Errorf("output.report_format: %w", err)
	}
	switch c.Cache.Backend {
	case cache.BackendFile, cache.BackendMemory:
	case cache.BackendRedis:
		if c.Cache.RedisURL == "" {
			return errors.New("cache.redis_url is required for the redis backend")
		}
	case cache.BackendPostgres, cache.BackendMySQL:
		if c.Cache.DSN == "" {
			return fmt.Errorf("cache.dsn is required for the %s backend", c.Cache.Backend)
		}
	default:
		return fmt.Errorf("unknown cache.backend %q", c.Cache.Backend)
	}
	if c.Headings.MaxLevel < 0 || c.Headings.MaxLevel > 6 {
		return fmt.Errorf("headings.max_level %d out of range 1-6", c.Headings.MaxLevel)
	}
	return nil
}

// Processors returns the processor tuning.
func (c *Config) Processors() processors.Config {
	return processors.Config{
		ColumnGap:       c.ReadingOrder.ColumnGap,
		DefaultLang:     c.Language.Default,
		MaxHeadingLevel: c.Headings.MaxLevel,
		HeadingMinRatio: c.Headings.MinRatio,
		DropCapMaxRunes: c.Headings.DropCapMaxRunes,
		TableTolerance:  c.Tables.Tolerance,
		HeaderShortfall: c.Tables.HeaderShortfall,
	}
}

// CacheSettings returns the cache store selection.
func (c *Config) CacheSettings() cache.Settings {
	return cache.Settings{
		Backend:  c.Cache.Backend,
		Path:     c.Cache.Path,
		RedisURL: c.Cache.RedisURL,
		DSN:      c.Cache.DSN,
	}
}

// ProviderConfig builds the provider configuration, taking the key from
// creds. name and model override the file when set.
func (c *Config) ProviderConfig(name, model string, creds Credentials) providers.Config {
	pc := providers.Config{
		Name:      c.AI.Provider,
		Model:     c.AI.Model,
		BaseURL:   c.AI.BaseURL,
		MaxTokens: c.AI.MaxTokens,
		Timeout:   c.AI.Timeout,
	}
	if name != "" && !strings.EqualFold(name, pc.Name) {
		pc.Name = name
		pc.Model = ""
		pc.BaseURL = ""
	}
	if model != "" {
		pc.Model = model
	}
	if info, ok := providers.Lookup(pc.Name); ok && info.KeyEnv != "" {
		pc.APIKey = creds.Get(info.KeyEnv)
	}
	return pc
}
