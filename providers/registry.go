package providers

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// Config selects and configures a provider. Credentials arrive here
// explicitly; no provider reads the environment.
type Config struct {
	Name      string
	Model     string
	APIKey    string
	BaseURL   string
	MaxTokens int
	// Timeout bounds one Describe call. Callers normally enforce it through
	// the context as well.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Info describes a registered provider.
type Info struct {
	Name         string
	DefaultModel string
	// KeyEnv names the credential variable, empty for keyless providers.
	KeyEnv string
	Local  bool
}

// NeedsKey reports whether the provider requires an API key.
func (i Info) NeedsKey() bool { return i.KeyEnv != "" }

// Factory builds a provider from a normalised Config.
type Factory func(Config) (Provider, error)

type entry struct {
	info    Info
	factory Factory
}

var (
	mu       sync.RWMutex
	registry = map[string]entry{}
)

func init() {
	Register(Info{Name: "anthropic", DefaultModel: "claude-sonnet-4-20250514", KeyEnv: "ANTHROPIC_API_KEY"},
		func(cfg Config) (Provider, error) { return NewAnthropic(cfg), nil })
	Register(Info{Name: "openai", DefaultModel: "gpt-4o", KeyEnv: "OPENAI_API_KEY"},
		func(cfg Config) (Provider, error) { return NewOpenAI(cfg), nil })
	Register(Info{Name: "gemini", DefaultModel: "gemini-2.0-flash", KeyEnv: "GOOGLE_API_KEY"},
		func(cfg Config) (Provider, error) { return NewGemini(cfg), nil })
	Register(Info{Name: "ollama", DefaultModel: "llava", Local: true},
		func(cfg Config) (Provider, error) { return NewOllama(cfg), nil })
	Register(Info{Name: "noop", Local: true},
		func(cfg Config) (Provider, error) { return Noop{}, nil })
}

// Register adds a provider. Registering a name twice replaces the earlier
// entry.
func Register(info Info, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	info.Name = normalizeName(info.Name)
	registry[info.Name] = entry{info: info, factory: f}
}

// Lookup returns the registration for name.
func Lookup(name string) (Info, bool) {
	mu.RLock()
	defer mu.RUnlock()
	e, ok := registry[normalizeName(name)]
	return e.info, ok
}

// Names lists registered providers alphabetically.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New builds the provider named by cfg.Name, filling in the default model and
// token limit. A provider that needs a key but has none is returned as an
// Unavailable variant so callers can still run and report each image as
// failed.
func New(cfg Config) (Provider, error) {
	cfg.Name = normalizeName(cfg.Name)
	mu.RLock()
	e, ok := registry[cfg.Name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (available: %s)", cfg.Name, strings.Join(Names(), ", "))
	}
	if cfg.Model == "" {
		cfg.Model = e.info.DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if e.info.NeedsKey() && cfg.APIKey == "" {
		return NewUnavailable(cfg.Name, cfg.Model, fmt.Sprintf("%s is not set", e.info.KeyEnv)), nil
	}
	return e.factory(cfg)
}

func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "none" {
		return "noop"
	}
	return name
}
