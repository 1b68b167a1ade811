package vision

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ProviderConfig configures one vision provider instance.
type ProviderConfig struct {
	Type           string // "anthropic", "gemini", "mock"
	Model          string
	APIKey         string
	MaxTokens      int
	TimeoutSeconds int
	Enabled        bool
}

// RegistryConfig is the full provider section of the application config.
type RegistryConfig struct {
	Providers map[string]ProviderConfig
}

// Registry holds instantiated providers. It supports config-driven
// instantiation with hot-reload and thread-safe access.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	logger    *slog.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		logger:    slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register adds a provider by name.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
	if r.logger != nil {
		r.logger.Info("registered vision provider", "name", name, "type", p.Name())
	}
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("vision provider not found: %s", name)
	}
	return p, nil
}

// List returns the names of all registered providers.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// Reload replaces the registry contents from config. Disabled entries and
// entries that fail to construct are skipped with a log line rather than
// failing the whole reload.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]Provider, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		if !pc.Enabled {
			continue
		}
		p, err := buildProvider(pc)
		if err != nil {
			if r.logger != nil {
				r.logger.Error("failed to build vision provider", "name", name, "error", err)
			}
			continue
		}
		next[name] = p
		if r.logger != nil {
			r.logger.Info("registered vision provider", "name", name, "type", pc.Type)
		}
	}
	r.providers = next
}

func buildProvider(pc ProviderConfig) (Provider, error) {
	switch pc.Type {
	case AnthropicName:
		return NewAnthropicClient(AnthropicConfig{
			APIKey:    pc.APIKey,
			Model:     pc.Model,
			MaxTokens: pc.MaxTokens,
			Timeout:   time.Duration(pc.TimeoutSeconds) * time.Second,
		}), nil
	case GeminiName:
		return NewGeminiClient(context.Background(), GeminiConfig{
			APIKey: pc.APIKey,
			Model:  pc.Model,
		})
	case MockName:
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown vision provider type: %s", pc.Type)
	}
}
