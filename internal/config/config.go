// Package config handles loading and hot-reloading the application
// configuration from YAML, environment variables, and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"fieldledger/internal/vision"
)

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a new config manager and loads initial config.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{
		callbacks: make([]func(*Config), 0),
	}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile string) error {
	defaults := DefaultConfig()
	viper.SetDefault("server", defaults.Server)
	viper.SetDefault("vision_providers", defaults.VisionProviders)
	viper.SetDefault("defaults", defaults.Defaults)
	viper.SetDefault("sheets", defaults.Sheets)
	viper.SetDefault("extract", defaults.Extract)

	// Environment variables with FIELDLEDGER_ prefix
	viper.SetEnvPrefix("FIELDLEDGER")
	viper.AutomaticEnv()

	// Config file
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.fieldledger")
	}

	// Try to read config file (not required)
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration.
func (cm *Manager) WatchConfig() {
	viper.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	viper.WatchConfig()
}

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	pattern := regexp.MustCompile(`\$\{([^}]+)\}`)
	return pattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// ToVisionRegistryConfig converts the config to a format suitable for
// vision.Registry. It resolves all ${ENV_VAR} references in API keys.
func (c *Config) ToVisionRegistryConfig() vision.RegistryConfig {
	cfg := vision.RegistryConfig{
		Providers: make(map[string]vision.ProviderConfig),
	}

	for name, p := range c.VisionProviders {
		cfg.Providers[name] = vision.ProviderConfig{
			Type:           p.Type,
			Model:          p.Model,
			APIKey:         ResolveEnvVars(p.APIKey),
			MaxTokens:      p.MaxTokens,
			TimeoutSeconds: p.TimeoutSeconds,
			Enabled:        p.Enabled,
		}
	}

	return cfg
}

// SheetID returns the configured sheet ID with env references resolved.
func (c *Config) SheetID() string {
	return ResolveEnvVars(c.Sheets.SheetID)
}

// ServiceAccountJSON returns the raw service identity document with env
// references resolved. Empty when the deployment has no sheet connected.
func (c *Config) ServiceAccountJSON() string {
	return ResolveEnvVars(c.Sheets.ServiceAccountJSON)
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# fieldledger configuration
# API keys and credentials use ${ENV_VAR} syntax to reference environment variables
# Set these in your shell: export ANTHROPIC_API_KEY=xxx GOOGLE_SHEET_ID=xxx GOOGLE_SERVICE_ACCOUNT_JSON=...

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
