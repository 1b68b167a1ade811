package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if len(cfg.VisionProviders) == 0 {
		t.Error("expected default vision providers")
	}
	if cfg.VisionProviders["anthropic"].APIKey != "${ANTHROPIC_API_KEY}" {
		t.Error("expected anthropic API key placeholder")
	}
	if cfg.Defaults.VisionProvider != "anthropic" {
		t.Errorf("default vision provider = %q, want anthropic", cfg.Defaults.VisionProvider)
	}
	if cfg.Sheets.RecordsTab != "Records" {
		t.Errorf("records tab = %q, want Records", cfg.Sheets.RecordsTab)
	}
	if len(cfg.Extract.Fields) == 0 {
		t.Error("expected a default field schema")
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		os.Setenv("TEST_API_KEY", "secret123")
		defer os.Unsetenv("TEST_API_KEY")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestToVisionRegistryConfig(t *testing.T) {
	os.Setenv("TEST_VISION_KEY", "vk-123")
	defer os.Unsetenv("TEST_VISION_KEY")

	cfg := &Config{
		VisionProviders: map[string]VisionProviderCfg{
			"anthropic": {Type: "anthropic", APIKey: "${TEST_VISION_KEY}", Enabled: true},
			"literal":   {Type: "mock", APIKey: "direct-key", Enabled: true},
		},
	}

	reg := cfg.ToVisionRegistryConfig()
	if reg.Providers["anthropic"].APIKey != "vk-123" {
		t.Errorf("expected resolved key, got %s", reg.Providers["anthropic"].APIKey)
	}
	if reg.Providers["literal"].APIKey != "direct-key" {
		t.Errorf("expected direct-key, got %s", reg.Providers["literal"].APIKey)
	}
}

func TestToLedgerConfig(t *testing.T) {
	cfg := DefaultConfig()
	lc := cfg.ToLedgerConfig()

	if lc.RecordsTab != "Records" || lc.UploadLogTab != "Upload Log" || lc.UpdateRequestsTab != "Update Requests" {
		t.Errorf("tabs = %q, %q, %q", lc.RecordsTab, lc.UploadLogTab, lc.UpdateRequestsTab)
	}
	if len(lc.FieldOrder) != len(cfg.Extract.Fields) {
		t.Errorf("FieldOrder len = %d, want %d", len(lc.FieldOrder), len(cfg.Extract.Fields))
	}
	if lc.RowOrder[0] != "worker_name" {
		t.Errorf("RowOrder[0] = %q, want worker_name", lc.RowOrder[0])
	}
}

func TestToConfidenceDefaults(t *testing.T) {
	cfg := &Config{}
	got := cfg.ToConfidenceDefaults()
	if got.Header != 0.9 || got.Worker != 0.85 || got.Optional != 0.7 {
		t.Errorf("zero config defaults = %+v", got)
	}

	cfg.Extract.Confidence = ConfidenceCfg{Header: 0.5}
	got = cfg.ToConfidenceDefaults()
	if got.Header != 0.5 || got.Worker != 0.85 {
		t.Errorf("partial override = %+v", got)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")

		configContent := `
sheets:
  records_tab: "Custom Records"
`
		if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Sheets.RecordsTab != "Custom Records" {
			t.Errorf("expected Custom Records, got %s", cfg.Sheets.RecordsTab)
		}
		// Untouched sections keep defaults.
		if cfg.Defaults.VisionProvider != "anthropic" {
			t.Errorf("expected default provider to survive, got %s", cfg.Defaults.VisionProvider)
		}
	})
}

func TestManager_OnChange_Multiple(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configFile, []byte("server:\n  port: 8787\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_WatchConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
sheets:
  records_tab: "Initial"
`
	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	cfg := mgr.Get()
	if cfg.Sheets.RecordsTab != "Initial" {
		t.Errorf("initial value mismatch: got %s", cfg.Sheets.RecordsTab)
	}

	var callbackCount atomic.Int32
	var lastValue atomic.Value

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(cfg.Sheets.RecordsTab)
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	newContent := `
sheets:
  records_tab: "Updated"
`
	if err := os.WriteFile(configFile, []byte(newContent), 0644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	// Wait for the watcher to detect the change (fsnotify is async)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if callbackCount.Load() > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Error("callback was not invoked after config file change")
	}

	newCfg := mgr.Get()
	if newCfg.Sheets.RecordsTab != "Updated" {
		t.Errorf("config not updated: got %s", newCfg.Sheets.RecordsTab)
	}
	if v := lastValue.Load(); v != "Updated" {
		t.Errorf("callback received wrong value: got %v", v)
	}
}
