package config

import (
	"fieldledger/internal/extract"
	"fieldledger/internal/ledger"
)

// Config holds fieldledger configuration.
type Config struct {
	Server          ServerCfg                  `mapstructure:"server" yaml:"server"`
	VisionProviders map[string]VisionProviderCfg `mapstructure:"vision_providers" yaml:"vision_providers"`
	Defaults        DefaultsCfg                `mapstructure:"defaults" yaml:"defaults"`
	Sheets          SheetsCfg                  `mapstructure:"sheets" yaml:"sheets"`
	Extract         ExtractCfg                 `mapstructure:"extract" yaml:"extract"`
}

// ServerCfg configures the HTTP listener.
type ServerCfg struct {
	Host        string `mapstructure:"host" yaml:"host"`
	Port        int    `mapstructure:"port" yaml:"port"`
	AllowOrigin string `mapstructure:"allow_origin" yaml:"allow_origin"`
}

// VisionProviderCfg configures a vision provider.
type VisionProviderCfg struct {
	Type           string `mapstructure:"type" yaml:"type"`   // "anthropic", "gemini", "mock"
	Model          string `mapstructure:"model" yaml:"model"` // Model name
	APIKey         string `mapstructure:"api_key" yaml:"api_key"` // API key (supports ${ENV_VAR} syntax)
	MaxTokens      int    `mapstructure:"max_tokens" yaml:"max_tokens"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies default provider selection.
type DefaultsCfg struct {
	VisionProvider string `mapstructure:"vision_provider" yaml:"vision_provider"`
}

// SheetsCfg holds the connected spreadsheet and tab names.
type SheetsCfg struct {
	SheetID            string `mapstructure:"sheet_id" yaml:"sheet_id"` // supports ${ENV_VAR} syntax
	ServiceAccountJSON string `mapstructure:"service_account_json" yaml:"service_account_json"`
	RecordsTab         string `mapstructure:"records_tab" yaml:"records_tab"`
	UploadLogTab       string `mapstructure:"upload_log_tab" yaml:"upload_log_tab"`
	UpdateRequestsTab  string `mapstructure:"update_requests_tab" yaml:"update_requests_tab"`
}

// ExtractCfg configures extraction behavior.
type ExtractCfg struct {
	Fields     []FieldCfg    `mapstructure:"fields" yaml:"fields"`
	Roster     RosterCfg     `mapstructure:"roster" yaml:"roster"`
	Confidence ConfidenceCfg `mapstructure:"confidence" yaml:"confidence"`
}

// FieldCfg is one field of the extraction schema.
type FieldCfg struct {
	Name     string `mapstructure:"name" yaml:"name"`
	Label    string `mapstructure:"label" yaml:"label"`
	Type     string `mapstructure:"type" yaml:"type"` // "text", "number", "date"
	Required bool   `mapstructure:"required" yaml:"required"`
}

// RosterCfg is the default roster-layout schema.
type RosterCfg struct {
	HeaderFields []FieldCfg `mapstructure:"header_fields" yaml:"header_fields"`
	RowFields    []FieldCfg `mapstructure:"row_fields" yaml:"row_fields"`
}

// ConfidenceCfg overrides the per-category confidence fallbacks used when
// the model omits or misreports a confidence score.
type ConfidenceCfg struct {
	Header   float64 `mapstructure:"header" yaml:"header"`
	Worker   float64 `mapstructure:"worker" yaml:"worker"`
	Optional float64 `mapstructure:"optional" yaml:"optional"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	defaults := extract.DefaultConfidence()
	return &Config{
		Server: ServerCfg{
			Host:        "0.0.0.0",
			Port:        8787,
			AllowOrigin: "*",
		},
		VisionProviders: map[string]VisionProviderCfg{
			"anthropic": {
				Type:           "anthropic",
				Model:          "claude-sonnet-4-20250514",
				APIKey:         "${ANTHROPIC_API_KEY}",
				MaxTokens:      1024,
				TimeoutSeconds: 30,
				Enabled:        true,
			},
			"gemini": {
				Type:    "gemini",
				Model:   "gemini-2.0-flash",
				APIKey:  "${GEMINI_API_KEY}",
				Enabled: false,
			},
			"mock": {
				Type:    "mock",
				Enabled: false,
			},
		},
		Defaults: DefaultsCfg{
			VisionProvider: "anthropic",
		},
		Sheets: SheetsCfg{
			SheetID:            "${GOOGLE_SHEET_ID}",
			ServiceAccountJSON: "${GOOGLE_SERVICE_ACCOUNT_JSON}",
			RecordsTab:         "Records",
			UploadLogTab:       "Upload Log",
			UpdateRequestsTab:  "Update Requests",
		},
		Extract: ExtractCfg{
			Fields: []FieldCfg{
				{Name: "worker_name", Label: "Worker Name", Type: "text", Required: true},
				{Name: "worker_id", Label: "Worker ID", Type: "text", Required: true},
				{Name: "foreman", Label: "Foreman", Type: "text", Required: true},
				{Name: "entry_date", Label: "Date", Type: "date", Required: true},
			},
			Roster: RosterCfg{
				HeaderFields: []FieldCfg{
					{Name: "foreman", Label: "Foreman", Type: "text", Required: true},
					{Name: "entry_date", Label: "Date", Type: "date", Required: true},
				},
				RowFields: []FieldCfg{
					{Name: "worker_name", Label: "Worker Name", Type: "text", Required: true},
					{Name: "worker_id", Label: "Worker ID", Type: "text", Required: true},
					{Name: "hours", Label: "Hours", Type: "number", Required: true},
				},
			},
			Confidence: ConfidenceCfg{
				Header:   defaults.Header,
				Worker:   defaults.Worker,
				Optional: defaults.Optional,
			},
		},
	}
}

// GetVisionProvider returns a vision provider config by name.
func (c *Config) GetVisionProvider(name string) (VisionProviderCfg, bool) {
	cfg, ok := c.VisionProviders[name]
	return cfg, ok
}

// EnabledVisionProviders returns all enabled vision providers.
func (c *Config) EnabledVisionProviders() map[string]VisionProviderCfg {
	result := make(map[string]VisionProviderCfg)
	for name, cfg := range c.VisionProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

func toFieldDefinitions(fields []FieldCfg) []extract.FieldDefinition {
	defs := make([]extract.FieldDefinition, 0, len(fields))
	for _, f := range fields {
		defs = append(defs, extract.FieldDefinition{
			Name:     f.Name,
			Label:    f.Label,
			Type:     extract.FieldType(f.Type),
			Required: f.Required,
		})
	}
	return defs
}

// ToFieldDefinitions converts the configured flat schema.
func (c *Config) ToFieldDefinitions() []extract.FieldDefinition {
	return toFieldDefinitions(c.Extract.Fields)
}

// ToConfidenceDefaults converts the configured confidence fallbacks, filling
// zero values from the built-in defaults.
func (c *Config) ToConfidenceDefaults() extract.ConfidenceDefaults {
	out := extract.DefaultConfidence()
	if c.Extract.Confidence.Header > 0 {
		out.Header = c.Extract.Confidence.Header
	}
	if c.Extract.Confidence.Worker > 0 {
		out.Worker = c.Extract.Confidence.Worker
	}
	if c.Extract.Confidence.Optional > 0 {
		out.Optional = c.Extract.Confidence.Optional
	}
	return out
}

func fieldNames(fields []FieldCfg) []string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}
	return names
}

// ToLedgerConfig converts the sheets section plus the field schema into the
// ledger's tab and column-order configuration.
func (c *Config) ToLedgerConfig() ledger.Config {
	return ledger.Config{
		RecordsTab:        c.Sheets.RecordsTab,
		UploadLogTab:      c.Sheets.UploadLogTab,
		UpdateRequestsTab: c.Sheets.UpdateRequestsTab,
		FieldOrder:        fieldNames(c.Extract.Fields),
		HeaderOrder:       fieldNames(c.Extract.Roster.HeaderFields),
		RowOrder:          fieldNames(c.Extract.Roster.RowFields),
	}
}
