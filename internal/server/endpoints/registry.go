package endpoints

import (
	"fieldledger/internal/api"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	HasAnthropicKey   func() bool
	HasSheetID        func() bool
	HasServiceAccount func() bool
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health
		&HealthEndpoint{
			HasAnthropicKey:   cfg.HasAnthropicKey,
			HasSheetID:        cfg.HasSheetID,
			HasServiceAccount: cfg.HasServiceAccount,
		},

		// Extraction
		&ExtractEndpoint{},

		// Ledger
		&AppendEndpoint{},
		&RecordsEndpoint{},
		&SubmitUpdateRequestEndpoint{},
		&ListUpdateRequestsEndpoint{},
	}
}
