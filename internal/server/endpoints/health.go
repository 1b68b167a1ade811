package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"fieldledger/internal/api"
)

// HealthResponse reports configuration presence without revealing values.
type HealthResponse struct {
	Status            string `json:"status"`
	HasAnthropicKey   bool   `json:"hasAnthropicKey"`
	HasSheetID        bool   `json:"hasSheetId"`
	HasServiceAccount bool   `json:"hasServiceAccount"`
}

// HealthEndpoint handles GET /api/health. The probe funcs are wired by the
// server from config so the booleans track hot reloads.
type HealthEndpoint struct {
	HasAnthropicKey   func() bool
	HasSheetID        func() bool
	HasServiceAccount func() bool
}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/health", e.handler
}

func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if e.HasAnthropicKey != nil {
		resp.HasAnthropicKey = e.HasAnthropicKey()
	}
	if e.HasSheetID != nil {
		resp.HasSheetID = e.HasSheetID()
	}
	if e.HasServiceAccount != nil {
		resp.HasServiceAccount = e.HasServiceAccount()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health and configuration presence",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/api/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status:              %s\n", resp.Status)
			fmt.Printf("AI key configured:   %t\n", resp.HasAnthropicKey)
			fmt.Printf("Sheet configured:    %t\n", resp.HasSheetID)
			fmt.Printf("Identity configured: %t\n", resp.HasServiceAccount)
			return nil
		},
	}
}
