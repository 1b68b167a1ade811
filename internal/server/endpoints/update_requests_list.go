package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"fieldledger/internal/api"
	"fieldledger/internal/svcctx"
)

// ListUpdateRequestsEndpoint handles GET /api/sheets/update-requests.
type ListUpdateRequestsEndpoint struct{}

func (e *ListUpdateRequestsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sheets/update-requests", e.handler
}

func (e *ListUpdateRequestsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	svc := svcctx.LedgerFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusInternalServerError, "Internal server error. Please try again.")
		return
	}

	requests, err := svc.ListUpdateRequests(r.Context())
	if err != nil {
		writeFault(w, r, err)
		return
	}
	writeSuccess(w, map[string]any{"requests": requests})
}

func (e *ListUpdateRequestsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "update-requests",
		Short: "List correction requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SuccessResponse
			if err := client.Get(cmd.Context(), "/api/sheets/update-requests", &resp); err != nil {
				return err
			}
			return api.Output(resp.Data)
		},
	}
}
