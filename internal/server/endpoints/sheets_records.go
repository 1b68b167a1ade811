package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"fieldledger/internal/api"
	"fieldledger/internal/svcctx"
)

// RecordsEndpoint handles GET /api/sheets/records.
type RecordsEndpoint struct{}

func (e *RecordsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sheets/records", e.handler
}

func (e *RecordsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	svc := svcctx.LedgerFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusInternalServerError, "Internal server error. Please try again.")
		return
	}

	records, err := svc.Records(r.Context())
	if err != nil {
		writeFault(w, r, err)
		return
	}
	writeSuccess(w, records)
}

func (e *RecordsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "records",
		Short: "Read all rows of the ledger records tab",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SuccessResponse
			if err := client.Get(cmd.Context(), "/api/sheets/records", &resp); err != nil {
				return err
			}
			return api.Output(resp.Data)
		},
	}
}
