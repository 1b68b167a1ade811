package endpoints

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"fieldledger/internal/api"
	"fieldledger/internal/svcctx"
)

// UpdateRequestBody is the POST /api/sheets/update-request body.
type UpdateRequestBody struct {
	OriginalRowNumber json.Number `json:"originalRowNumber"`
	RequestedBy       string      `json:"requestedBy"`
	Description       string      `json:"description"`
}

// SubmitUpdateRequestEndpoint handles POST /api/sheets/update-request.
type SubmitUpdateRequestEndpoint struct{}

func (e *SubmitUpdateRequestEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sheets/update-request", e.handler
}

func (e *SubmitUpdateRequestEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.OriginalRowNumber.String() == "" || req.RequestedBy == "" || req.Description == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields: originalRowNumber, requestedBy, description")
		return
	}

	svc := svcctx.LedgerFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusInternalServerError, "Internal server error. Please try again.")
		return
	}

	requestID, err := svc.SubmitUpdateRequest(r.Context(), req.OriginalRowNumber.String(), req.RequestedBy, req.Description)
	if err != nil {
		writeFault(w, r, err)
		return
	}
	writeSuccess(w, map[string]any{"requestId": requestID})
}

func (e *SubmitUpdateRequestEndpoint) Command(getServerURL func() string) *cobra.Command {
	var requestedBy string
	cmd := &cobra.Command{
		Use:   "update-request <row-number> <description>",
		Short: "File a correction request against a ledger row",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := strconv.Atoi(args[0]); err != nil {
				return err
			}
			req := UpdateRequestBody{
				OriginalRowNumber: json.Number(args[0]),
				RequestedBy:       requestedBy,
				Description:       args[1],
			}
			client := api.NewClient(getServerURL())
			var resp SuccessResponse
			if err := client.Post(cmd.Context(), "/api/sheets/update-request", req, &resp); err != nil {
				return err
			}
			return api.Output(resp.Data)
		},
	}
	cmd.Flags().StringVar(&requestedBy, "requested-by", "", "Requester identity recorded with the request")
	cmd.MarkFlagRequired("requested-by")
	return cmd
}
