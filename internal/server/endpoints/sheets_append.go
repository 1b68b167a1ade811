package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"fieldledger/internal/api"
	"fieldledger/internal/ledger"
	"fieldledger/internal/svcctx"
)

// AppendRequest is the POST /api/sheets/append body. Flat submissions carry
// data; roster submissions carry headerData plus rows.
type AppendRequest struct {
	Data        ledger.FieldValues   `json:"data,omitempty"`
	HeaderData  ledger.FieldValues   `json:"headerData,omitempty"`
	Rows        []ledger.FieldValues `json:"rows,omitempty"`
	SubmittedBy string               `json:"submittedBy"`
	FileName    string               `json:"fileName,omitempty"`
	UploadID    string               `json:"uploadId,omitempty"`
}

// AppendResponse reports where the record landed.
type AppendResponse struct {
	RowNumber *int   `json:"rowNumber"`
	RowsAdded int    `json:"rowsAdded"`
	SheetURL  string `json:"sheetUrl"`
}

// AppendEndpoint handles POST /api/sheets/append.
type AppendEndpoint struct{}

func (e *AppendEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sheets/append", e.handler
}

func (e *AppendEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req AppendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if (len(req.Data) == 0 && len(req.Rows) == 0) || req.SubmittedBy == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields: data, submittedBy")
		return
	}

	svc := svcctx.LedgerFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusInternalServerError, "Internal server error. Please try again.")
		return
	}

	fields := req.Data
	if len(req.HeaderData) > 0 {
		fields = req.HeaderData
	}

	result, err := svc.Append(r.Context(), &ledger.AppendRecord{
		Fields:      fields,
		Rows:        req.Rows,
		SubmittedBy: req.SubmittedBy,
		FileName:    req.FileName,
		UploadID:    req.UploadID,
	})
	if err != nil {
		writeFault(w, r, err)
		return
	}

	writeSuccess(w, AppendResponse{
		RowNumber: result.RowNumber,
		RowsAdded: result.RowsAdded,
		SheetURL:  result.SheetURL,
	})
}

func (e *AppendEndpoint) Command(getServerURL func() string) *cobra.Command {
	var submittedBy, fileName string
	cmd := &cobra.Command{
		Use:   "append <field=value> [field=value...]",
		Short: "Append an approved record to the ledger",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data := ledger.FieldValues{}
			for _, arg := range args {
				k, v, ok := splitKeyValue(arg)
				if !ok {
					return cmd.Usage()
				}
				data[k] = v
			}

			req := AppendRequest{Data: data, SubmittedBy: submittedBy, FileName: fileName}
			client := api.NewClient(getServerURL())
			var resp SuccessResponse
			if err := client.Post(cmd.Context(), "/api/sheets/append", req, &resp); err != nil {
				return err
			}
			return api.Output(resp.Data)
		},
	}
	cmd.Flags().StringVar(&submittedBy, "submitted-by", "", "Submitter identity recorded with the row")
	cmd.Flags().StringVar(&fileName, "file-name", "", "Original upload file name for the log")
	cmd.MarkFlagRequired("submitted-by")
	return cmd
}

func splitKeyValue(arg string) (string, string, bool) {
	for i := 0; i < len(arg); i++ {
		if arg[i] == '=' {
			return arg[:i], arg[i+1:], true
		}
	}
	return "", "", false
}
