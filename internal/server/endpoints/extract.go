package endpoints

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"fieldledger/internal/api"
	"fieldledger/internal/extract"
	"fieldledger/internal/svcctx"
)

// ExtractEndpoint handles POST /api/extract.
type ExtractEndpoint struct{}

func (e *ExtractEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/extract", e.handler
}

func (e *ExtractEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req extract.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	svc := svcctx.ExtractorFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusInternalServerError, "Internal server error. Please try again.")
		return
	}

	result, err := svc.Extract(r.Context(), req)
	if err != nil {
		writeFault(w, r, err)
		return
	}
	writeSuccess(w, result)
}

func (e *ExtractEndpoint) Command(getServerURL func() string) *cobra.Command {
	var mimeType, layout string
	cmd := &cobra.Command{
		Use:   "extract <image-file>",
		Short: "Extract structured fields from a form image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}

			req := extract.Request{
				Image:    base64.StdEncoding.EncodeToString(raw),
				MimeType: mimeType,
				Layout:   extract.Layout(layout),
			}

			client := api.NewClient(getServerURL())
			var resp SuccessResponse
			if err := client.Post(cmd.Context(), "/api/extract", req, &resp); err != nil {
				return err
			}
			return api.Output(resp.Data)
		},
	}
	cmd.Flags().StringVar(&mimeType, "mime-type", "image/jpeg", "MIME type of the image")
	cmd.Flags().StringVar(&layout, "layout", "", "Extraction layout (flat or roster)")
	return cmd
}
