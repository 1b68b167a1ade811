package endpoints

import (
	"encoding/json"
	"net/http"

	"fieldledger/internal/faults"
	"fieldledger/internal/svcctx"
)

// SuccessResponse is the standard success envelope.
type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeSuccess writes data inside the success envelope.
func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Data: data})
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Success: false, Error: msg})
}

// writeFault maps an internal fault to a status code and a fixed
// user-facing message. The fault's own message reaches the client only for
// input-validation kinds where it was written for users; everything else
// gets a canned string so raw provider errors never leak.
func writeFault(w http.ResponseWriter, r *http.Request, err error) {
	kind := faults.KindOf(err)

	status := http.StatusInternalServerError
	msg := "Internal server error. Please try again."

	switch kind {
	case faults.Validation:
		status, msg = http.StatusBadRequest, faults.Message(err)
	case faults.UnsupportedMimeType:
		status, msg = http.StatusBadRequest, faults.Message(err)
	case faults.PayloadTooLarge:
		status, msg = http.StatusRequestEntityTooLarge, faults.Message(err)
	case faults.PermissionDenied:
		status = http.StatusForbidden
		msg = "Unable to write to the connected sheet. Please check the admin configuration."
	case faults.SheetNotFound:
		status = http.StatusNotFound
		msg = "The configured Google Sheet could not be found. Please verify the Sheet ID in admin settings."
	case faults.QuotaExceeded:
		status = http.StatusTooManyRequests
		msg = "Google Sheets is temporarily unavailable. Your data has been saved locally and will sync when available."
	case faults.RateLimited:
		status = http.StatusTooManyRequests
		msg = "Rate limited. Please wait a moment and try again."
	case faults.VisionServiceError:
		msg = "AI service error. Please try again."
	case faults.ExtractionUnparseable:
		msg = "Could not parse extraction results. The form may be unclear — try re-uploading a clearer photo."
	case faults.UpstreamTimeout:
		status = http.StatusGatewayTimeout
		msg = "Upstream service timed out. Please try again."
	}

	logger := svcctx.LoggerFrom(r.Context())
	logger.Error("request failed",
		"path", r.URL.Path,
		"kind", kind.String(),
		"status", status,
		"error", err,
	)

	writeError(w, status, msg)
}
