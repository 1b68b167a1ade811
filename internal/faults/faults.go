// Package faults defines the closed error taxonomy shared by the gateway's
// components. Inner packages return *Fault values; the HTTP layer switches
// exhaustively on Kind to pick a status code and a fixed user-facing message,
// so raw provider error text never reaches a client.
package faults

import (
	"errors"
	"fmt"
)

// Kind identifies one case of the taxonomy.
type Kind int

const (
	// KindUnknown is any error that did not come from this package.
	KindUnknown Kind = iota

	// Validation covers missing or malformed request input, rejected
	// before any external call.
	Validation
	UnsupportedMimeType
	PayloadTooLarge

	// Spreadsheet access layer.
	PermissionDenied
	SheetNotFound
	QuotaExceeded
	SheetsOperationFailed

	// Vision extraction.
	RateLimited
	VisionServiceError
	ExtractionUnparseable

	// Credential exchange with the spreadsheet provider.
	CredentialExchangeFailed

	// UpstreamTimeout is a hung or slow outbound call that hit the
	// per-call deadline.
	UpstreamTimeout
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case UnsupportedMimeType:
		return "unsupported_mime_type"
	case PayloadTooLarge:
		return "payload_too_large"
	case PermissionDenied:
		return "permission_denied"
	case SheetNotFound:
		return "sheet_not_found"
	case QuotaExceeded:
		return "quota_exceeded"
	case SheetsOperationFailed:
		return "sheets_operation_failed"
	case RateLimited:
		return "rate_limited"
	case VisionServiceError:
		return "vision_service_error"
	case ExtractionUnparseable:
		return "extraction_unparseable"
	case CredentialExchangeFailed:
		return "credential_exchange_failed"
	case UpstreamTimeout:
		return "upstream_timeout"
	default:
		return "unknown"
	}
}

// Fault is a tagged error. Message is safe for diagnostics but is still not
// shown to end users; the HTTP layer maps Kind to a fixed string instead.
type Fault struct {
	Kind    Kind
	Message string
	Cause   error
}

func (f *Fault) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Cause)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Fault) Unwrap() error { return f.Cause }

// New creates a Fault with the given kind and message.
func New(kind Kind, message string) *Fault {
	return &Fault{Kind: kind, Message: message}
}

// Newf creates a Fault with a formatted message.
func Newf(kind Kind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a Fault that wraps an underlying cause.
func Wrap(kind Kind, message string, cause error) *Fault {
	return &Fault{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the Kind of err, or KindUnknown if err is not a Fault.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Message returns the Fault message without the kind prefix or cause chain,
// or err.Error() for foreign errors. Used where validation messages are
// echoed back to the client verbatim.
func Message(err error) string {
	var f *Fault
	if errors.As(err, &f) {
		return f.Message
	}
	return err.Error()
}
