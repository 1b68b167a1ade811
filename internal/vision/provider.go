// Package vision abstracts the image-understanding providers the extraction
// gateway can proxy to. Providers do exactly one thing: send a prompt plus an
// inline base64 image and hand back the model's raw text reply. Parsing that
// reply is the extract package's job, and retry policy belongs to the caller.
package vision

import "context"

// Request is a single multi-part vision call: one instruction, one image.
type Request struct {
	// RequestID tracks the call through logs.
	RequestID string

	System string
	Prompt string

	// ImageBase64 is the bare base64 payload, no data-URL prefix.
	ImageBase64 string
	MimeType    string

	MaxTokens int
}

// Reply is the provider's raw answer.
type Reply struct {
	// Text is the model's reply body, expected to contain one JSON value.
	Text string
	// Model is the provider-reported model identifier.
	Model string
}

// Provider sends vision requests to one backend.
type Provider interface {
	Name() string
	Extract(ctx context.Context, req *Request) (*Reply, error)
}
