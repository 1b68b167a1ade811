package extract

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"fieldledger/internal/faults"
	"fieldledger/internal/vision"
)

// MaxImageBytes caps the decoded image size. The check runs against the
// base64 payload length so a client-reported size is never trusted.
const MaxImageBytes = 10 * 1024 * 1024

// AllowedMimeTypes is the closed set of image types the gateway accepts.
var AllowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Service turns one submitted image plus a field schema into a Result.
type Service struct {
	providers       *vision.Registry
	defaultProvider func() string
	fallbackFields  func() []FieldDefinition
	confidence      func() ConfidenceDefaults
	logger          *slog.Logger
}

// ServiceConfig wires a Service. The getters are read per request so config
// hot-reloads take effect without restarting.
type ServiceConfig struct {
	Providers       *vision.Registry
	DefaultProvider func() string
	FallbackFields  func() []FieldDefinition
	Confidence      func() ConfidenceDefaults
	Logger          *slog.Logger
}

// NewService creates the extraction service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Confidence == nil {
		cfg.Confidence = func() ConfidenceDefaults { return DefaultConfidence() }
	}
	if cfg.FallbackFields == nil {
		cfg.FallbackFields = func() []FieldDefinition { return nil }
	}
	return &Service{
		providers:       cfg.Providers,
		defaultProvider: cfg.DefaultProvider,
		fallbackFields:  cfg.FallbackFields,
		confidence:      cfg.Confidence,
		logger:          cfg.Logger,
	}
}

// Extract validates the request, proxies the image to the configured vision
// provider, and parses the reply into a Result. All validation happens
// before any provider traffic.
func (s *Service) Extract(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	payload, layout, err := s.validate(&req)
	if err != nil {
		return nil, err
	}

	var prompt string
	switch layout {
	case LayoutRoster:
		prompt = BuildRosterPrompt(req.HeaderFields, req.RowFields)
	default:
		prompt = BuildFlatPrompt(req.FieldDefinitions)
	}

	provider, err := s.providers.Get(s.defaultProvider())
	if err != nil {
		return nil, faults.Wrap(faults.VisionServiceError, "no vision provider available", err)
	}

	requestID := uuid.New().String()
	s.logger.Info("extraction request",
		"request_id", requestID,
		"provider", provider.Name(),
		"layout", string(layout),
		"image_bytes", base64DecodedLen(payload),
	)

	reply, err := provider.Extract(ctx, &vision.Request{
		RequestID:   requestID,
		System:      SystemPrompt,
		Prompt:      prompt,
		ImageBase64: payload,
		MimeType:    req.MimeType,
	})
	if err != nil {
		return nil, err
	}

	raw, err := parseModelJSON(reply.Text, layout != LayoutRoster)
	if err != nil {
		s.logger.Warn("unparseable model reply", "request_id", requestID, "provider", provider.Name())
		return nil, err
	}

	defaults := s.confidence()
	result := &Result{
		ProcessingTime: time.Since(start).Milliseconds(),
		Model:          reply.Model,
	}

	switch layout {
	case LayoutRoster:
		headerFields, rows, err := decodeRoster(raw, req.HeaderFields, req.RowFields, defaults)
		if err != nil {
			return nil, err
		}
		total := len(rows)
		result.HeaderFields = headerFields
		result.Rows = rows
		result.TotalWorkers = &total
	default:
		fields, err := decodeFlat(raw, req.FieldDefinitions, defaults)
		if err != nil {
			return nil, err
		}
		result.Fields = fields
	}

	return result, nil
}

// validate enforces the input contract and returns the cleaned base64
// payload plus the effective layout.
func (s *Service) validate(req *Request) (string, Layout, error) {
	if strings.TrimSpace(req.Image) == "" {
		return "", "", faults.New(faults.Validation, "missing required fields: image, mimeType, or fieldDefinitions")
	}
	if req.MimeType == "" {
		return "", "", faults.New(faults.Validation, "missing required fields: image, mimeType, or fieldDefinitions")
	}
	if !AllowedMimeTypes[req.MimeType] {
		return "", "", faults.Newf(faults.UnsupportedMimeType,
			"Unsupported image type: %s. Must be JPEG, PNG, GIF, or WebP.", req.MimeType)
	}

	layout := req.Layout
	if layout == "" {
		layout = LayoutFlat
	}

	switch layout {
	case LayoutRoster:
		if len(req.HeaderFields) == 0 || len(req.RowFields) == 0 {
			return "", "", faults.New(faults.Validation, "roster layout requires headerFields and rowFields")
		}
		for _, f := range append(append([]FieldDefinition{}, req.HeaderFields...), req.RowFields...) {
			if err := f.Validate(); err != nil {
				return "", "", faults.Wrap(faults.Validation, "invalid field definition", err)
			}
		}
	case LayoutFlat:
		if len(req.FieldDefinitions) == 0 {
			req.FieldDefinitions = s.fallbackFields()
		}
		if len(req.FieldDefinitions) == 0 {
			return "", "", faults.New(faults.Validation, "missing required fields: image, mimeType, or fieldDefinitions")
		}
		for _, f := range req.FieldDefinitions {
			if err := f.Validate(); err != nil {
				return "", "", faults.Wrap(faults.Validation, "invalid field definition", err)
			}
		}
	default:
		return "", "", faults.Newf(faults.Validation, "unknown layout: %s", layout)
	}

	payload := stripDataURL(req.Image)
	if base64DecodedLen(payload) > MaxImageBytes {
		return "", "", faults.New(faults.PayloadTooLarge,
			"Image is too large. Please upload an image smaller than 10MB.")
	}

	return payload, layout, nil
}

// stripDataURL drops a "data:image/...;base64," prefix if present.
func stripDataURL(image string) string {
	if i := strings.IndexByte(image, ','); i >= 0 && strings.HasPrefix(image, "data:") {
		return image[i+1:]
	}
	return image
}

// base64DecodedLen estimates decoded size from payload length via the
// standard 3/4 ratio.
func base64DecodedLen(payload string) int {
	return len(payload) * 3 / 4
}
