package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"

	genai "google.golang.org/genai"

	"fieldledger/internal/faults"
)

const GeminiName = "gemini"

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// GeminiClient implements Provider on the official genai SDK. Cross-cutting
// concerns (timeouts, fault mapping) stay here; the SDK only does the call.
type GeminiClient struct {
	cli   *genai.Client
	model string
}

// NewGeminiClient creates a new Gemini vision client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{cli: cli, model: cfg.Model}, nil
}

// Name returns the provider identifier.
func (g *GeminiClient) Name() string {
	return GeminiName
}

// Extract sends the image and instruction in one generateContent call,
// asking for application/json output.
func (g *GeminiClient) Extract(ctx context.Context, req *Request) (*Reply, error) {
	imageBytes, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		return nil, faults.Wrap(faults.VisionServiceError, "decoding image payload", err)
	}

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{
			Role: "user",
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: req.MimeType, Data: imageBytes}},
				{Text: req.Prompt},
			},
		}},
		cfg,
	)
	if err != nil {
		if isTimeout(err) {
			return nil, faults.Wrap(faults.UpstreamTimeout, "vision call timed out", err)
		}
		var apiErr genai.APIError
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
			return nil, faults.Wrap(faults.RateLimited, "vision provider rate limited", err)
		}
		return nil, faults.Wrap(faults.VisionServiceError, "vision request failed", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, faults.New(faults.VisionServiceError, "empty candidates in vision response")
	}

	return &Reply{
		Text:  resp.Candidates[0].Content.Parts[0].Text,
		Model: g.model,
	}, nil
}

// Verify interface
var _ Provider = (*GeminiClient)(nil)
