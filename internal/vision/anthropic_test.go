package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fieldledger/internal/faults"
)

func newTestAnthropic(t *testing.T, handler http.HandlerFunc) *AnthropicClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAnthropicClient(AnthropicConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
	})
}

func visionRequest() *Request {
	return &Request{
		RequestID:   "req-1",
		System:      "system prompt",
		Prompt:      "extract the fields",
		ImageBase64: "aGVsbG8=",
		MimeType:    "image/jpeg",
	}
}

func TestAnthropicExtract(t *testing.T) {
	var gotBody anthropicRequest
	var gotKey, gotVersion string
	client := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Write([]byte(`{"id":"msg_1","model":"claude-sonnet-4-20250514","content":[{"type":"text","text":"[]"}]}`))
	})

	reply, err := client.Extract(context.Background(), visionRequest())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if reply.Text != "[]" {
		t.Errorf("Text = %q, want []", reply.Text)
	}
	if reply.Model != "claude-sonnet-4-20250514" {
		t.Errorf("Model = %q", reply.Model)
	}
	if gotKey != "test-key" {
		t.Errorf("x-api-key = %q", gotKey)
	}
	if gotVersion != "2023-06-01" {
		t.Errorf("anthropic-version = %q", gotVersion)
	}
	if gotBody.MaxTokens != 1024 {
		t.Errorf("max_tokens = %d, want 1024", gotBody.MaxTokens)
	}
	if gotBody.System != "system prompt" {
		t.Errorf("system = %q", gotBody.System)
	}
	content := gotBody.Messages[0].Content
	if len(content) != 2 || content[0].Type != "image" || content[1].Type != "text" {
		t.Errorf("content blocks = %+v, want image then text", content)
	}
	if content[0].Source == nil || content[0].Source.MediaType != "image/jpeg" {
		t.Errorf("image source = %+v", content[0].Source)
	}
}

func TestAnthropicRateLimited(t *testing.T) {
	client := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := client.Extract(context.Background(), visionRequest())
	if faults.KindOf(err) != faults.RateLimited {
		t.Errorf("KindOf() = %v, want RateLimited", faults.KindOf(err))
	}
}

func TestAnthropicServerError(t *testing.T) {
	client := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"type":"overloaded_error"}}`))
	})
	_, err := client.Extract(context.Background(), visionRequest())
	if faults.KindOf(err) != faults.VisionServiceError {
		t.Errorf("KindOf() = %v, want VisionServiceError", faults.KindOf(err))
	}
}

func TestAnthropicTimeout(t *testing.T) {
	client := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.Write([]byte(`{"content":[]}`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err := client.Extract(ctx, visionRequest())
	if faults.KindOf(err) != faults.UpstreamTimeout {
		t.Errorf("KindOf() = %v, want UpstreamTimeout", faults.KindOf(err))
	}
}

func TestRegistryReload(t *testing.T) {
	r := NewRegistry()
	r.Reload(RegistryConfig{Providers: map[string]ProviderConfig{
		"anthropic": {Type: AnthropicName, APIKey: "k", Enabled: true},
		"mock":      {Type: MockName, Enabled: true},
		"disabled":  {Type: MockName, Enabled: false},
		"bogus":     {Type: "nope", Enabled: true},
	}})

	if _, err := r.Get("anthropic"); err != nil {
		t.Errorf("Get(anthropic) error = %v", err)
	}
	if _, err := r.Get("mock"); err != nil {
		t.Errorf("Get(mock) error = %v", err)
	}
	if _, err := r.Get("disabled"); err == nil {
		t.Error("Get(disabled) error = nil, want not found")
	}
	if _, err := r.Get("bogus"); err == nil {
		t.Error("Get(bogus) error = nil, want not found")
	}
	if got := len(r.List()); got != 2 {
		t.Errorf("len(List()) = %d, want 2", got)
	}
}

func TestMockProviderCounts(t *testing.T) {
	m := NewMockProvider()
	if _, err := m.Extract(context.Background(), visionRequest()); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if m.Calls() != 1 {
		t.Errorf("Calls() = %d, want 1", m.Calls())
	}
}
