package vision

import (
	"context"
	"sync/atomic"
	"time"
)

const MockName = "mock"

// MockProvider is a Provider for tests and demo deployments.
type MockProvider struct {
	// Configurable behavior
	ReplyText string
	Model     string
	Err       error
	Latency   time.Duration

	calls atomic.Int64
}

// NewMockProvider creates a mock provider with a canned empty-array reply.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		ReplyText: "[]",
		Model:     "mock-model",
	}
}

// Name returns the provider identifier.
func (m *MockProvider) Name() string {
	return MockName
}

// Calls returns how many Extract calls have been made. Tests assert on this
// to prove validation rejected a request before any provider traffic.
func (m *MockProvider) Calls() int64 {
	return m.calls.Load()
}

// Extract returns the canned reply or error.
func (m *MockProvider) Extract(ctx context.Context, req *Request) (*Reply, error) {
	m.calls.Add(1)

	if m.Latency > 0 {
		select {
		case <-time.After(m.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.Err != nil {
		return nil, m.Err
	}
	return &Reply{Text: m.ReplyText, Model: m.Model}, nil
}

// Verify interface
var _ Provider = (*MockProvider)(nil)
