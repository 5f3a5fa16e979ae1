package llm

import (
	"context"
	"sync/atomic"
)

// MockReply is what the mock provider says when no CompleteFunc is set.
const MockReply = "Thanks, I've noted that. Could you tell me a little more about what you need?"

// MockClient is a test double for Client. It also backs the "mock"
// provider used for local development without an API key.
type MockClient struct {
	ProviderName string
	CompleteFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	calls atomic.Int64
}

func (m *MockClient) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.calls.Add(1)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &CompletionResponse{Content: MockReply, Model: req.Model}, nil
}

// Calls reports how many times Complete has been invoked.
func (m *MockClient) Calls() int {
	return int(m.calls.Load())
}
