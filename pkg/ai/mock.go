package ai

import (
	"context"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/sdra/pkg/domain/ai"
)

// MockProvider is a scripted provider for tests and dry runs. When Handler
// is set it answers every call; otherwise Responses are returned in order
// and the last one repeats.
type MockProvider struct {
	Model     string
	Responses []string
	Err       error
	Handler   func(req ai.CompletionRequest) (string, error)

	mu       sync.Mutex
	requests []ai.CompletionRequest
}

func (m *MockProvider) ID() string {
	return "mock:" + m.Model
}

func (m *MockProvider) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResponse, error) {
	m.mu.Lock()
	n := len(m.requests)
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}

	var text string
	switch {
	case m.Handler != nil:
		var err error
		text, err = m.Handler(req)
		if err != nil {
			return nil, err
		}
	case len(m.Responses) > 0:
		if n >= len(m.Responses) {
			n = len(m.Responses) - 1
		}
		text = m.Responses[n]
	default:
		return nil, fmt.Errorf("mock provider %s has no scripted response", m.Model)
	}

	return &ai.CompletionResponse{Text: text, Model: m.Model}, nil
}

// Requests returns a copy of every request received so far.
func (m *MockProvider) Requests() []ai.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ai.CompletionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls is the number of requests received.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
