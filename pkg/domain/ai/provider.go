package ai

import (
	"context"
	"fmt"
)

// CompletionRequest is a conversation sent to a model.
type CompletionRequest struct {
	Messages Conversation
	// Temperature is optional; nil leaves the provider default.
	Temperature *float64
	MaxTokens   int
}

// CompletionResponse represents the model's answer.
type CompletionResponse struct {
	Text  string
	Usage TokenUsage
	Model string
}

// TokenUsage tracks costs.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

// Provider is the interface for all model backends.
type Provider interface {
	ID() string
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// ProviderError reports a failed call to one model. It never carries the credential.
type ProviderError struct {
	Model string
	Err   error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("model %s: %v", e.Model, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Call sends conv to p and returns the response text. Failures of any kind
// come back as *ProviderError.
func Call(ctx context.Context, p Provider, conv Conversation) (string, error) {
	return CallWith(ctx, p, CompletionRequest{Messages: conv})
}

// CallWith is Call with explicit sampling settings.
func CallWith(ctx context.Context, p Provider, req CompletionRequest) (string, error) {
	resp, err := p.Complete(ctx, req)
	if err != nil {
		return "", &ProviderError{Model: p.ID(), Err: err}
	}
	if resp == nil {
		return "", &ProviderError{Model: p.ID(), Err: fmt.Errorf("empty response")}
	}
	return resp.Text, nil
}

// Float returns a pointer to v, for CompletionRequest.Temperature.
func Float(v float64) *float64 {
	return &v
}
