package ai

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/timeout"

	"github.com/felixgeelhaar/sdra/pkg/domain/ai"
)

// DefaultCallTimeout bounds a single model call.
const DefaultCallTimeout = 120 * time.Second

// TimeoutProvider bounds every call to inner with a deadline. It does not
// retry; a timed-out call fails like any other.
type TimeoutProvider struct {
	inner   ai.Provider
	timeout time.Duration
}

// NewTimeoutProvider wraps inner. A zero d uses DefaultCallTimeout.
func NewTimeoutProvider(inner ai.Provider, d time.Duration) *TimeoutProvider {
	if d <= 0 {
		d = DefaultCallTimeout
	}
	return &TimeoutProvider{inner: inner, timeout: d}
}

func (p *TimeoutProvider) ID() string {
	return p.inner.ID()
}

// Timeout is the per-call deadline.
func (p *TimeoutProvider) Timeout() time.Duration {
	return p.timeout
}

func (p *TimeoutProvider) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResponse, error) {
	t := timeout.New[*ai.CompletionResponse](timeout.Config{
		DefaultTimeout: p.timeout,
	})

	return t.Execute(ctx, p.timeout, func(ctx context.Context) (*ai.CompletionResponse, error) {
		return p.inner.Complete(ctx, req)
	})
}
