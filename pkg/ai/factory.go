package ai

import (
	"fmt"
	"net/http"
	"time"

	"github.com/felixgeelhaar/sdra/pkg/domain"
	"github.com/felixgeelhaar/sdra/pkg/domain/ai"
)

// Options tune providers built by NewProvider.
type Options struct {
	HTTPClient *http.Client
	// Timeout is the per-call deadline; zero uses DefaultCallTimeout.
	Timeout time.Duration
}

// NewProvider selects the protocol variant for h once, at construction,
// and bounds it with a per-call timeout.
func NewProvider(h ai.ModelHandle, opts Options) (ai.Provider, error) {
	var p ai.Provider
	switch h.Kind() {
	case ai.KindOpenAI:
		p = NewOpenAIProvider(h, opts.HTTPClient)
	case ai.KindGemini:
		p = NewGeminiProvider(h, opts.HTTPClient)
	case ai.KindAnthropic:
		p = NewAnthropicProvider(h, opts.HTTPClient)
	default:
		return nil, &domain.ConfigError{Field: "provider", Reason: fmt.Sprintf("unsupported AI provider: %s", h.Kind())}
	}
	return NewTimeoutProvider(p, opts.Timeout), nil
}
