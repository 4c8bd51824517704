package ai

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/sdra/pkg/domain"
)

// ProviderKind selects the wire protocol used for a model.
type ProviderKind string

const (
	KindOpenAI    ProviderKind = "openai"
	KindGemini    ProviderKind = "gemini"
	KindAnthropic ProviderKind = "anthropic"
)

// MinKeyLength is the shortest credential accepted for any provider.
const MinKeyLength = 10

// ModelHandle identifies one model and how to reach it. It is immutable
// once built and safe to share between goroutines.
type ModelHandle struct {
	name    string
	apiKey  string
	baseURL string
	kind    ProviderKind
}

// NewModelHandle validates and builds a handle.
func NewModelHandle(kind ProviderKind, name, apiKey, baseURL string) (ModelHandle, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ModelHandle{}, &domain.ConfigError{Field: "model", Reason: "model name cannot be empty"}
	}
	if len(apiKey) < MinKeyLength {
		return ModelHandle{}, &domain.ConfigError{Field: "api_key", Reason: fmt.Sprintf("invalid API key for model %q", name)}
	}
	switch kind {
	case KindOpenAI, KindGemini, KindAnthropic:
	default:
		return ModelHandle{}, &domain.ConfigError{Field: "provider", Reason: fmt.Sprintf("unsupported provider kind %q", kind)}
	}
	return ModelHandle{name: name, apiKey: apiKey, baseURL: baseURL, kind: kind}, nil
}

func (h ModelHandle) Name() string       { return h.name }
func (h ModelHandle) APIKey() string     { return h.apiKey }
func (h ModelHandle) BaseURL() string    { return h.baseURL }
func (h ModelHandle) Kind() ProviderKind { return h.kind }

// ID returns "<kind>:<name>".
func (h ModelHandle) ID() string {
	return string(h.kind) + ":" + h.name
}

// ShortKey is a display-safe prefix of the credential.
func (h ModelHandle) ShortKey() string {
	return MaskKey(h.apiKey, 6)
}

// MaskKey keeps the first n characters of key followed by "...".
func MaskKey(key string, n int) string {
	if key == "" {
		return "<unset>"
	}
	if len(key) < n {
		n = len(key)
	}
	return key[:n] + "..."
}

// String never includes the credential.
func (h ModelHandle) String() string {
	return fmt.Sprintf("%s (key %s)", h.ID(), h.ShortKey())
}
