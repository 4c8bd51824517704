package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/felixgeelhaar/sdra/pkg/domain"
	"github.com/felixgeelhaar/sdra/pkg/domain/ai"
)

// Base URLs of OpenAI-compatible providers.
const (
	DeepSeekBaseURL = "https://api.deepseek.com"
	GroqBaseURL     = "https://api.groq.com/openai/v1"
)

type providerInfo struct {
	kind     ai.ProviderKind
	envKey   string
	baseURL  string
	maskLen  int
	credFunc func(Credentials) string
}

var providers = map[string]providerInfo{
	"openai": {
		kind: ai.KindOpenAI, envKey: EnvOpenAIKey, maskLen: 6,
		credFunc: func(c Credentials) string { return c.OpenAI },
	},
	"anthropic": {
		kind: ai.KindAnthropic, envKey: EnvAnthropicKey, maskLen: 6,
		credFunc: func(c Credentials) string { return c.Anthropic },
	},
	"gemini": {
		kind: ai.KindGemini, envKey: EnvGoogleKey, maskLen: 2,
		credFunc: func(c Credentials) string { return c.Google },
	},
	"deepseek": {
		kind: ai.KindOpenAI, envKey: EnvDeepSeekKey, baseURL: DeepSeekBaseURL, maskLen: 3,
		credFunc: func(c Credentials) string { return c.DeepSeek },
	},
	"groq": {
		kind: ai.KindOpenAI, envKey: EnvGroqKey, baseURL: GroqBaseURL, maskLen: 4,
		credFunc: func(c Credentials) string { return c.Groq },
	},
}

var providerAliases = map[string]string{"google": "gemini"}

// ModelSpec is a parsed "<provider>:<model>" string.
type ModelSpec struct {
	Provider string
	Model    string
}

func (s ModelSpec) String() string {
	return s.Provider + ":" + s.Model
}

// ParseModelSpec parses "<provider>:<model>". A bare model name means
// openai.
func ParseModelSpec(spec string) (ModelSpec, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return ModelSpec{}, &domain.ConfigError{Field: "model", Reason: "model name cannot be empty"}
	}

	provider, model, ok := strings.Cut(spec, ":")
	if !ok {
		provider, model = "openai", spec
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	model = strings.TrimSpace(model)
	if alias, ok := providerAliases[provider]; ok {
		provider = alias
	}

	if _, ok := providers[provider]; !ok {
		return ModelSpec{}, &domain.ConfigError{
			Field:  "model",
			Reason: fmt.Sprintf("unknown provider %q in %q (supported: %s)", provider, spec, strings.Join(ProviderNames(), ", ")),
		}
	}
	if model == "" {
		return ModelSpec{}, &domain.ConfigError{Field: "model", Reason: "model name cannot be empty"}
	}
	return ModelSpec{Provider: provider, Model: model}, nil
}

// ProviderNames lists the supported providers, sorted.
func ProviderNames() []string {
	names := make([]string, 0, len(providers))
	for n := range providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// HasCredential reports whether the provider of spec has a key.
func (c *Config) HasCredential(spec string) bool {
	ms, err := ParseModelSpec(spec)
	if err != nil {
		return false
	}
	return providers[ms.Provider].credFunc(c.Credentials) != ""
}

// Handle builds the model handle for spec.
func (c *Config) Handle(spec string) (ai.ModelHandle, error) {
	ms, err := ParseModelSpec(spec)
	if err != nil {
		return ai.ModelHandle{}, err
	}
	info := providers[ms.Provider]
	key := info.credFunc(c.Credentials)
	if key == "" {
		return ai.ModelHandle{}, &domain.ConfigError{
			Field:  info.envKey,
			Reason: fmt.Sprintf("%s is required for model %s but not set", info.envKey, ms),
		}
	}
	return ai.NewModelHandle(info.kind, ms.Model, key, info.baseURL)
}

// EffectivePanel is the configured panel, or the default panel limited to
// providers with a credential.
func (c *Config) EffectivePanel() []string {
	if len(c.Panel) > 0 {
		return append([]string(nil), c.Panel...)
	}
	var panel []string
	for _, spec := range DefaultPanel {
		if c.HasCredential(spec) {
			panel = append(panel, spec)
		}
	}
	return panel
}

// PanelHandles builds a handle for every panel model.
func (c *Config) PanelHandles() ([]ai.ModelHandle, error) {
	specs := c.EffectivePanel()
	if len(specs) == 0 {
		return nil, &domain.ConfigError{Field: "panel", Reason: "no panel model has a credential"}
	}
	handles := make([]ai.ModelHandle, 0, len(specs))
	for _, spec := range specs {
		h, err := c.Handle(spec)
		if err != nil {
			return nil, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}
