package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/felixgeelhaar/sdra/pkg/domain"
)

// Credential environment variables.
const (
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvGoogleKey    = "GOOGLE_API_KEY"
	EnvDeepSeekKey  = "DEEPSEEK_API_KEY"
	EnvGroqKey      = "GROQ_API_KEY"
)

// Setting overrides read from the environment.
const (
	EnvPanel            = "SDRA_PANEL"
	EnvArbitrationModel = "SDRA_ARBITRATION_MODEL"
	EnvConverterModel   = "SDRA_CONVERTER_MODEL"
	EnvMaxRounds        = "SDRA_MAX_ROUNDS"
	EnvCallTimeout      = "SDRA_CALL_TIMEOUT"
	EnvArtifactsDir     = "SDRA_ARTIFACTS_DIR"
	EnvPromptsDir       = "SDRA_PROMPTS_DIR"
	EnvNotifyURL        = "SDRA_NOTIFY_URL"
	// EnvNotifySecret signs webhook notifications. It is never read from
	// the config file.
	EnvNotifySecret = "SDRA_NOTIFY_SECRET"
)

// Credentials are provider API keys.
type Credentials struct {
	OpenAI    string
	Anthropic string
	Google    string
	DeepSeek  string
	Groq      string

	NotifySecret string
}

// Merge applies the non-empty keys of source.
func (c *Credentials) Merge(source Credentials) {
	if source.OpenAI != "" {
		c.OpenAI = source.OpenAI
	}
	if source.Anthropic != "" {
		c.Anthropic = source.Anthropic
	}
	if source.Google != "" {
		c.Google = source.Google
	}
	if source.DeepSeek != "" {
		c.DeepSeek = source.DeepSeek
	}
	if source.Groq != "" {
		c.Groq = source.Groq
	}
	if source.NotifySecret != "" {
		c.NotifySecret = source.NotifySecret
	}
}

// LoadDotEnv loads path into the process environment without overriding
// variables that are already set. A missing file is ignored.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// FromEnv reads credentials and SDRA_* overrides.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Credentials: Credentials{
			OpenAI:    strings.TrimSpace(getenv(EnvOpenAIKey)),
			Anthropic: strings.TrimSpace(getenv(EnvAnthropicKey)),
			Google:    strings.TrimSpace(getenv(EnvGoogleKey)),
			DeepSeek:  strings.TrimSpace(getenv(EnvDeepSeekKey)),
			Groq:      strings.TrimSpace(getenv(EnvGroqKey)),

			NotifySecret: strings.TrimSpace(getenv(EnvNotifySecret)),
		},
		ArbitrationModel: strings.TrimSpace(getenv(EnvArbitrationModel)),
		ConverterModel:   strings.TrimSpace(getenv(EnvConverterModel)),
		ArtifactsDir:     strings.TrimSpace(getenv(EnvArtifactsDir)),
		PromptsDir:       strings.TrimSpace(getenv(EnvPromptsDir)),
		NotifyURL:        strings.TrimSpace(getenv(EnvNotifyURL)),
	}

	if v := getenv(EnvPanel); v != "" {
		cfg.Panel = SplitList(v)
	}
	if v := strings.TrimSpace(getenv(EnvMaxRounds)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, &domain.ConfigError{Field: EnvMaxRounds, Reason: fmt.Sprintf("not an integer: %q", v)}
		}
		cfg.MaxRounds = n
	}
	if v := strings.TrimSpace(getenv(EnvCallTimeout)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, &domain.ConfigError{Field: EnvCallTimeout, Reason: fmt.Sprintf("not a duration: %q", v)}
		}
		cfg.CallTimeout = d
	}
	return cfg, nil
}

// SplitList splits a comma-separated list, dropping blanks.
func SplitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
