// Package config resolves sdra settings from defaults, .sdra/config.yaml,
// the environment and command-line flags, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/sdra/pkg/domain"
	"github.com/felixgeelhaar/sdra/pkg/prompts"
	"github.com/felixgeelhaar/sdra/pkg/storage"
)

const (
	// Dir is the workspace directory holding config and artifacts.
	Dir = ".sdra"
	// File is the config file name inside Dir.
	File = "config.yaml"
)

// Defaults.
const (
	DefaultArbitrationModel = "openai:gpt-4o"
	DefaultConverterModel   = "openai:gpt-4o-mini"
	DefaultMaxRounds        = 2
	DefaultCallTimeout      = 120 * time.Second
)

// DefaultPanel is used when no panel is configured. Entries without a
// credential are skipped.
var DefaultPanel = []string{
	"openai:gpt-4o-mini",
	"anthropic:claude-3-5-sonnet-latest",
	"gemini:gemini-1.5-flash",
}

// Config is the effective configuration of one run.
type Config struct {
	Panel            []string      `yaml:"panel,omitempty"`
	ArbitrationModel string        `yaml:"arbitration_model,omitempty"`
	ConverterModel   string        `yaml:"converter_model,omitempty"`
	MaxRounds        int           `yaml:"max_rounds,omitempty"`
	CallTimeout      time.Duration `yaml:"call_timeout,omitempty"`
	ArtifactsDir     string        `yaml:"artifacts_dir,omitempty"`
	// PromptsDir replaces the embedded prompts when set.
	PromptsDir    string `yaml:"prompts_dir,omitempty"`
	PromptVersion string `yaml:"prompt_version,omitempty"`
	WriteMMD      *bool  `yaml:"write_mmd,omitempty"`
	// NotifyURL receives a JSON summary after each completed review.
	NotifyURL string `yaml:"notify_url,omitempty"`

	// Credentials only come from the environment.
	Credentials Credentials `yaml:"-"`
}

// Default returns the built-in settings.
func Default() Config {
	writeMMD := true
	return Config{
		ArbitrationModel: DefaultArbitrationModel,
		ConverterModel:   DefaultConverterModel,
		MaxRounds:        DefaultMaxRounds,
		CallTimeout:      DefaultCallTimeout,
		ArtifactsDir:     storage.DefaultArtifactsDir,
		PromptVersion:    prompts.DefaultVersion,
		WriteMMD:         &writeMMD,
	}
}

// Merge applies the set values of source over c.
func (c *Config) Merge(source *Config) {
	if source == nil {
		return
	}
	if len(source.Panel) > 0 {
		c.Panel = append([]string(nil), source.Panel...)
	}
	if source.ArbitrationModel != "" {
		c.ArbitrationModel = source.ArbitrationModel
	}
	if source.ConverterModel != "" {
		c.ConverterModel = source.ConverterModel
	}
	if source.MaxRounds > 0 {
		c.MaxRounds = source.MaxRounds
	}
	if source.CallTimeout > 0 {
		c.CallTimeout = source.CallTimeout
	}
	if source.ArtifactsDir != "" {
		c.ArtifactsDir = source.ArtifactsDir
	}
	if source.PromptsDir != "" {
		c.PromptsDir = source.PromptsDir
	}
	if source.PromptVersion != "" {
		c.PromptVersion = source.PromptVersion
	}
	if source.NotifyURL != "" {
		c.NotifyURL = source.NotifyURL
	}
	if source.WriteMMD != nil {
		v := *source.WriteMMD
		c.WriteMMD = &v
	}
	c.Credentials.Merge(source.Credentials)
}

// WritesMMD reports whether converted diagrams are saved as .mmd files.
func (c *Config) WritesMMD() bool {
	return c.WriteMMD == nil || *c.WriteMMD
}

// Path returns the config file location for a workspace root.
func Path(root string) string {
	return filepath.Join(root, Dir, File)
}

// LoadFile reads a config file. A missing file yields nil and no error.
func LoadFile(path string) (*Config, error) {
	// #nosec G304 -- path is the workspace config file or an explicit --config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &domain.ConfigError{Field: path, Reason: fmt.Sprintf("failed to unmarshal config: %v", err)}
	}
	return &cfg, nil
}

// Save writes cfg as YAML, creating the parent directory.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// G301: Use 0700 for directories
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// Options selects the sources Resolve reads.
type Options struct {
	// Workspace is the root holding .sdra/ and .env. Defaults to ".".
	Workspace string
	// ConfigPath overrides the config file location.
	ConfigPath string
	// Flags holds command-line values; only set fields apply.
	Flags *Config
	// Getenv reads the environment. Defaults to os.Getenv.
	Getenv func(string) string
	// SkipDotEnv disables loading <workspace>/.env.
	SkipDotEnv bool
}

// Resolve layers defaults, the config file, the environment and flags.
// Relative artifact and prompt directories are anchored at the workspace.
func Resolve(opts Options) (*Config, error) {
	root := opts.Workspace
	if root == "" {
		root = "."
	}
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	if !opts.SkipDotEnv {
		if err := LoadDotEnv(filepath.Join(root, ".env")); err != nil {
			return nil, err
		}
	}

	cfg := Default()

	path := opts.ConfigPath
	if path == "" {
		path = Path(root)
	}
	fileCfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.Merge(fileCfg)

	envCfg, err := FromEnv(getenv)
	if err != nil {
		return nil, err
	}
	cfg.Merge(envCfg)
	cfg.Merge(opts.Flags)

	if !filepath.IsAbs(cfg.ArtifactsDir) {
		cfg.ArtifactsDir = filepath.Join(root, cfg.ArtifactsDir)
	}
	if cfg.PromptsDir != "" && !filepath.IsAbs(cfg.PromptsDir) {
		cfg.PromptsDir = filepath.Join(root, cfg.PromptsDir)
	}
	return &cfg, nil
}

// Validate checks the settings a review needs.
func (c *Config) Validate() error {
	if c.Credentials.OpenAI == "" {
		return &domain.ConfigError{Reason: "OPENAI_API_KEY is required but not set."}
	}
	if c.MaxRounds < 1 {
		return &domain.ConfigError{Field: "max_rounds", Reason: "must be at least 1"}
	}
	if c.CallTimeout <= 0 {
		return &domain.ConfigError{Field: "call_timeout", Reason: "must be positive"}
	}
	for _, spec := range append([]string{c.ArbitrationModel, c.ConverterModel}, c.Panel...) {
		if _, err := ParseModelSpec(spec); err != nil {
			return err
		}
	}
	return nil
}
