package wiring

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/felixgeelhaar/sdra/internal/infrastructure/config"
	"github.com/felixgeelhaar/sdra/internal/infrastructure/webhook"
	"github.com/felixgeelhaar/sdra/pkg/application"
	"github.com/felixgeelhaar/sdra/pkg/document"
	domainai "github.com/felixgeelhaar/sdra/pkg/domain/ai"
	"github.com/felixgeelhaar/sdra/pkg/domain/review"
	"github.com/felixgeelhaar/sdra/pkg/observability"
)

// Options selects how services are assembled.
type Options struct {
	Root        string
	ConfigPath  string
	Flags       *config.Config
	DryRun      bool
	NoArtifacts bool
	// NoConverter leaves diagram placeholders instead of calling a model.
	NoConverter bool
	Observer    observability.Observer
	Logger      *slog.Logger
	HTTPClient  *http.Client
	// Getenv overrides os.Getenv, for tests.
	Getenv     func(string) string
	SkipDotEnv bool
}

// AppServices exposes the review service wired to a workspace.
type AppServices struct {
	Workspace *Workspace
	Review    *application.ReviewService
	Parser    *document.Parser
	Panel     []domainai.Provider
	Arbiter   domainai.Provider
	// Notifier is nil unless notify_url is set.
	Notifier *webhook.Notifier

	noArtifacts bool
}

// NotifyCompleted posts the review summary when a webhook is configured.
func (s *AppServices) NotifyCompleted(ctx context.Context, session *review.Session) error {
	if s.Notifier == nil || session == nil {
		return nil
	}
	artifacts := ""
	if !s.noArtifacts {
		artifacts = s.Workspace.Config.ArtifactsDir
	}
	return s.Notifier.NotifyReview(ctx, webhook.Summarize(session, artifacts))
}

// BuildNotifier returns nil when cfg has no notify_url.
func BuildNotifier(cfg *config.Config, root string, opts Options) *webhook.Notifier {
	if cfg.NotifyURL == "" {
		return nil
	}
	return webhook.NewNotifier(cfg.NotifyURL, webhook.Options{
		Secret:     cfg.Credentials.NotifySecret,
		Client:     opts.HTTPClient,
		DeadLetter: webhook.NewDeadLetterStore(filepath.Join(root, config.Dir, webhook.DeadLetterFile)),
		Logger:     opts.Logger,
	})
}

// ResolveConfig layers the configuration for opts.
func ResolveConfig(opts Options) (*config.Config, error) {
	return config.Resolve(config.Options{
		Workspace:  opts.Root,
		ConfigPath: opts.ConfigPath,
		Flags:      opts.Flags,
		Getenv:     opts.Getenv,
		SkipDotEnv: opts.SkipDotEnv,
	})
}

// BuildParser builds the document parser. The diagram converter is
// skipped when its model has no credential.
func BuildParser(cfg *config.Config, opts Options) (*document.Parser, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DryRun || opts.NoConverter {
		return document.NewParser(nil, nil, logger), nil
	}
	if !cfg.HasCredential(cfg.ConverterModel) {
		logger.Warn("diagram conversion disabled: no credential for converter model", "model", cfg.ConverterModel)
		return document.NewParser(nil, nil, logger), nil
	}
	provider, err := LoadProvider(cfg, cfg.ConverterModel, opts.HTTPClient)
	if err != nil {
		return nil, err
	}
	return document.NewParser(nil, document.NewMermaidConverter(provider, cfg.WritesMMD()), logger), nil
}

// BuildAppServices resolves configuration and wires the review service.
func BuildAppServices(opts Options) (*AppServices, error) {
	cfg, err := ResolveConfig(opts)
	if err != nil {
		return nil, err
	}
	if !opts.DryRun {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	root := opts.Root
	if root == "" {
		root = "."
	}
	ws, err := NewWorkspace(root, cfg, opts.NoArtifacts)
	if err != nil {
		return nil, err
	}

	parser, err := BuildParser(cfg, opts)
	if err != nil {
		return nil, err
	}

	var (
		panel   []domainai.Provider
		arbiter domainai.Provider
	)
	if opts.DryRun {
		panel = DryRunPanel(cfg)
		arbiter = DryRunArbiter(cfg)
	} else {
		if panel, err = LoadPanel(cfg, opts.HTTPClient); err != nil {
			return nil, err
		}
		if arbiter, err = LoadProvider(cfg, cfg.ArbitrationModel, opts.HTTPClient); err != nil {
			return nil, err
		}
	}

	reviewSvc, err := application.NewReviewService(application.ReviewServiceConfig{
		Parser:        parser,
		Prompts:       ws.Prompts,
		Panel:         panel,
		Arbiter:       arbiter,
		Sink:          ws.Sink,
		Audit:         ws.Audit,
		Observer:      opts.Observer,
		Logger:        opts.Logger,
		MaxRounds:     cfg.MaxRounds,
		PromptVersion: cfg.PromptVersion,
	})
	if err != nil {
		return nil, err
	}

	return &AppServices{
		Workspace:   ws,
		Review:      reviewSvc,
		Parser:      parser,
		Panel:       panel,
		Arbiter:     arbiter,
		Notifier:    BuildNotifier(cfg, root, opts),
		noArtifacts: opts.NoArtifacts,
	}, nil
}
