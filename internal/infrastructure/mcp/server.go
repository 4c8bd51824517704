package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/sdra/internal/infrastructure/config"
	"github.com/felixgeelhaar/sdra/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/sdra/pkg/document"
	"github.com/felixgeelhaar/sdra/pkg/domain"
)

var (
	Version     = "dev"
	BuildCommit = "unknown"
	BuildDate   = "unknown"
)

// Server exposes folder parsing and reviews as MCP tools.
type Server struct {
	mcpServer *mcp.Server
	opts      wiring.Options
	logger    *slog.Logger
}

// mcpErr returns a user-friendly error for MCP clients.
// Internal details are omitted, only the friendly message is returned.
func mcpErr(friendly string) error {
	return fmt.Errorf("%s", friendly)
}

// NewServer creates the server. Services are built per tool call so that
// configuration changes apply without a restart.
func NewServer(opts wiring.Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	info := mcp.ServerInfo{
		Name:    "sdra",
		Version: Version,
	}

	s := &Server{
		mcpServer: mcp.NewServer(info,
			mcp.WithTitle("SDRA MCP Server"),
			mcp.WithDescription("SDRA runs multi-model security design reviews over folders of design documents."),
			mcp.WithBuildInfo(BuildCommit, BuildDate),
			mcp.WithInstructions("Use sdra_parse_folder to preview the extracted design text and sdra_review_folder to run a full review."),
		),
		opts:   opts,
		logger: logger,
	}
	s.registerTools()
	return s
}

type ParseFolderArgs struct {
	Folder string `json:"folder" jsonschema:"description=Folder of design documents, relative to the workspace"`
	Full   bool   `json:"full,omitempty" jsonschema:"description=Return the full text instead of a preview"`
}

type ReviewFolderArgs struct {
	Folder string `json:"folder" jsonschema:"description=Folder of design documents, relative to the workspace"`
	Rounds int    `json:"rounds,omitempty" jsonschema:"description=Maximum refinement rounds per phase"`
	DryRun bool   `json:"dry_run,omitempty" jsonschema:"description=Use scripted models instead of calling providers"`
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("sdra_parse_folder").
		Description("Parse a folder of design documents (PDF text and diagrams as Mermaid) into requirements text").
		Handler(s.handleParseFolder)

	s.mcpServer.Tool("sdra_review_folder").
		Description("Run the full security design review (threat model, risk rating, report) over a folder").
		Handler(s.handleReviewFolder)

	s.mcpServer.Tool("sdra_config_summary").
		Description("Show the effective configuration with masked credentials").
		Handler(s.handleConfigSummary)
}

func (s *Server) resolveFolder(folder string) (string, error) {
	if folder == "" {
		return "", mcpErr("A folder is required.")
	}
	if filepath.IsAbs(folder) {
		return folder, nil
	}
	root := s.opts.Root
	if root == "" {
		root = "."
	}
	return filepath.Join(root, folder), nil
}

func (s *Server) handleParseFolder(ctx context.Context, args ParseFolderArgs) (any, error) {
	folder, err := s.resolveFolder(args.Folder)
	if err != nil {
		return nil, err
	}

	cfg, err := wiring.ResolveConfig(s.opts)
	if err != nil {
		return nil, mcpErr("Failed to load configuration. Run 'sdra config show' to inspect it.")
	}
	parser, err := wiring.BuildParser(cfg, s.opts)
	if err != nil {
		return nil, mcpErr("Failed to set up the document parser. Check the converter model configuration.")
	}

	text, err := parser.ParseFolder(ctx, folder)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return nil, mcpErr(fmt.Sprintf("Invalid folder: %s", args.Folder))
		}
		s.logger.Error("parse failed", "folder", folder, "error", err)
		return nil, mcpErr("Failed to parse the folder.")
	}

	truncated := false
	if !args.Full {
		var rest int
		text, rest = document.Preview(text, document.PreviewLength)
		truncated = rest > 0
	}
	return map[string]any{
		"folder":    args.Folder,
		"text":      text,
		"truncated": truncated,
	}, nil
}

func (s *Server) handleReviewFolder(ctx context.Context, args ReviewFolderArgs) (any, error) {
	folder, err := s.resolveFolder(args.Folder)
	if err != nil {
		return nil, err
	}

	opts := s.opts
	opts.DryRun = opts.DryRun || args.DryRun
	if args.Rounds > 0 {
		flags := config.Config{}
		if opts.Flags != nil {
			flags = *opts.Flags
		}
		flags.MaxRounds = args.Rounds
		opts.Flags = &flags
	}

	services, err := wiring.BuildAppServices(opts)
	if err != nil {
		var cfgErr *domain.ConfigError
		if errors.As(err, &cfgErr) {
			return nil, mcpErr(fmt.Sprintf("Configuration error: %s", cfgErr.Error()))
		}
		return nil, mcpErr("Failed to set up the review services.")
	}

	session, err := services.Review.Review(ctx, folder)
	if err != nil {
		s.logger.Error("review failed", "folder", folder, "error", err)
		if errors.Is(err, domain.ErrValidation) {
			return nil, mcpErr(fmt.Sprintf("Nothing to review in %s: the folder is missing or produced no text.", args.Folder))
		}
		return nil, mcpErr("The review failed. Check the server logs for the failing phase.")
	}
	if err := services.NotifyCompleted(ctx, session); err != nil {
		s.logger.Warn("review notification failed", "error", err)
	}

	return map[string]any{
		"session_id": session.ID,
		"phase1":     session.Phase1,
		"phase2":     session.Phase2,
		"report":     session.FinalReport,
	}, nil
}

func (s *Server) handleConfigSummary(ctx context.Context, args struct{}) (any, error) {
	cfg, err := wiring.ResolveConfig(s.opts)
	if err != nil {
		return nil, mcpErr("Failed to load configuration. Check .sdra/config.yaml.")
	}
	return cfg.SummaryMap(), nil
}

func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr, mcp.WithDefaultCORS())
}

func (s *Server) ServeWebSocket(ctx context.Context, addr string) error {
	return mcp.ServeWebSocket(ctx, s.mcpServer, addr)
}
