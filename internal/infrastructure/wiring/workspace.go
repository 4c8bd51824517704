package wiring

import (
	"path/filepath"

	"github.com/felixgeelhaar/sdra/internal/infrastructure/config"
	"github.com/felixgeelhaar/sdra/pkg/domain"
	"github.com/felixgeelhaar/sdra/pkg/prompts"
	"github.com/felixgeelhaar/sdra/pkg/storage"
)

// Workspace bundles the file-backed infrastructure of one workspace root.
type Workspace struct {
	Root    string
	Config  *config.Config
	Sink    domain.ArtifactSink
	Audit   *storage.EventLog
	Prompts *prompts.Store
}

// NewWorkspace opens the artifact sink, audit log and prompt store for cfg.
// With noArtifacts the sink discards everything; the audit log is kept.
func NewWorkspace(root string, cfg *config.Config, noArtifacts bool) (*Workspace, error) {
	var sink domain.ArtifactSink = storage.NewFilesystemSink(cfg.ArtifactsDir)
	if noArtifacts {
		sink = storage.NopSink{}
	}

	audit, err := storage.NewEventLog(filepath.Join(root, config.Dir))
	if err != nil {
		return nil, err
	}

	store, err := prompts.FromDir(cfg.PromptsDir)
	if err != nil {
		return nil, err
	}

	return &Workspace{
		Root:    root,
		Config:  cfg,
		Sink:    sink,
		Audit:   audit,
		Prompts: store,
	}, nil
}
