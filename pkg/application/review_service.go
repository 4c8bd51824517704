package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/felixgeelhaar/sdra/pkg/domain"
	"github.com/felixgeelhaar/sdra/pkg/domain/ai"
	"github.com/felixgeelhaar/sdra/pkg/domain/review"
	"github.com/felixgeelhaar/sdra/pkg/observability"
)

// Review events.
const (
	EventPhaseStarted   observability.EventType = "review.phase.started"
	EventPhaseCompleted observability.EventType = "review.phase.completed"
	EventReportFallback observability.EventType = "review.report.fallback"
)

// Audit actions appended to the event log.
const (
	ActionReviewStarted   = "review.started"
	ActionPhaseCompleted  = "review.phase.completed"
	ActionReviewCompleted = "review.completed"
)

const auditActor = "sdra"

// reportTimeLayout formats the report artifact suffix.
const reportTimeLayout = "20060102_150405"

// FolderParser turns a folder of design documents into requirements text.
type FolderParser interface {
	ParseFolder(ctx context.Context, folder string) (string, error)
}

// PromptRenderer loads a versioned prompt template and executes it.
type PromptRenderer interface {
	Render(name, version string, data any) (string, error)
}

// PhaseData is the template data available to every prompt.
type PhaseData struct {
	Requirements string
	Phase1       string
	Phase2       string
}

// phase describes one refined review step.
type phase struct {
	key   string
	title string
}

var (
	phaseThreatModel = phase{key: "phase1", title: "Trust Boundaries / DFD / STRIDE"}
	phaseRiskRating  = phase{key: "phase2", title: "DREAD risk rating / mitigations"}
)

// ReviewServiceConfig holds the collaborators of a ReviewService.
type ReviewServiceConfig struct {
	Parser  FolderParser
	Prompts PromptRenderer
	// Panel is the fan-out model list.
	Panel []ai.Provider
	// Arbiter merges, critiques and writes the final report.
	Arbiter       ai.Provider
	Sink          domain.ArtifactSink
	Audit         domain.AuditLogger
	Observer      observability.Observer
	Logger        *slog.Logger
	MaxRounds     int
	PromptVersion string
	// Now is the clock used for the report name. Defaults to time.Now.
	Now func() time.Time
}

// ReviewService runs a complete design review over a folder.
type ReviewService struct {
	parser        FolderParser
	prompts       PromptRenderer
	panel         []ai.Provider
	arbiter       ai.Provider
	sink          domain.ArtifactSink
	audit         domain.AuditLogger
	observer      observability.Observer
	logger        *slog.Logger
	refiner       *Refiner
	promptVersion string
	now           func() time.Time
}

// NewReviewService validates cfg and builds the service.
func NewReviewService(cfg ReviewServiceConfig) (*ReviewService, error) {
	if len(cfg.Panel) == 0 {
		return nil, &domain.ConfigError{Field: "panel", Reason: "at least one panel model is required"}
	}
	if cfg.Arbiter == nil {
		return nil, &domain.ConfigError{Field: "arbitration_model", Reason: "an arbitration model is required"}
	}
	if cfg.Parser == nil {
		return nil, &domain.ConfigError{Field: "parser", Reason: "a document parser is required"}
	}
	if cfg.Prompts == nil {
		return nil, &domain.ConfigError{Field: "prompts", Reason: "a prompt store is required"}
	}

	obs := cfg.Observer
	if obs == nil {
		obs = observability.NoOpObserver{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	version := cfg.PromptVersion
	if version == "" {
		version = "v1"
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	refiner := NewRefiner(
		NewFanOut(obs),
		NewMerger(cfg.Arbiter, obs),
		NewEvaluator(cfg.Arbiter, obs),
		cfg.Sink, obs, logger, cfg.MaxRounds,
	)

	return &ReviewService{
		parser:        cfg.Parser,
		prompts:       cfg.Prompts,
		panel:         cfg.Panel,
		arbiter:       cfg.Arbiter,
		sink:          cfg.Sink,
		audit:         cfg.Audit,
		observer:      obs,
		logger:        logger,
		refiner:       refiner,
		promptVersion: version,
		now:           now,
	}, nil
}

// Parse returns the requirements text of folder without running a review.
func (s *ReviewService) Parse(ctx context.Context, folder string) (string, error) {
	return s.parser.ParseFolder(ctx, folder)
}

// Review parses folder, runs both phases and writes the final report. The
// returned session carries every intermediate result, also on error.
func (s *ReviewService) Review(ctx context.Context, folder string) (*review.Session, error) {
	session := review.NewSession(folder)

	requirements, err := s.parser.ParseFolder(ctx, folder)
	if err != nil {
		return session, fmt.Errorf("parse %s: %w", folder, err)
	}
	if err := session.SetRequirements(requirements); err != nil {
		return session, err
	}

	s.auditLog(ActionReviewStarted, map[string]any{
		"session_id": session.ID,
		"folder":     folder,
		"panel":      providerIDs(s.panel),
		"arbiter":    s.arbiter.ID(),
		"max_rounds": s.refiner.MaxRounds(),
	})

	data := PhaseData{Requirements: session.Requirements}
	phase1, err := s.runPhase(ctx, session, phaseThreatModel, data)
	if err != nil {
		return session, err
	}
	if err := session.SetPhase1(phase1); err != nil {
		return session, err
	}

	data.Phase1 = session.Phase1
	phase2, err := s.runPhase(ctx, session, phaseRiskRating, data)
	if err != nil {
		return session, err
	}
	if err := session.SetPhase2(phase2); err != nil {
		return session, err
	}

	data.Phase2 = session.Phase2
	report, err := s.writeReport(ctx, data)
	if err != nil {
		return session, err
	}
	if err := session.SetFinalReport(report); err != nil {
		return session, err
	}

	name := fmt.Sprintf("security_review_report_%s.md", s.now().Format(reportTimeLayout))
	s.record(name, report)

	s.auditLog(ActionReviewCompleted, map[string]any{
		"session_id": session.ID,
		"report":     name,
		"duration":   time.Since(session.StartedAt).String(),
	})
	return session, nil
}

func (s *ReviewService) runPhase(ctx context.Context, session *review.Session, p phase, data PhaseData) (string, error) {
	system, err := s.prompts.Render(p.key+"_system.md", s.promptVersion, data)
	if err != nil {
		return "", err
	}
	user, err := s.prompts.Render(p.key+"_user.md", s.promptVersion, data)
	if err != nil {
		return "", err
	}

	observability.Emit(ctx, s.observer, EventPhaseStarted, observability.LevelInfo, "review", map[string]any{
		"phase": p.key,
		"title": p.title,
	})

	out, err := s.refiner.Refine(ctx, session, RefineRequest{
		Phase:        p.key,
		SystemPrompt: system,
		UserPrompt:   user,
		Models:       s.panel,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", p.title, err)
	}

	s.record(p.key+"_output.json", prettyIfJSON(out))
	observability.Emit(ctx, s.observer, EventPhaseCompleted, observability.LevelInfo, "review", map[string]any{
		"phase": p.key,
		"chars": len(out),
	})
	s.auditLog(ActionPhaseCompleted, map[string]any{
		"session_id": session.ID,
		"phase":      p.key,
	})
	return out, nil
}

// writeReport asks the arbiter for the Markdown report. A failed call
// falls back to a report assembled from the phase outputs.
func (s *ReviewService) writeReport(ctx context.Context, data PhaseData) (string, error) {
	system, err := s.prompts.Render("report_system.md", s.promptVersion, data)
	if err != nil {
		return "", err
	}
	user, err := s.prompts.Render("report_user.md", s.promptVersion, data)
	if err != nil {
		return "", err
	}

	text, err := ai.Call(ctx, s.arbiter, ai.Conversation{
		ai.Text(ai.RoleSystem, system),
		ai.Text(ai.RoleUser, user),
	})
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}

	reason := "empty response"
	if err != nil {
		reason = err.Error()
	}
	observability.Emit(ctx, s.observer, EventReportFallback, observability.LevelWarning, "review", map[string]any{
		"arbiter": s.arbiter.ID(),
		"error":   reason,
	})
	return fallbackReport(data), nil
}

func fallbackReport(data PhaseData) string {
	var b strings.Builder
	b.WriteString("# Security Design Review\n\n")
	b.WriteString("_The arbitration model did not produce a report; the phase outputs follow unedited._\n\n")
	fmt.Fprintf(&b, "## %s\n\n```json\n%s\n```\n\n", phaseThreatModel.title, prettyIfJSON(data.Phase1))
	fmt.Fprintf(&b, "## %s\n\n```json\n%s\n```\n", phaseRiskRating.title, prettyIfJSON(data.Phase2))
	return b.String()
}

// prettyIfJSON indents text when it is a JSON object or array.
func prettyIfJSON(text string) string {
	doc := review.ParseDocument(text)
	if doc.Kind() != review.DocumentJSON {
		return text
	}
	return doc.Pretty()
}

func (s *ReviewService) record(name, content string) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Record(name, content); err != nil {
		s.logger.Warn("failed to record artifact", "name", name, "error", err)
	}
}

func (s *ReviewService) auditLog(action string, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(action, auditActor, metadata); err != nil {
		s.logger.Warn("failed to append audit event", "action", action, "error", err)
	}
}

func providerIDs(ps []ai.Provider) []string {
	ids := make([]string, len(ps))
	for i, p := range ps {
		ids[i] = p.ID()
	}
	return ids
}
