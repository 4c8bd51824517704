package review

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/sdra/pkg/domain"
)

// Session accumulates the results of one review run. It has a single
// writer: the orchestrating goroutine.
type Session struct {
	ID           string
	StartedAt    time.Time
	Folder       string
	Requirements string
	Phase1       string
	Phase2       string
	FinalReport  string
}

// NewSession starts a session with a time-ordered ID.
func NewSession(folder string) *Session {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return &Session{ID: id.String(), StartedAt: time.Now().UTC(), Folder: folder}
}

// SetRequirements stores the parsed design text.
func (s *Session) SetRequirements(text string) error {
	if strings.TrimSpace(text) == "" {
		return &domain.ValidationError{Field: "requirements", Reason: "parsed design text is empty"}
	}
	s.Requirements = text
	return nil
}

// HasRequirements reports whether parsing has completed.
func (s *Session) HasRequirements() bool {
	return s.Requirements != ""
}

// SetPhase1 stores the trust boundary / DFD / STRIDE output.
func (s *Session) SetPhase1(out string) error {
	if !s.HasRequirements() {
		return &domain.StateError{Operation: "record phase 1", Requires: "requirements are parsed"}
	}
	s.Phase1 = out
	return nil
}

// SetPhase2 stores the risk rating output.
func (s *Session) SetPhase2(out string) error {
	if s.Phase1 == "" {
		return &domain.StateError{Operation: "record phase 2", Requires: "phase 1 completes"}
	}
	s.Phase2 = out
	return nil
}

// SetFinalReport stores the rendered report.
func (s *Session) SetFinalReport(report string) error {
	if s.Phase2 == "" {
		return &domain.StateError{Operation: "record the final report", Requires: "phase 2 completes"}
	}
	s.FinalReport = report
	return nil
}
