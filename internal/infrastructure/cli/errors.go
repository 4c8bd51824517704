package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/sdra/pkg/domain"
	"github.com/felixgeelhaar/sdra/pkg/storage"
)

// Exit codes.
const (
	ExitFailure = 1
	ExitConfig  = 2
)

// CLIError wraps domain errors with user-facing messages and actionable hints.
type CLIError struct {
	Message  string
	Hint     string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with a default exit code of 1.
func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{
		Message:  msg,
		Hint:     hint,
		Err:      err,
		ExitCode: ExitFailure,
	}
}

// MapError converts known domain errors into CLIErrors with actionable hints.
// Unmapped errors are returned as-is.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return err
	}

	var cfgErr *domain.ConfigError
	if errors.As(err, &cfgErr) {
		e := NewCLIError("configuration error", configHint(cfgErr), err)
		e.ExitCode = ExitConfig
		return e
	}

	var nf *domain.NotFoundError
	if errors.As(err, &nf) {
		if nf.Kind == "prompt" {
			return NewCLIError(nf.Error(), "Check prompts_dir and prompt_version, or unset them to use the built-in prompts", err)
		}
		return NewCLIError(nf.Error(), "", err)
	}

	var valErr *domain.ValidationError
	if errors.As(err, &valErr) {
		if valErr.Field == "requirements" {
			return NewCLIError("nothing to review", "The folder produced no text. Run 'sdra parse <folder>' to inspect it", err)
		}
		return NewCLIError("invalid input", "Pass an existing folder of design documents", err)
	}

	switch {
	case errors.Is(err, storage.ErrChainBroken):
		return NewCLIError("audit log integrity check failed", "The audit log in .sdra/events.jsonl was modified outside sdra", err)
	case errors.Is(err, context.Canceled):
		return NewCLIError("cancelled", "", err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewCLIError("timed out", "Raise call_timeout in .sdra/config.yaml or SDRA_CALL_TIMEOUT", err)
	}

	return err
}

func configHint(e *domain.ConfigError) string {
	if e.Field == "" || strings.HasSuffix(e.Field, "_API_KEY") {
		return "Set the missing key in the environment or in .env, then run 'sdra config show'"
	}
	switch e.Field {
	case "max_rounds":
		return "Use --rounds 1 or higher"
	case "model", "panel", "arbitration_model", "converter_model":
		return "Models are written <provider>:<model>, e.g. openai:gpt-4o or anthropic:claude-3-5-sonnet-latest"
	default:
		return "Run 'sdra config show' to inspect the effective settings"
	}
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var cliErr *CLIError
	if errors.As(MapError(err), &cliErr) {
		return cliErr.ExitCode
	}
	return ExitFailure
}
