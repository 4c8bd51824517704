package domain

import (
	"errors"
	"fmt"
)

// Error categories. Concrete errors below match these via errors.Is.
var (
	// ErrConfig indicates a bad or missing credential, model or setting.
	ErrConfig = errors.New("configuration error")

	// ErrValidation indicates missing required input for an operation.
	ErrValidation = errors.New("validation error")

	// ErrState indicates an operation invoked out of order.
	ErrState = errors.New("state error")

	// ErrNotFound indicates a requested resource does not exist.
	ErrNotFound = errors.New("not found")
)

// ConfigError is fatal to the whole run.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// ValidationError reports a missing or malformed required input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StateError reports an operation that needs a step which has not run yet.
type StateError struct {
	Operation string
	Requires  string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s before %s", e.Operation, e.Requires)
}

func (e *StateError) Is(target error) bool {
	return target == ErrState
}

// NotFoundError reports a missing named resource such as a prompt template.
type NotFoundError struct {
	Kind string
	Name string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
