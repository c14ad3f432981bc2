package task

import (
	"errors"
	"fmt"
)

// Sentinel errors for task operations.
var (
	ErrTaskNotFound        = errors.New("task not found")
	ErrValidation          = errors.New("invalid task attributes")
	ErrMutatorClosed       = errors.New("mutator already committed or discarded")
	ErrInvalidDependency   = errors.New("invalid dependency")
	ErrDuplicateDependency = errors.New("dependency already exists")
	ErrDependencyCycle     = errors.New("dependency would create a cycle")
	ErrHierarchyCycle      = errors.New("move would make a task its own ancestor")
	ErrHasNestedTasks      = errors.New("task has nested tasks")
	ErrDerivedSpan         = errors.New("supertask span is derived from its nested tasks")
	ErrDetached            = errors.New("task is not attached to a manager")
)

// ValidationError describes a rejected mutator commit.
type ValidationError struct {
	Field  string
	Reason string
	Err    error // underlying cause, if any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrValidation, e.Err}
	}
	return []error{ErrValidation}
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func invalidCause(field string, err error) error {
	return &ValidationError{Field: field, Reason: err.Error(), Err: err}
}
