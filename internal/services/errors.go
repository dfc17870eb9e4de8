package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPrecondition marks failures detected before planning: missing
	// inputs, unknown modules in toggles, archived events.
	ErrPrecondition = errors.New("precondition error")
	// ErrPlanning marks registry misconfiguration surfaced by the planner.
	ErrPlanning = errors.New("planning error")
	// ErrConcurrency marks a rejected run because one is already active.
	ErrConcurrency = errors.New("already running")
	// ErrExternalTool marks adapter process failures.
	ErrExternalTool = errors.New("external tool error")
	// ErrValidation marks malformed user input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks missing events or modules.
	ErrNotFound = errors.New("not found")
	// ErrTimeout marks adapter invocations that exceeded their deadline.
	ErrTimeout = errors.New("timeout")
	// ErrTransient marks failures with no better classification.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes module context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, module, operation, message string, err error) error {
	detail := buildDetail(module, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRejection reports whether an error represents a run rejected before any
// module executed, leaving event state untouched.
func IsRejection(err error) bool {
	return errors.Is(err, ErrPrecondition) ||
		errors.Is(err, ErrPlanning) ||
		errors.Is(err, ErrConcurrency) ||
		errors.Is(err, ErrNotFound)
}

func buildDetail(module, operation, message string) string {
	parts := make([]string, 0, 3)
	if module = strings.TrimSpace(module); module != "" {
		parts = append(parts, module)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
