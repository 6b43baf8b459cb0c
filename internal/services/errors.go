package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrStartFailure  = errors.New("start failure")
	ErrExecution     = errors.New("execution failure")
	ErrLocalAction   = errors.New("local action failure")
	ErrPrecondition  = errors.New("precondition not met")
	ErrBusy          = errors.New("a command is already executing")
	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrLocalAction
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Describe renders an error as "<type> <message>" so operators can tell an
// *fs.PathError from a plain validation failure at a glance. Pass the raw
// cause, before wrapping.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%T %s", err, err.Error()))
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
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
