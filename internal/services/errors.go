package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrGeneration    = errors.New("generation failed")
	ErrPersistence   = errors.New("persistence failed")
	ErrSource        = errors.New("diary source error")
	ErrBusy          = errors.New("another run is in progress")
)

// Wrap builds an error message that includes task context while tagging it
// with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, task, operation, message string, err error) error {
	detail := buildDetail(task, operation, message)
	if marker == nil {
		marker = ErrGeneration
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(task, operation, message string) string {
	parts := make([]string, 0, 3)
	if task = strings.TrimSpace(task); task != "" {
		parts = append(parts, task)
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
