package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidIdentifier marks input that is not a note1/nevent1 bech32
	// string or a raw 64-hex event id.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrNotFound marks a lookup that exhausted every relay without a match.
	ErrNotFound = errors.New("not found")
	// ErrNoMedia marks an event that resolved but carries no playable URL.
	ErrNoMedia = errors.New("no media in event")
	// ErrService marks a transcription or translation boundary failure.
	ErrService = errors.New("service error")
	// ErrCapture marks an audio tap or recording failure.
	ErrCapture = errors.New("capture error")
	// ErrTimeout marks a per-endpoint deadline expiry.
	ErrTimeout = errors.New("timeout")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrService
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// HaltsSearch reports whether err should abort a search and surface to the
// user. Caption-pipeline failures are deliberately absorbed instead.
func HaltsSearch(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidIdentifier),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrNoMedia):
		return true
	default:
		return false
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
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
