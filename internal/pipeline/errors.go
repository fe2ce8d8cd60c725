package pipeline

import (
	"errors"
	"fmt"
)

// ErrCaptionsNotConfigured is returned when no caption provider was set up
var ErrCaptionsNotConfigured = errors.New("caption provider is not configured (set a YouTube API key)")

// ErrExportNotConfigured is returned when an export is requested without a target
var ErrExportNotConfigured = errors.New("spreadsheet export is not configured")

// InputError reports input rejected before any analysis is attempted
type InputError struct {
	Field   string
	Message string
	Cause   error
}

func (e *InputError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid %s: %s: %v", e.Field, e.Message, e.Cause)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *InputError) Unwrap() error {
	return e.Cause
}
