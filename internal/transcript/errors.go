package transcript

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by caption providers
var (
	// ErrNotFound means no track exists for the requested kind and language
	ErrNotFound = errors.New("transcript not found")
	// ErrDisabled means captions are disabled or none exist for the video
	ErrDisabled = errors.New("captions are disabled for this video")
	// ErrVideoUnavailable means the video does not exist or is private
	ErrVideoUnavailable = errors.New("video unavailable")
	// ErrInvalidURL means no video id could be found in a URL
	ErrInvalidURL = errors.New("invalid YouTube URL")
)

// ProviderError wraps a failure reported by a caption or storage backend
type ProviderError struct {
	Op    string
	Cause error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// StagingError is returned when media bytes cannot be staged or read back
type StagingError struct {
	Message string
	Cause   error
}

func (e *StagingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("staging error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("staging error: %s", e.Message)
}

func (e *StagingError) Unwrap() error {
	return e.Cause
}
