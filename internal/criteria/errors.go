package criteria

import "fmt"

// ValidationError represents invalid criteria configuration
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid criteria (%s): %s", e.Field, e.Message)
}

// LoadError represents a failure reading a criteria file
type LoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %v", e.Message, e.Path, e.Cause)
	}
	return fmt.Sprintf("%s %s", e.Message, e.Path)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}
