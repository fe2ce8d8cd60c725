package extract

import "fmt"

// ParseError represents a failure parsing HTML or a base URL
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extract error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("extract error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
