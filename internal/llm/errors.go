package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error codes carried in the findings error shape
const (
	ErrCodeRateLimited = "rate_limited"
	ErrCodeAuth        = "authentication_failed"
	ErrCodeProvider    = "provider_error"
	ErrCodeTimeout     = "timeout"
	ErrCodeCircuitOpen = "circuit_open"
	ErrCodeEmpty       = "empty_response"
	ErrCodeParse       = "parse_failed"
	ErrCodeUnsupported = "unsupported_content"
	ErrCodeInternal    = "internal_error"
)

// ErrTranscriptionUnsupported is returned when the configured provider cannot transcribe audio
var ErrTranscriptionUnsupported = errors.New("configured provider does not support audio transcription")

// ErrEmptyResponse is returned when the provider answers without any text
var ErrEmptyResponse = errors.New("no text in response")

// ErrUnsupportedMedia is returned when the provider cannot accept the media type
type ErrUnsupportedMedia struct {
	Provider Provider
	MIMEType string
}

func (e *ErrUnsupportedMedia) Error() string {
	return fmt.Sprintf("provider %s does not accept %s content", e.Provider, e.MIMEType)
}

// ClientError represents a failure constructing a provider client
type ClientError struct {
	Provider Provider
	Message  string
	Cause    error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s client: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s client: %s", e.Provider, e.Message)
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// httpCoder is implemented by gax API errors
type httpCoder interface {
	HTTPCode() int
}

// classifyError maps a provider error to an error code
func classifyError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrCodeTimeout
	}
	if errors.Is(err, ErrEmptyResponse) {
		return ErrCodeEmpty
	}
	if errors.Is(err, ErrCircuitOpen) {
		return ErrCodeCircuitOpen
	}
	var unsupported *ErrUnsupportedMedia
	if errors.As(err, &unsupported) {
		return ErrCodeUnsupported
	}

	if code := statusCode(err); code != 0 {
		return codeForStatus(code)
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.ResourceExhausted:
			return ErrCodeRateLimited
		case codes.Unauthenticated, codes.PermissionDenied:
			return ErrCodeAuth
		case codes.DeadlineExceeded:
			return ErrCodeTimeout
		}
	}
	return ErrCodeProvider
}

// statusCode extracts the HTTP status from any supported SDK error, or 0
func statusCode(err error) int {
	var openaiAPI *openai.APIError
	if errors.As(err, &openaiAPI) {
		return openaiAPI.HTTPStatusCode
	}
	var openaiReq *openai.RequestError
	if errors.As(err, &openaiReq) {
		return openaiReq.HTTPStatusCode
	}
	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return anthropicErr.StatusCode
	}
	var googleErr *googleapi.Error
	if errors.As(err, &googleErr) {
		return googleErr.Code
	}
	var coder httpCoder
	if errors.As(err, &coder) && coder.HTTPCode() > 0 {
		return coder.HTTPCode()
	}
	return 0
}

func codeForStatus(code int) string {
	switch code {
	case http.StatusTooManyRequests:
		return ErrCodeRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrCodeAuth
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return ErrCodeTimeout
	default:
		return ErrCodeProvider
	}
}
