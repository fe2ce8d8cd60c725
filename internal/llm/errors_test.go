package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"openai 429", &openai.APIError{HTTPStatusCode: 429}, ErrCodeRateLimited},
		{"openai request 401", &openai.RequestError{HTTPStatusCode: 401, Err: errors.New("x")}, ErrCodeAuth},
		{"google 403", fmt.Errorf("wrap: %w", &googleapi.Error{Code: 403}), ErrCodeAuth},
		{"google 500", &googleapi.Error{Code: 500}, ErrCodeProvider},
		{"grpc exhausted", status.Error(codes.ResourceExhausted, "quota"), ErrCodeRateLimited},
		{"grpc unauthenticated", status.Error(codes.Unauthenticated, "key"), ErrCodeAuth},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), ErrCodeTimeout},
		{"empty", fmt.Errorf("x: %w", ErrEmptyResponse), ErrCodeEmpty},
		{"circuit", fmt.Errorf("%w: open", ErrCircuitOpen), ErrCodeCircuitOpen},
		{"unsupported", &ErrUnsupportedMedia{Provider: ProviderOpenAI, MIMEType: "application/pdf"}, ErrCodeUnsupported},
		{"plain", errors.New("connection reset"), ErrCodeProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyError(tt.err))
		})
	}
}

func TestClientError(t *testing.T) {
	cause := errors.New("dial failed")
	err := &ClientError{Provider: ProviderGemini, Message: "failed to create Gemini client", Cause: cause}
	assert.Equal(t, "gemini client: failed to create Gemini client: dial failed", err.Error())
	assert.ErrorIs(t, err, cause)
}
