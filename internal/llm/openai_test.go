package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/climatewash/internal/types"
)

func chatResponse(content string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "gpt-4o",
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": content},
			},
		},
	})
	return string(body)
}

func newOpenAIServer(t *testing.T, handler http.HandlerFunc) *Config {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := testConfig(ProviderOpenAI)
	cfg.BaseURL = server.URL + "/v1"
	return cfg
}

func TestOpenAIBackend_AnalyzeText(t *testing.T) {
	var captured map[string]interface{}
	cfg := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatResponse(`{"violations": [{"category": "1", "points_deducted": 20}], "summary": "vague"}`))
	})

	b, err := NewBackend(context.Background(), cfg)
	require.NoError(t, err)

	findings := b.AnalyzeText(context.Background(), "You are an auditor.", "Our products are eco-friendly.")

	require.False(t, findings.Failed(), "%v", findings.Err)
	require.Len(t, findings.Violations, 1)
	assert.Equal(t, 20, findings.Violations[0].PointsDeducted)
	assert.Equal(t, "gpt-4o", captured["model"])
	format := captured["response_format"].(map[string]interface{})
	assert.Equal(t, "json_object", format["type"])
}

func TestOpenAIBackend_AnalyzeImageSendsDataURL(t *testing.T) {
	var body string
	cfg := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		_, _ = io.WriteString(w, chatResponse(`{"violations": [], "summary": "fine"}`))
	})

	b, err := NewBackend(context.Background(), cfg)
	require.NoError(t, err)

	findings := b.AnalyzeImage(context.Background(), "s", "look", types.Media{Data: []byte("png-bytes"), MIMEType: "image/png"})

	require.False(t, findings.Failed())
	assert.Contains(t, body, "data:image/png;base64,")
	assert.Contains(t, body, `"image_url"`)
}

func TestOpenAIBackend_RateLimited(t *testing.T) {
	cfg := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error": {"message": "Rate limit reached", "type": "requests", "code": "rate_limit_exceeded"}}`)
	})

	b, err := NewBackend(context.Background(), cfg)
	require.NoError(t, err)

	findings := b.AnalyzeText(context.Background(), "s", "u")

	require.True(t, findings.Failed())
	assert.Equal(t, ErrCodeRateLimited, findings.Err.Message)
}

func TestOpenAIBackend_Unauthorized(t *testing.T) {
	cfg := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error": {"message": "Incorrect API key", "type": "invalid_request_error"}}`)
	})

	b, err := NewBackend(context.Background(), cfg)
	require.NoError(t, err)

	findings := b.AnalyzeText(context.Background(), "s", "u")
	require.True(t, findings.Failed())
	assert.Equal(t, ErrCodeAuth, findings.Err.Message)
}

func TestOpenAIBackend_EmptyChoice(t *testing.T) {
	cfg := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, chatResponse("  "))
	})

	b, err := NewBackend(context.Background(), cfg)
	require.NoError(t, err)

	findings := b.AnalyzeText(context.Background(), "s", "u")
	require.True(t, findings.Failed())
	assert.Equal(t, ErrCodeEmpty, findings.Err.Message)
}

func TestNewTranscriber_RequiresCapability(t *testing.T) {
	_, err := NewTranscriber(testConfig(ProviderGemini))
	assert.ErrorIs(t, err, ErrTranscriptionUnsupported)

	_, err = NewTranscriber(nil)
	assert.ErrorIs(t, err, ErrTranscriptionUnsupported)
}

func TestOpenAITranscriber_Transcribe(t *testing.T) {
	cfg := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "text", r.FormValue("response_format"))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "clip.mp4", header.Filename)
		_, _ = io.WriteString(w, "We are carbon neutral.\n")
	})

	transcriber, err := NewTranscriber(cfg)
	require.NoError(t, err)

	text, err := transcriber.Transcribe(context.Background(), "clip.mp4", strings.NewReader("fake-audio"))
	require.NoError(t, err)
	assert.Equal(t, "We are carbon neutral.", text)
}

func TestIsReasoningModel(t *testing.T) {
	assert.True(t, isReasoningModel("o3-mini"))
	assert.True(t, isReasoningModel("gpt-5"))
	assert.False(t, isReasoningModel("gpt-4o"))
}
