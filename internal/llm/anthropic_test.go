package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/climatewash/internal/types"
)

func messageResponse(text string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"id":          "msg_01",
		"type":        "message",
		"role":        "assistant",
		"model":       "claude-sonnet-4-5",
		"stop_reason": "end_turn",
		"content":     []map[string]string{{"type": "text", "text": text}},
		"usage":       map[string]int{"input_tokens": 10, "output_tokens": 20},
	})
	return string(body)
}

func newAnthropicServer(t *testing.T, handler http.HandlerFunc) *Config {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := testConfig(ProviderAnthropic)
	cfg.BaseURL = server.URL
	return cfg
}

func TestAnthropicBackend_AnalyzeDocument(t *testing.T) {
	var captured map[string]interface{}
	cfg := newAnthropicServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, messageResponse(`{"violations": [{"category": "4", "points_deducted": 25}], "summary": "label issue"}`))
	})

	b, err := NewBackend(context.Background(), cfg)
	require.NoError(t, err)

	findings := b.AnalyzeImage(context.Background(), "system", "review this PDF", types.Media{Data: []byte("%PDF-1.4"), MIMEType: "application/pdf"})

	require.False(t, findings.Failed(), "%v", findings.Err)
	assert.Equal(t, 25, findings.Violations[0].PointsDeducted)
	assert.Equal(t, "claude-sonnet-4-5", captured["model"])

	messages := captured["messages"].([]interface{})
	content := messages[0].(map[string]interface{})["content"].([]interface{})
	require.Len(t, content, 2)
	assert.Equal(t, "document", content[0].(map[string]interface{})["type"])
	assert.Equal(t, "text", content[1].(map[string]interface{})["type"])
}

func TestAnthropicBackend_RateLimited(t *testing.T) {
	cfg := newAnthropicServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"type": "error", "error": {"type": "rate_limit_error", "message": "slow down"}}`)
	})

	b, err := NewBackend(context.Background(), cfg)
	require.NoError(t, err)

	findings := b.AnalyzeText(context.Background(), "s", "u")

	require.True(t, findings.Failed())
	assert.Equal(t, ErrCodeRateLimited, findings.Err.Message)
}
