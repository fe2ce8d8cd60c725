package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/climatewash/internal/types"
)

func TestObserveDiagnosis(t *testing.T) {
	r := New()

	r.ObserveDiagnosis(types.EvaluationResult{Success: true, OverallRisk: "Medium Risk", Score: 55, ContentType: types.ContentText})
	r.ObserveDiagnosis(types.EvaluationResult{Success: true, OverallRisk: "Medium Risk", Score: 70, ContentType: types.ContentText})
	r.ObserveDiagnosis(types.EvaluationResult{OverallRisk: types.ErrorRisk, ContentType: types.ContentImage})

	assert.Equal(t, 2.0, testutil.ToFloat64(r.diagnoses.WithLabelValues("text", "Medium Risk")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.diagnoses.WithLabelValues("image", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.scores), "failed diagnoses are not scored")
}

func TestObserveTranscriptAndExport(t *testing.T) {
	r := New()

	r.ObserveTranscriptAttempt("generated/ja", "not_found")
	r.ObserveTranscriptAttempt("generated/ja", "not_found")
	r.ObserveTranscriptAttempt("manual/ja", "ok")
	r.ObserveExport("success", "verify_write")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.transcriptAttempts.WithLabelValues("generated/ja", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.transcriptAttempts.WithLabelValues("manual/ja", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.exports.WithLabelValues("success", "verify_write")))
}

func TestObserveBackendCall(t *testing.T) {
	r := New()

	r.ObserveBackendCall("openai", "text", 1200*time.Millisecond, "")
	r.ObserveBackendCall("openai", "text", 300*time.Millisecond, "rate_limited")

	assert.Equal(t, 1, testutil.CollectAndCount(r.backendLatency))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.backendErrors.WithLabelValues("openai", "text", "rate_limited")))
}

func TestHandler(t *testing.T) {
	r := New()
	r.ObserveExport("failure", "open_target")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `climatewash_exports_total{outcome="failure",stage="open_target"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
