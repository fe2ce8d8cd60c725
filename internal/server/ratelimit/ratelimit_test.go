package ratelimit

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(cfg Config) (*Limiter, *fakeClock) {
	cfg.CleanupInterval = 0
	l := NewLimiter(cfg)
	clock := &fakeClock{now: time.Date(2025, 1, 2, 4, 18, 0, 0, time.UTC)}
	l.now = clock.Now
	return l, clock
}

func TestBucket_TakeAndRefill(t *testing.T) {
	start := time.Unix(0, 0)
	b := newBucket(3, 1, start)

	for i := 0; i < 3; i++ {
		allowed, remaining, _, _ := b.take(start)
		assert.True(t, allowed)
		assert.Equal(t, 2-i, remaining)
	}
	allowed, _, resetAt, retryAfter := b.take(start)
	assert.False(t, allowed)
	assert.Equal(t, time.Second, retryAfter)
	assert.Equal(t, start.Add(3*time.Second), resetAt)

	allowed, _, _, _ = b.take(start.Add(1100 * time.Millisecond))
	assert.True(t, allowed, "one token refills per second")
}

func TestLimiter_DefaultLimit(t *testing.T) {
	l, _ := newTestLimiter(NewConfig(10, time.Minute, nil, nil, nil))

	for i := 0; i < 10; i++ {
		info := l.Allow("127.0.0.1", "/v1/history", "GET")
		require.True(t, info.Allowed, "request %d", i+1)
		assert.Equal(t, 10, info.Limit)
		assert.Equal(t, 9-i, info.Remaining)
	}

	info := l.Allow("127.0.0.1", "/v1/history", "GET")
	assert.False(t, info.Allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Positive(t, info.RetryAfter)
}

func TestLimiter_DiagnosisRules(t *testing.T) {
	l, clock := newTestLimiter(NewConfig(1000, time.Minute, DiagnosisRules(2, time.Hour, 2), nil, nil))

	assert.True(t, l.Allow("10.0.0.1", "/v1/diagnoses/text", "POST").Allowed)
	assert.True(t, l.Allow("10.0.0.1", "/v1/diagnoses/image", "POST").Allowed)
	assert.False(t, l.Allow("10.0.0.1", "/v1/diagnoses/web", "POST").Allowed, "all diagnosis endpoints share one bucket")

	assert.True(t, l.Allow("10.0.0.1", "/v1/transcripts/youtube", "POST").Allowed)
	assert.True(t, l.Allow("10.0.0.2", "/v1/diagnoses/text", "POST").Allowed, "clients are limited separately")
	assert.True(t, l.Allow("10.0.0.1", "/v1/history", "GET").Allowed)

	clock.Advance(31 * time.Minute)
	assert.True(t, l.Allow("10.0.0.1", "/v1/diagnoses/text", "POST").Allowed)
}

func TestLimiter_UnlimitedPaths(t *testing.T) {
	l, _ := newTestLimiter(NewConfig(1, time.Hour, nil, nil, nil))
	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow("127.0.0.1", "/health", "GET").Allowed)
		assert.True(t, l.Allow("127.0.0.1", "/metrics", "GET").Allowed)
	}
}

func TestLimiter_Lists(t *testing.T) {
	l, _ := newTestLimiter(NewConfig(1, time.Hour, nil, []string{"10.0.0.9"}, []string{" 10.0.0.66 "}))

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("10.0.0.9", "/v1/history", "GET").Allowed)
	}
	assert.False(t, l.Allow("10.0.0.66", "/health", "GET").Allowed)
}

func TestLimiter_Disabled(t *testing.T) {
	cfg := NewConfig(1, time.Hour, nil, nil, nil)
	cfg.Enabled = false
	l, _ := newTestLimiter(cfg)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("127.0.0.1", "/v1/history", "GET").Allowed)
	}
}

func TestLimiter_Sweep(t *testing.T) {
	l, clock := newTestLimiter(NewConfig(5, time.Minute, nil, nil, nil))

	l.Allow("a", "/v1/history", "GET")
	clock.Advance(50 * time.Minute)
	l.Allow("b", "/v1/history", "GET")
	clock.Advance(20 * time.Minute)

	assert.Equal(t, 1, l.Sweep())
	assert.Len(t, l.buckets, 1)
}

func TestLimiter_Concurrent(t *testing.T) {
	l, _ := newTestLimiter(NewConfig(100, time.Hour, nil, nil, nil))

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("127.0.0.1", "/v1/history", "GET").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, allowed)
}

func TestLimiter_StopTwice(t *testing.T) {
	l := NewLimiter(NewConfig(1, time.Minute, nil, nil, nil))
	l.Stop()
	l.Stop()
}

func TestMiddleware(t *testing.T) {
	l, _ := newTestLimiter(NewConfig(1000, time.Minute, DiagnosisRules(1, time.Hour, 1), nil, nil))
	logger, hook := test.NewNullLogger()
	handler := Middleware(l, logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/diagnoses/text", nil)
		req.RemoteAddr = "192.0.2.1:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := send()
	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

	second := send()
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Contains(t, second.Body.String(), "rate_limit_exceeded")
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "rate limit exceeded", hook.LastEntry().Message)
}

func ExampleDiagnosisRules() {
	for _, r := range DiagnosisRules(10, time.Hour, 2) {
		fmt.Println(r.Method, r.Prefix)
	}
	// Output:
	// POST /v1/diagnoses/
	// POST /v1/transcripts/
}
