package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURL_Success(t *testing.T) {
	var userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html><body><h1>Test</h1></body></html>"))
	}))
	defer server.Close()

	result, err := URL(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, server.URL, result.URL)
	assert.Contains(t, result.HTML, "<h1>Test</h1>")
	assert.Equal(t, []byte(result.HTML), result.Body)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", result.ContentType)
	assert.Equal(t, DefaultUserAgent, userAgent)
}

func TestURL_InvalidURL(t *testing.T) {
	for _, raw := range []string{"not-a-valid-url", "ftp://example.com/file", "https://"} {
		_, err := URL(context.Background(), raw, nil)
		require.Error(t, err, raw)

		var fetchErr *Error
		assert.ErrorAs(t, err, &fetchErr)
		assert.Contains(t, err.Error(), "invalid URL")
	}
}

func TestURL_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	result, err := URL(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.NotNil(t, result) // Result is returned even on error
	assert.Equal(t, http.StatusNotFound, result.StatusCode)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	assert.Contains(t, err.Error(), "404")
}

func TestURL_OnlyStatusOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("partial"))
	}))
	defer server.Close()

	_, err := URL(context.Background(), server.URL, nil)
	require.NoError(t, err)

	_, err = URL(context.Background(), server.URL, ImageOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "202")
}

func TestURL_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	opts := DefaultOptions()
	opts.Timeout = 20 * time.Millisecond
	_, err := URL(context.Background(), server.URL, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP request failed")
}

func TestURL_MaxBodyBytes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 100)))
	}))
	defer server.Close()

	opts := DefaultOptions()
	opts.MaxBodyBytes = 10
	result, err := URL(context.Background(), server.URL, opts)
	require.NoError(t, err)
	assert.Len(t, result.Body, 10)
}

func TestURL_DecodesDeclaredCharset(t *testing.T) {
	// 環境にやさしい in Shift_JIS
	sjis := "\x8a\xc2\x8b\xab\x82\xc9\x82\xe2\x82\xb3\x82\xb5\x82\xa2"

	tests := []struct {
		name        string
		contentType string
		body        string
		want        string
		encoding    string
	}{
		{name: "header", contentType: "text/html; charset=Shift_JIS", body: "<html><body><p>" + sjis + "</p></body></html>", want: "環境にやさしい", encoding: "shift_jis"},
		{name: "meta tag", contentType: "text/html", body: `<html><head><meta charset="euc-jp"></head><body>` + "\xb4\xc4\xb6\xad" + `</body></html>`, want: "環境", encoding: "euc-jp"},
		{name: "utf-8", contentType: "text/html; charset=utf-8", body: "<p>環境</p>", want: "環境", encoding: "utf-8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			result, err := URL(context.Background(), server.URL, nil)
			require.NoError(t, err)
			assert.True(t, utf8.ValidString(result.HTML))
			assert.Contains(t, result.HTML, tt.want)
			assert.Equal(t, tt.encoding, result.Encoding)
			assert.Equal(t, []byte(tt.body), result.Body)
		})
	}
}

func TestURL_LeavesImagesUndecoded(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}))
	defer server.Close()

	result, err := URL(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, png, result.Body)
	assert.Empty(t, result.Encoding)
}

func TestURL_CustomHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ja", r.Header.Get("Accept-Language"))
	}))
	defer server.Close()

	opts := DefaultOptions()
	opts.Headers = map[string]string{"Accept-Language": "ja"}
	_, err := URL(context.Background(), server.URL, opts)
	require.NoError(t, err)
}

func TestShouldUseBrowser(t *testing.T) {
	assert.True(t, ShouldUseBrowser("   short   "))
	assert.False(t, ShouldUseBrowser(strings.Repeat("x", MinContentLength)))
}

func TestNewBrowserRenderer_DefaultTimeout(t *testing.T) {
	r := NewBrowserRenderer(0, nil)
	assert.Equal(t, DefaultTimeout, r.Timeout)
}
