// Package fetch provides URL fetching for web pages and the images they reference.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// DefaultTimeout is the default HTTP request timeout for pages.
const DefaultTimeout = 30 * time.Second

// ImageTimeout is the timeout for fetching a single image.
const ImageTimeout = 10 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// DefaultMaxBodyBytes caps the amount of data read from a response.
const DefaultMaxBodyBytes int64 = 20 << 20

// Result holds the raw content from a URL fetch.
type Result struct {
	URL  string
	HTML string // Body decoded to UTF-8 for textual responses
	Body []byte
	// Encoding is the charset the page was decoded from, empty for non-text responses
	Encoding    string
	ContentType string
	StatusCode  int
}

// Error represents an error during URL fetching.
type Error struct {
	URL        string
	Message    string
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures the fetch behavior.
type Options struct {
	Timeout      time.Duration
	UserAgent    string
	Headers      map[string]string
	MaxBodyBytes int64
	// OnlyStatusOK rejects every status other than 200; otherwise any 2xx is accepted.
	OnlyStatusOK bool
}

// DefaultOptions returns the options used for page fetches.
func DefaultOptions() *Options {
	return &Options{
		Timeout:      DefaultTimeout,
		UserAgent:    DefaultUserAgent,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// ImageOptions returns the options used for secondary image fetches.
func ImageOptions() *Options {
	return &Options{
		Timeout:      ImageTimeout,
		UserAgent:    DefaultUserAgent,
		MaxBodyBytes: DefaultMaxBodyBytes,
		OnlyStatusOK: true,
	}
}

// ValidateURL checks that urlStr is an absolute http(s) URL.
func ValidateURL(urlStr string) (*url.URL, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Host == "" || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") {
		return nil, &Error{
			URL:     urlStr,
			Message: "invalid URL (must start with http:// or https://)",
			Cause:   err,
		}
	}
	return parsedURL, nil
}

// URL retrieves content from a URL.
// On a rejected status the result is returned together with the error.
func URL(ctx context.Context, urlStr string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	if _, err := ValidateURL(urlStr); err != nil {
		return nil, err
	}

	client := &http.Client{
		Timeout: opts.Timeout,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "failed to create request",
			Cause:   err,
		}
	}

	if opts.UserAgent != "" {
		req.Header.Set("User-Agent", opts.UserAgent)
	}
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "HTTP request failed",
			Cause:   err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	var body io.Reader = resp.Body
	if opts.MaxBodyBytes > 0 {
		body = io.LimitReader(resp.Body, opts.MaxBodyBytes)
	}
	bodyBytes, err := io.ReadAll(body)
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "failed to read response body",
			Cause:   err,
		}
	}

	contentType := resp.Header.Get("Content-Type")
	result := &Result{
		URL:         urlStr,
		HTML:        string(bodyBytes),
		Body:        bodyBytes,
		ContentType: contentType,
		StatusCode:  resp.StatusCode,
	}
	if isText(contentType) {
		result.HTML, result.Encoding = decodeText(bodyBytes, contentType)
	}

	if !statusAccepted(resp.StatusCode, opts.OnlyStatusOK) {
		return result, &Error{
			URL:        urlStr,
			Message:    fmt.Sprintf("HTTP status %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}

	return result, nil
}

func isText(contentType string) bool {
	ct := strings.ToLower(contentType)
	return ct == "" || strings.HasPrefix(ct, "text/") || strings.Contains(ct, "html") || strings.Contains(ct, "xml")
}

// decodeText converts body to UTF-8 using the declared charset, a <meta> charset, or sniffing.
// Undecodable input is returned as is.
func decodeText(body []byte, contentType string) (string, string) {
	enc, name, _ := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" {
		return string(body), name
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body), name
	}
	return string(decoded), name
}

func statusAccepted(code int, onlyOK bool) bool {
	if onlyOK {
		return code == http.StatusOK
	}
	return code >= 200 && code < 300
}
