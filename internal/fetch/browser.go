// Package fetch - browser.go provides headless browser rendering for script-rendered pages.
package fetch

import (
	"context"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// MinContentLength is the minimum extracted text length to consider HTTP fetch successful.
// If content is shorter, the page is re-rendered in a browser when enabled.
const MinContentLength = 500

// ShouldUseBrowser returns true if the extracted text is too short,
// indicating the page is likely a JavaScript-rendered SPA.
func ShouldUseBrowser(extractedText string) bool {
	return len(strings.TrimSpace(extractedText)) < MinContentLength
}

// Renderer renders a page and returns its final HTML
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// BrowserRenderer renders pages with headless Chrome.
// Requires Chrome/Chromium to be installed on the system.
type BrowserRenderer struct {
	Timeout time.Duration
	Logger  logrus.FieldLogger
}

// NewBrowserRenderer returns a renderer with the given timeout
func NewBrowserRenderer(timeout time.Duration, logger logrus.FieldLogger) *BrowserRenderer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &BrowserRenderer{Timeout: timeout, Logger: logger}
}

// Render navigates to url and returns the rendered HTML.
func (b *BrowserRenderer) Render(ctx context.Context, url string) (string, error) {
	log := b.Logger.WithField("url", url)
	log.Debug("starting headless browser")

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(DefaultUserAgent),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, b.Timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		// give client side rendering a chance to finish
		chromedp.Sleep(3*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", &Error{URL: url, Message: "browser rendering failed", Cause: err}
	}

	log.WithField("bytes", len(html)).Debug("rendered page")
	return html, nil
}

var _ Renderer = (*BrowserRenderer)(nil)
