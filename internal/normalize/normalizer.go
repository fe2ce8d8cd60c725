// Package normalize turns each supported content modality into an analysis request
// and runs it through the evaluation backend.
package normalize

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/climatewash/internal/extract"
	"github.com/jonathan/climatewash/internal/fetch"
	"github.com/jonathan/climatewash/internal/llm"
	"github.com/jonathan/climatewash/internal/media"
	"github.com/jonathan/climatewash/internal/prompts"
	"github.com/jonathan/climatewash/internal/types"
)

// MaxWebTextLength is the number of runes of page text sent to the model
const MaxWebTextLength = 5000

// Error messages used in the findings error shape
const (
	ErrWebFetch        = "web page fetch failed"
	ErrWebParse        = "web page parse failed"
	ErrUnsupportedMIME = "unsupported content type"
	ErrEmptyContent    = "content is empty"
)

// PageFetcher retrieves web pages and the images they reference
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (*fetch.Result, error)
	FetchImage(ctx context.Context, url string) (*fetch.Result, error)
}

// HTTPFetcher fetches over plain HTTP
type HTTPFetcher struct {
	PageOptions  *fetch.Options
	ImageOptions *fetch.Options
}

// NewHTTPFetcher returns a fetcher using the default page and image options
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{PageOptions: fetch.DefaultOptions(), ImageOptions: fetch.ImageOptions()}
}

// FetchPage implements PageFetcher
func (h *HTTPFetcher) FetchPage(ctx context.Context, url string) (*fetch.Result, error) {
	return fetch.URL(ctx, url, h.PageOptions)
}

// FetchImage implements PageFetcher
func (h *HTTPFetcher) FetchImage(ctx context.Context, url string) (*fetch.Result, error) {
	return fetch.URL(ctx, url, h.ImageOptions)
}

// Normalizer builds analysis requests for every modality.
// It holds no per-call state and is safe for concurrent use.
type Normalizer struct {
	backend      llm.Backend
	fetcher      PageFetcher
	renderer     fetch.Renderer
	logger       logrus.FieldLogger
	systemPrompt string
}

// Option configures a Normalizer
type Option func(*Normalizer)

// WithFetcher replaces the page fetcher
func WithFetcher(f PageFetcher) Option {
	return func(n *Normalizer) { n.fetcher = f }
}

// WithRenderer enables browser re-rendering of pages with too little text
func WithRenderer(r fetch.Renderer) Option {
	return func(n *Normalizer) { n.renderer = r }
}

// WithLogger sets the logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(n *Normalizer) { n.logger = l }
}

// WithSystemPrompt overrides the system prompt
func WithSystemPrompt(p string) Option {
	return func(n *Normalizer) { n.systemPrompt = p }
}

// New creates a Normalizer around backend
func New(backend llm.Backend, opts ...Option) *Normalizer {
	n := &Normalizer{
		backend:      backend,
		fetcher:      NewHTTPFetcher(),
		logger:       logrus.StandardLogger(),
		systemPrompt: prompts.System(llm.BuildResponseInstructions(llm.FindingsSchema())),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Text evaluates plain text verbatim
func (n *Normalizer) Text(ctx context.Context, text string, sections []string) types.RawFindings {
	if strings.TrimSpace(text) == "" {
		return types.ErrorFindings(ErrEmptyContent, "no text to analyze")
	}
	return n.dispatch(ctx, types.AnalysisRequest{
		ContentType:      types.ContentText,
		Text:             text,
		CriteriaSections: sections,
		UserPrompt:       prompts.Text(text, sections),
	})
}

// Transcript evaluates video narration verbatim. source labels where it came from.
func (n *Normalizer) Transcript(ctx context.Context, text, source string, sections []string) types.RawFindings {
	if strings.TrimSpace(text) == "" {
		return types.ErrorFindings(ErrEmptyContent, "no transcript text to analyze")
	}
	return n.dispatch(ctx, types.AnalysisRequest{
		ContentType:      types.ContentTranscript,
		Text:             text,
		CriteriaSections: sections,
		UserPrompt:       prompts.Transcript(text, source, sections),
	})
}

// Image evaluates image bytes with their detected MIME type
func (n *Normalizer) Image(ctx context.Context, data []byte, sections []string) types.RawFindings {
	if len(data) == 0 {
		return types.ErrorFindings(ErrEmptyContent, "no image data")
	}
	mime := media.Sniff(data)
	if !media.IsImage(mime) {
		return types.ErrorFindings(ErrUnsupportedMIME, (&media.UnsupportedTypeError{Detected: mime, Expected: media.SupportedImageTypes}).Error())
	}
	return n.dispatch(ctx, types.AnalysisRequest{
		ContentType:      types.ContentImage,
		Media:            &types.Media{Data: data, MIMEType: mime},
		CriteriaSections: sections,
		UserPrompt:       prompts.Image(sections),
	})
}

// Document evaluates PDF bytes
func (n *Normalizer) Document(ctx context.Context, name string, data []byte, sections []string) types.RawFindings {
	if len(data) == 0 {
		return types.ErrorFindings(ErrEmptyContent, "no document data")
	}
	mime := media.Sniff(data)
	if mime != media.MIMEPDF {
		return types.ErrorFindings(ErrUnsupportedMIME, (&media.UnsupportedTypeError{Detected: mime, Expected: []string{media.MIMEPDF}}).Error())
	}
	return n.dispatch(ctx, types.AnalysisRequest{
		ContentType:      types.ContentDocument,
		Media:            &types.Media{Data: data, MIMEType: mime},
		CriteriaSections: sections,
		UserPrompt:       prompts.Document(name, sections),
	})
}

// WebPage fetches url, evaluates its text and, when the page has images, its first image.
// Violations from the image are appended after the text violations.
// Failures in the image pass are logged and leave the text findings untouched.
func (n *Normalizer) WebPage(ctx context.Context, url string, sections []string) types.RawFindings {
	log := n.logger.WithField("url", url)

	res, err := n.fetcher.FetchPage(ctx, url)
	if err != nil {
		return types.ErrorFindings(ErrWebFetch, err.Error())
	}

	page, err := extract.Analyze(res.HTML, url)
	if err != nil {
		return types.ErrorFindings(ErrWebParse, err.Error())
	}
	page = n.maybeRender(ctx, url, page, log)

	text := types.TruncateRunes(page.Text, MaxWebTextLength)
	findings := n.dispatch(ctx, types.AnalysisRequest{
		ContentType:      types.ContentWebPage,
		Text:             text,
		CriteriaSections: sections,
		UserPrompt: prompts.WebPage(prompts.WebPageData{
			URL:           url,
			Text:          text,
			ImageCount:    len(page.ImageURLs),
			GreenElements: page.Colors.GreenElements,
			BlueElements:  page.Colors.BlueElements,
			EcoClasses:    page.Colors.EcoClasses,
		}, sections),
	})
	if findings.Failed() || len(page.ImageURLs) == 0 {
		return findings
	}

	imageURL := page.ImageURLs[0]
	imageFindings, ok := n.representativeImage(ctx, url, imageURL, sections, log.WithField("image_url", imageURL))
	if !ok {
		return findings
	}
	findings.Violations = append(findings.Violations, imageFindings.Violations...)
	return findings
}

func (n *Normalizer) representativeImage(ctx context.Context, pageURL, imageURL string, sections []string, log logrus.FieldLogger) (types.RawFindings, bool) {
	res, err := n.fetcher.FetchImage(ctx, imageURL)
	if err != nil {
		log.WithError(err).Warn("skipping page image: fetch failed")
		return types.RawFindings{}, false
	}
	mime := media.Sniff(res.Body)
	if !media.IsImage(mime) {
		log.WithField("mime_type", mime).Warn("skipping page image: unsupported type")
		return types.RawFindings{}, false
	}

	findings := n.dispatch(ctx, types.AnalysisRequest{
		ContentType:      types.ContentImage,
		Media:            &types.Media{Data: res.Body, MIMEType: mime},
		CriteriaSections: sections,
		UserPrompt:       prompts.WebPageImage(pageURL, sections),
	})
	if findings.Failed() {
		log.WithField("error", findings.Err.Error()).Warn("skipping page image: analysis failed")
		return types.RawFindings{}, false
	}
	return findings, true
}

// maybeRender re-renders script-heavy pages in a browser when a renderer is configured
func (n *Normalizer) maybeRender(ctx context.Context, url string, page *extract.Page, log logrus.FieldLogger) *extract.Page {
	if n.renderer == nil || !fetch.ShouldUseBrowser(page.Text) {
		return page
	}
	html, err := n.renderer.Render(ctx, url)
	if err != nil {
		log.WithError(err).Warn("browser rendering failed, using plain HTTP content")
		return page
	}
	rendered, err := extract.Analyze(html, url)
	if err != nil || len(rendered.Text) <= len(page.Text) {
		return page
	}
	log.WithField("text_length", len(rendered.Text)).Debug("using browser rendered content")
	return rendered
}

// dispatch sends a request to exactly one backend operation
func (n *Normalizer) dispatch(ctx context.Context, req types.AnalysisRequest) types.RawFindings {
	system := req.SystemPrompt
	if system == "" {
		system = n.systemPrompt
	}
	if req.Media != nil {
		return n.backend.AnalyzeImage(ctx, system, req.UserPrompt, *req.Media)
	}
	return n.backend.AnalyzeText(ctx, system, req.UserPrompt)
}
