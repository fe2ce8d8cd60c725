// Package extract pulls the parts of a web page that matter for a diagnosis out of its HTML:
// visible text, image URLs, eco-flavored styling and basic metadata.
package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// MaxImages is the maximum number of image URLs extracted from a page
const MaxImages = 10

// Page is the extracted content of one HTML document
type Page struct {
	Text      string
	ImageURLs []string
	Colors    ColorCounts
}

// Analyze parses htmlContent once and extracts text, images and color counts.
// Relative image URLs are resolved against baseURL.
func Analyze(htmlContent, baseURL string) (*Page, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(htmlContent)
	if err != nil {
		return nil, err
	}

	return &Page{
		// visibleText mutates doc, so it runs last
		Colors:    countColors(doc),
		ImageURLs: imageURLs(doc, base, MaxImages),
		Text:      visibleText(doc),
	}, nil
}

// VisibleText returns the page text with scripts and styles removed,
// each line trimmed and blank lines dropped.
func VisibleText(htmlContent string) (string, error) {
	doc, err := parseDocument(htmlContent)
	if err != nil {
		return "", err
	}
	return visibleText(doc), nil
}

// ImageURLs returns up to limit absolute image URLs in document order
func ImageURLs(htmlContent, baseURL string, limit int) ([]string, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(htmlContent)
	if err != nil {
		return nil, err
	}
	return imageURLs(doc, base, limit), nil
}

func parseDocument(htmlContent string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, &ParseError{Message: "failed to parse HTML", Cause: err}
	}
	return doc, nil
}

func parseBaseURL(baseURL string) (*url.URL, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, &ParseError{Message: "failed to parse base URL", Cause: err}
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, &ParseError{Message: "invalid base URL " + baseURL + " (must have scheme and host)"}
	}
	return base, nil
}

// visibleText removes script and style elements from doc and collects the remaining text nodes
func visibleText(doc *goquery.Document) string {
	doc.Find("script, style").Remove()

	var parts []string
	for _, node := range doc.Nodes {
		collectText(node, &parts)
	}

	var lines []string
	for _, part := range parts {
		for _, line := range strings.Split(part, "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				lines = append(lines, line)
			}
		}
	}
	return strings.Join(lines, "\n")
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		*parts = append(*parts, n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

func imageURLs(doc *goquery.Document, base *url.URL, limit int) []string {
	images := make([]string, 0)
	doc.Find("img[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if limit > 0 && len(images) >= limit {
			return false
		}
		src, _ := s.Attr("src")
		src = strings.TrimSpace(src)
		if src == "" {
			return true
		}
		ref, err := url.Parse(src)
		if err != nil {
			// Skip malformed URLs
			return true
		}
		images = append(images, base.ResolveReference(ref).String())
		return true
	})
	return images
}
