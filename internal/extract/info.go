package extract

import (
	"strings"
	"unicode/utf8"
)

// NoTitle is reported for pages without a title element
const NoTitle = "No title"

// PageInfo is basic metadata about a web page
type PageInfo struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Keywords    string `json:"keywords"`
	TextLength  int    `json:"text_length"`
	ImageCount  int    `json:"image_count"`
}

// Info extracts title, meta description, meta keywords, text length and image count
func Info(htmlContent, pageURL string) (*PageInfo, error) {
	base, err := parseBaseURL(pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(htmlContent)
	if err != nil {
		return nil, err
	}

	info := &PageInfo{URL: pageURL, Title: NoTitle}
	if title := doc.Find("title").First(); title.Length() > 0 {
		info.Title = strings.TrimSpace(title.Text())
	}
	info.Description = doc.Find(`meta[name="description"]`).First().AttrOr("content", "")
	info.Keywords = doc.Find(`meta[name="keywords"]`).First().AttrOr("content", "")
	info.ImageCount = len(imageURLs(doc, base, MaxImages))
	info.TextLength = utf8.RuneCountInString(visibleText(doc))

	return info, nil
}
