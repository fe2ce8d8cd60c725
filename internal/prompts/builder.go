package prompts

import (
	"strconv"
	"strings"
)

// WebPageData is the extracted page content shown to the model
type WebPageData struct {
	URL           string
	Text          string
	ImageCount    int
	GreenElements int
	BlueElements  int
	EcoClasses    int
}

// System returns the system prompt followed by the response format instructions
func System(responseFormat string) string {
	base := MustTemplate("system")
	if responseFormat == "" {
		return base
	}
	return base + "\n\n" + responseFormat
}

// Text builds the user prompt for plain text content
func Text(content string, criteria []string) string {
	return Format(MustTemplate("text"), map[string]string{
		"Content":  content,
		"Criteria": joinCriteria(criteria),
	})
}

// Image builds the user prompt for an attached image
func Image(criteria []string) string {
	return Format(MustTemplate("image"), map[string]string{
		"Criteria": joinCriteria(criteria),
	})
}

// Document builds the user prompt for an attached PDF
func Document(name string, criteria []string) string {
	return Format(MustTemplate("document"), map[string]string{
		"Name":     name,
		"Criteria": joinCriteria(criteria),
	})
}

// WebPage builds the user prompt for extracted page content
func WebPage(data WebPageData, criteria []string) string {
	return Format(MustTemplate("web_page"), map[string]string{
		"URL":           data.URL,
		"Text":          data.Text,
		"ImageCount":    strconv.Itoa(data.ImageCount),
		"GreenElements": strconv.Itoa(data.GreenElements),
		"BlueElements":  strconv.Itoa(data.BlueElements),
		"EcoClasses":    strconv.Itoa(data.EcoClasses),
		"Criteria":      joinCriteria(criteria),
	})
}

// WebPageImage builds the user prompt for the representative image of a page
func WebPageImage(url string, criteria []string) string {
	return Format(MustTemplate("web_page_image"), map[string]string{
		"URL":      url,
		"Criteria": joinCriteria(criteria),
	})
}

// Transcript builds the user prompt for video narration.
// source is optional and is appended to the heading when present.
func Transcript(content, source string, criteria []string) string {
	if source != "" {
		source = " from " + source
	}
	return Format(MustTemplate("transcript"), map[string]string{
		"Content":  content,
		"Source":   source,
		"Criteria": joinCriteria(criteria),
	})
}

func joinCriteria(criteria []string) string {
	if len(criteria) == 0 {
		return "(none)"
	}
	return strings.Join(criteria, ", ")
}
