package report

import "strings"

// EscapeMarkdown escapes characters that would otherwise start Markdown emphasis,
// code spans or links inside inline text.
// Special characters: \ ` * _ [ ] < > |
func EscapeMarkdown(text string) string {
	if text == "" {
		return ""
	}

	var result strings.Builder
	result.Grow(len(text) * 2)

	for _, r := range text {
		switch r {
		case '\\', '`', '*', '_', '[', ']', '<', '>', '|':
			result.WriteRune('\\')
			result.WriteRune(r)
		case '\n', '\r':
			result.WriteRune(' ')
		default:
			result.WriteRune(r)
		}
	}

	return result.String()
}
