package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/climatewash/internal/types"
)

// Row layout limits
const (
	MaxFieldLength         = 500
	MaxViolationItems      = 5
	MaxRecommendationItems = 3
	TimestampLayout        = "2006-01-02 15:04:05"
	emptyList              = "none"
	unknownValue           = "unknown"
	itemSeparator          = " | "
)

// 1-based columns whose values the exporter generates itself rather than copying from content
const (
	ColumnTimestamp      = 1
	ColumnScore          = 7
	ColumnViolationCount = 8
)

// Generated reports whether col holds a value built by the exporter (timestamp or number).
// Every other column carries user or model text.
func Generated(col int) bool {
	return col == ColumnTimestamp || col == ColumnScore || col == ColumnViolationCount
}

// Header is the fixed first row of a destination sheet
var Header = []string{
	"Diagnosis Time",
	"Content Type",
	"Content",
	"Directives",
	"Criteria Version",
	"Overall Risk",
	"Score",
	"Violation Count",
	"Violations",
	"Recommendations",
	"Summary",
}

// BuildRow flattens a result into the 11 export cells
func BuildRow(result types.EvaluationResult, at time.Time) []string {
	return []string{
		at.Format(TimestampLayout),
		orUnknown(string(result.ContentType)),
		types.TruncateRunes(result.ContentSample, MaxFieldLength),
		orUnknown(result.Directives),
		orUnknown(result.Version),
		orUnknown(result.OverallRisk),
		strconv.Itoa(result.Score),
		strconv.Itoa(len(result.Violations)),
		FormatViolations(result.Violations),
		FormatRecommendations(result.Recommendations),
		types.TruncateRunes(result.Summary, MaxFieldLength),
	}
}

// FormatViolations summarizes the first violations on one line
func FormatViolations(violations []types.Violation) string {
	if len(violations) == 0 {
		return emptyList
	}
	n := min(len(violations), MaxViolationItems)
	parts := make([]string, 0, n+1)
	for _, v := range violations[:n] {
		parts = append(parts, fmt.Sprintf("[%s] %s: %s (deducted: %d)", v.Category, v.CategoryName, v.Description, v.PointsDeducted))
	}
	if len(violations) > n {
		parts = append(parts, fmt.Sprintf("...and %d more", len(violations)-n))
	}
	return strings.Join(parts, itemSeparator)
}

// FormatRecommendations summarizes the first recommendations on one line
func FormatRecommendations(recommendations []types.Recommendation) string {
	if len(recommendations) == 0 {
		return emptyList
	}
	n := min(len(recommendations), MaxRecommendationItems)
	parts := make([]string, 0, n+1)
	for _, r := range recommendations[:n] {
		parts = append(parts, fmt.Sprintf("%s: %s -> %s", r.Issue, r.CurrentExpression, r.RecommendedExpression))
	}
	if len(recommendations) > n {
		parts = append(parts, fmt.Sprintf("...and %d more", len(recommendations)-n))
	}
	return strings.Join(parts, itemSeparator)
}

func orUnknown(s string) string {
	if s == "" {
		return unknownValue
	}
	return s
}
