package types

// ErrorRisk is the overall risk reported for failed diagnoses
const ErrorRisk = "error"

// ContentSampleLength is the number of runes kept from text content for history and export
const ContentSampleLength = 200

// RiskLevel is one tier of the configured classification table.
// Min and Max are inclusive score bounds.
type RiskLevel struct {
	ID          string `json:"id" yaml:"id"`
	Label       string `json:"label" yaml:"label"`
	Color       string `json:"color" yaml:"color"`
	Description string `json:"description" yaml:"description"`
	Min         int    `json:"min" yaml:"min"`
	Max         int    `json:"max" yaml:"max"`
}

// Contains reports whether score falls inside the tier
func (r RiskLevel) Contains(score int) bool {
	return score >= r.Min && score <= r.Max
}

// EvaluationResult is the scored, classified output of one diagnosis
type EvaluationResult struct {
	Success         bool             `json:"success"`
	OverallRisk     string           `json:"overall_risk"`
	RiskInfo        *RiskLevel       `json:"risk_info,omitempty"`
	Score           int              `json:"score"`
	Violations      []Violation      `json:"violations"`
	Recommendations []Recommendation `json:"recommendations"`
	Summary         string           `json:"summary"`
	Error           string           `json:"error,omitempty"`
	Details         string           `json:"details,omitempty"`

	ContentType   ContentType `json:"content_type,omitempty"`
	Version       string      `json:"version,omitempty"`
	Directives    string      `json:"directives,omitempty"`
	ContentSample string      `json:"content_sample,omitempty"`
	Source        string      `json:"source,omitempty"`
}

// DiagnosisContext is metadata attached to a result after scoring
type DiagnosisContext struct {
	ContentType   ContentType
	Version       string
	Directives    string
	ContentSample string
	Source        string
}

// WithContext returns a copy of r carrying the diagnosis metadata.
// The receiver is left untouched.
func (r EvaluationResult) WithContext(c DiagnosisContext) EvaluationResult {
	out := r
	out.Violations = append([]Violation{}, r.Violations...)
	out.Recommendations = append([]Recommendation{}, r.Recommendations...)
	if r.RiskInfo != nil {
		info := *r.RiskInfo
		out.RiskInfo = &info
	}
	out.ContentType = c.ContentType
	out.Version = c.Version
	out.Directives = c.Directives
	out.ContentSample = c.ContentSample
	out.Source = c.Source
	return out
}

// SampleText returns the first ContentSampleLength runes of text
func SampleText(text string) string {
	return TruncateRunes(text, ContentSampleLength)
}

// TruncateRunes cuts s to at most n runes without splitting a multi-byte character
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
