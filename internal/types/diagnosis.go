// Package types provides type definitions for structured data used throughout the climatewash system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// ContentType identifies the modality of the content under diagnosis
type ContentType string

const (
	ContentText       ContentType = "text"
	ContentImage      ContentType = "image"
	ContentDocument   ContentType = "document"
	ContentWebPage    ContentType = "web_page"
	ContentTranscript ContentType = "transcript"
)

// AllContentTypes lists every supported modality in display order
var AllContentTypes = []ContentType{
	ContentText,
	ContentImage,
	ContentDocument,
	ContentWebPage,
	ContentTranscript,
}

// Label returns the human readable name used in exports and history
func (c ContentType) Label() string {
	switch c {
	case ContentText:
		return "Text"
	case ContentImage:
		return "Image"
	case ContentDocument:
		return "PDF document"
	case ContentWebPage:
		return "Web page"
	case ContentTranscript:
		return "Video script (captions/transcription)"
	default:
		return string(c)
	}
}

// Valid reports whether c is one of the supported modalities
func (c ContentType) Valid() bool {
	for _, known := range AllContentTypes {
		if c == known {
			return true
		}
	}
	return false
}

// Media is binary content handed to the evaluation backend
type Media struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mime_type"`
}

// IsPDF reports whether the media should be sent as a document rather than an image
func (m Media) IsPDF() bool {
	return m.MIMEType == "application/pdf"
}

// AnalysisRequest is the normalized input for a single backend call.
// It is built per diagnosis and discarded after the call returns.
type AnalysisRequest struct {
	ContentType      ContentType `json:"content_type"`
	Text             string      `json:"text,omitempty"`
	Media            *Media      `json:"media,omitempty"`
	CriteriaSections []string    `json:"criteria_sections"`
	SystemPrompt     string      `json:"-"`
	UserPrompt       string      `json:"-"`
}

// Violation is one detected problem reported by the evaluation backend.
// Fields come from untrusted model output; missing values stay at their zero value.
type Violation struct {
	Category       string `json:"category" mapstructure:"category"`
	CategoryName   string `json:"category_name" mapstructure:"category_name"`
	RiskLevel      string `json:"risk_level" mapstructure:"risk_level"`
	PointsDeducted int    `json:"points_deducted" mapstructure:"points_deducted"`
	Description    string `json:"description" mapstructure:"description"`
	Evidence       string `json:"evidence" mapstructure:"evidence"`
}

// Recommendation is a suggested rewrite for a problematic expression
type Recommendation struct {
	Issue                 string `json:"issue" mapstructure:"issue"`
	CurrentExpression     string `json:"current_expression" mapstructure:"current_expression"`
	RecommendedExpression string `json:"recommended_expression" mapstructure:"recommended_expression"`
	Explanation           string `json:"explanation" mapstructure:"explanation"`
}

// FindingsError is the error shape produced in place of findings
type FindingsError struct {
	Message string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (e *FindingsError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// RawFindings is the unscored output of the evaluation backend.
// When Err is set the other fields carry no meaning.
type RawFindings struct {
	Violations      []Violation      `json:"violations"`
	Recommendations []Recommendation `json:"recommendations"`
	Summary         string           `json:"summary"`
	Err             *FindingsError   `json:"-"`
}

// ErrorFindings builds the error shape
func ErrorFindings(message, details string) RawFindings {
	return RawFindings{Err: &FindingsError{Message: message, Details: details}}
}

// Failed reports whether the findings are the error shape
func (f RawFindings) Failed() bool {
	return f.Err != nil
}
