package report

import (
	"encoding/json"
	"time"

	"github.com/jonathan/climatewash/internal/schemas"
	"github.com/jonathan/climatewash/internal/types"
)

const fileTimeLayout = "20060102_150405"

// JSON encodes result for download and validates it against the result schema
func JSON(result types.EvaluationResult) ([]byte, error) {
	if result.Violations == nil {
		result.Violations = []types.Violation{}
	}
	if result.Recommendations == nil {
		result.Recommendations = []types.Recommendation{}
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, &RenderError{Message: "failed to encode result", Cause: err}
	}
	if err := schemas.ValidateResult(data); err != nil {
		return nil, &RenderError{Message: "encoded result does not match the result schema", Cause: err}
	}
	return data, nil
}

// JSONFilename is the download name of a JSON result created at t
func JSONFilename(t time.Time) string {
	return "climatewash_result_" + t.Format(fileTimeLayout) + ".json"
}

// MarkdownFilename is the download name of a Markdown report created at t
func MarkdownFilename(t time.Time) string {
	return "climatewash_report_" + t.Format(fileTimeLayout) + ".md"
}
