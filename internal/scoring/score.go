// Package scoring turns raw backend findings into a scored, classified result.
package scoring

import (
	"math"

	"github.com/jonathan/climatewash/internal/criteria"
	"github.com/jonathan/climatewash/internal/types"
)

// BaseScore is the score of content with no violations
const BaseScore = 100

// CalculateScore returns 100 minus the sum of deductions, clamped to [0, 100].
// Individual deductions are not validated; the sum saturates instead of overflowing.
func CalculateScore(violations []types.Violation) int {
	total := 0
	for _, v := range violations {
		total = saturatingAdd(total, v.PointsDeducted)
	}
	switch {
	case total >= BaseScore:
		return 0
	case total <= 0:
		return BaseScore
	}
	return BaseScore - total
}

func saturatingAdd(a, b int) int {
	if b > 0 && a > math.MaxInt-b {
		return math.MaxInt
	}
	if b < 0 && a < math.MinInt-b {
		return math.MinInt
	}
	return a + b
}

// Evaluate scores and classifies raw findings.
// It has no side effects and returns identical results for identical input.
func Evaluate(raw types.RawFindings, table *criteria.Table) types.EvaluationResult {
	if raw.Err != nil {
		return errorResult(raw.Err)
	}

	violations := append([]types.Violation{}, raw.Violations...)
	recommendations := append([]types.Recommendation{}, raw.Recommendations...)

	score := CalculateScore(violations)
	level := table.Classify(score)

	return types.EvaluationResult{
		Success:         true,
		OverallRisk:     level.Label,
		RiskInfo:        &level,
		Score:           score,
		Violations:      violations,
		Recommendations: recommendations,
		Summary:         raw.Summary,
	}
}

func errorResult(e *types.FindingsError) types.EvaluationResult {
	message := e.Message
	if message == "" {
		message = "unknown error"
	}
	return types.EvaluationResult{
		Success:         false,
		OverallRisk:     types.ErrorRisk,
		Score:           0,
		Violations:      []types.Violation{},
		Recommendations: []types.Recommendation{},
		Summary:         "An error occurred: " + message,
		Error:           message,
		Details:         e.Details,
	}
}
