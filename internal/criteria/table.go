package criteria

import (
	"fmt"
	"sort"

	"github.com/jonathan/climatewash/internal/types"
)

const (
	minScore = 0
	maxScore = 100
)

// Table maps scores to risk tiers.
// Tiers are inclusive integer ranges that partition [0,100], so every boundary
// score belongs to exactly the tier whose range names it.
type Table struct {
	levels []types.RiskLevel
}

// NewTable validates that levels partition [0,100] without gaps or overlaps
func NewTable(levels []types.RiskLevel) (*Table, error) {
	if len(levels) == 0 {
		return nil, &ValidationError{Field: "risk_levels", Message: "at least one risk level is required"}
	}

	sorted := make([]types.RiskLevel, len(levels))
	copy(sorted, levels)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })

	seen := make(map[string]bool, len(sorted))
	next := minScore
	for _, level := range sorted {
		if level.ID == "" || level.Label == "" {
			return nil, &ValidationError{Field: "risk_levels", Message: "risk level id and label are required"}
		}
		if seen[level.ID] {
			return nil, &ValidationError{Field: "risk_levels", Message: fmt.Sprintf("duplicate risk level %q", level.ID)}
		}
		seen[level.ID] = true

		if level.Min > level.Max {
			return nil, &ValidationError{Field: "risk_levels", Message: fmt.Sprintf("risk level %q has min %d above max %d", level.ID, level.Min, level.Max)}
		}
		if level.Min < next {
			return nil, &ValidationError{Field: "risk_levels", Message: fmt.Sprintf("risk level %q overlaps at score %d", level.ID, level.Min)}
		}
		if level.Min > next {
			return nil, &ValidationError{Field: "risk_levels", Message: fmt.Sprintf("scores %d-%d are not covered", next, level.Min-1)}
		}
		next = level.Max + 1
	}
	if next != maxScore+1 {
		return nil, &ValidationError{Field: "risk_levels", Message: fmt.Sprintf("scores must be covered up to %d, last tier ends at %d", maxScore, next-1)}
	}

	return &Table{levels: sorted}, nil
}

// Classify returns the tier containing score.
// Scores outside [0,100] are clamped first.
func (t *Table) Classify(score int) types.RiskLevel {
	if score < minScore {
		score = minScore
	}
	if score > maxScore {
		score = maxScore
	}
	for _, level := range t.levels {
		if level.Contains(score) {
			return level
		}
	}
	// unreachable for a validated table
	return t.levels[0]
}

// Levels returns the tiers ordered from lowest to highest score
func (t *Table) Levels() []types.RiskLevel {
	out := make([]types.RiskLevel, len(t.levels))
	copy(out, t.levels)
	return out
}

// HighestRisk returns the tier covering the lowest scores
func (t *Table) HighestRisk() types.RiskLevel {
	return t.levels[0]
}
