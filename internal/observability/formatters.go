// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/climatewash/internal/criteria"
	"github.com/jonathan/climatewash/internal/extract"
	"github.com/jonathan/climatewash/internal/history"
	"github.com/jonathan/climatewash/internal/media"
	"github.com/jonathan/climatewash/internal/transcript"
	"github.com/jonathan/climatewash/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "..."
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-3]) + "..."
}

// PrintResult outputs the score, risk and findings of one diagnosis.
func (p *Printer) PrintResult(result types.EvaluationResult) {
	var sb strings.Builder

	if !result.Success {
		sb.WriteString(fmt.Sprintf("Error:    %s\n", result.Error))
		if result.Details != "" {
			sb.WriteString(fmt.Sprintf("Details:  %s\n", result.Details))
		}
		p.printBox("DIAGNOSIS FAILED", strings.TrimSuffix(sb.String(), "\n"))
		return
	}

	sb.WriteString(fmt.Sprintf("Score:    %d / 100\n", result.Score))
	sb.WriteString(fmt.Sprintf("Risk:     %s", result.OverallRisk))
	if result.RiskInfo != nil && result.RiskInfo.Color != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", result.RiskInfo.Color))
	}
	sb.WriteString("\n")
	if result.Version != "" {
		sb.WriteString(fmt.Sprintf("Criteria: %s, %s\n", result.Version, result.Directives))
	}
	if result.Source != "" {
		sb.WriteString(fmt.Sprintf("Source:   %s\n", result.Source))
	}
	sb.WriteString("\n")

	if len(result.Violations) == 0 {
		sb.WriteString("✅ No violations found\n")
	} else {
		sb.WriteString(fmt.Sprintf("Violations (%d):\n", len(result.Violations)))
		count := min(len(result.Violations), maxItemsToShow)
		for i := 0; i < count; i++ {
			v := result.Violations[i]
			sb.WriteString(fmt.Sprintf("  ⚠ %s %s  -%d\n", v.Category, v.CategoryName, v.PointsDeducted))
			if v.Evidence != "" {
				sb.WriteString(fmt.Sprintf("    \"%s\"\n", v.Evidence))
			}
		}
		if len(result.Violations) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(result.Violations)-maxItemsToShow))
		}
	}

	if len(result.Recommendations) > 0 {
		sb.WriteString("\nRecommendations:\n")
		count := min(len(result.Recommendations), 3)
		for i := 0; i < count; i++ {
			r := result.Recommendations[i]
			sb.WriteString(fmt.Sprintf("  • %s -> %s\n", r.CurrentExpression, r.RecommendedExpression))
		}
		if len(result.Recommendations) > 3 {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(result.Recommendations)-3))
		}
	}

	if result.Summary != "" {
		sb.WriteString("\n" + result.Summary + "\n")
	}

	p.printBox("GREENWASHING DIAGNOSIS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintTranscript outputs the outcome of a transcript acquisition, one line per attempted tier.
func (p *Printer) PrintTranscript(source string, outcome transcript.Outcome) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Source:   %s\n", source))
	if outcome.OK {
		sb.WriteString(fmt.Sprintf("Tier:     %s\n", outcome.Tier))
		sb.WriteString(fmt.Sprintf("Length:   %d characters\n", utf8.RuneCountInString(outcome.Text)))
	} else {
		sb.WriteString(fmt.Sprintf("Reason:   %s\n", outcome.Reason))
	}

	if len(outcome.Attempts) > 0 {
		sb.WriteString("\nAttempts:\n")
		for _, a := range outcome.Attempts {
			if a.OK() {
				sb.WriteString(fmt.Sprintf("  ✓ %s\n", a.Tier))
				continue
			}
			sb.WriteString(fmt.Sprintf("  ✗ %s: %s\n", a.Tier, a.Failure))
		}
	}

	p.printBox("TRANSCRIPT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintStats outputs history totals.
func (p *Printer) PrintStats(stats history.Stats) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Diagnoses:      %d\n", stats.Total))
	sb.WriteString(fmt.Sprintf("Average score:  %.1f\n", stats.AverageScore))
	sb.WriteString(fmt.Sprintf("High risk:      %d\n", stats.HighRiskCount))
	if stats.MostCommonType != "" {
		sb.WriteString(fmt.Sprintf("Most common:    %s\n", stats.MostCommonType.Label()))
	}
	p.printBox("SESSION STATS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintPageInfo outputs basic web page metadata.
func (p *Printer) PrintPageInfo(info *extract.PageInfo) {
	if info == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("URL:          %s\n", info.URL))
	sb.WriteString(fmt.Sprintf("Title:        %s\n", info.Title))
	if info.Description != "" {
		sb.WriteString(fmt.Sprintf("Description:  %s\n", info.Description))
	}
	if info.Keywords != "" {
		sb.WriteString(fmt.Sprintf("Keywords:     %s\n", info.Keywords))
	}
	sb.WriteString(fmt.Sprintf("Text length:  %d\n", info.TextLength))
	sb.WriteString(fmt.Sprintf("Images:       %d", info.ImageCount))

	p.printBox("WEB PAGE INFO", sb.String())
}

// PrintMediaInfo outputs metadata of an uploaded image or PDF.
func (p *Printer) PrintMediaInfo(name string, info *media.Info) {
	if info == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("File:    %s\n", name))
	sb.WriteString(fmt.Sprintf("Format:  %s\n", info.Format))
	if info.Width > 0 {
		sb.WriteString(fmt.Sprintf("Size:    %d x %d px\n", info.Width, info.Height))
	}
	if info.Pages > 0 {
		sb.WriteString(fmt.Sprintf("Pages:   %d\n", info.Pages))
	}
	sb.WriteString(fmt.Sprintf("Bytes:   %.1f KB", info.SizeKB))

	p.printBox("FILE INFO", sb.String())
}

// PrintCriteria outputs the configured versions, directives and risk tiers.
func (p *Printer) PrintCriteria(c *criteria.Criteria) {
	if c == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString("Versions:\n")
	for _, id := range c.VersionIDs() {
		marker := " "
		if id == c.DefaultVersion {
			marker = "*"
		}
		sb.WriteString(fmt.Sprintf(" %s %s  %s (%d sections)\n", marker, id, c.Versions[id].Name, len(c.Versions[id].Sections)))
	}

	sb.WriteString("\nDirectives:\n")
	sb.WriteString(fmt.Sprintf("  %s (%d sections)\n", c.Directives.Empowerment.Label, len(c.Directives.Empowerment.Sections)))
	sb.WriteString(fmt.Sprintf("  %s (%d sections)\n", c.Directives.GreenClaims.Label, len(c.Directives.GreenClaims.Sections)))

	sb.WriteString("\nRisk levels:\n")
	for _, level := range c.Table().Levels() {
		sb.WriteString(fmt.Sprintf("  %3d-%-3d %s (%s)\n", level.Min, level.Max, level.Label, level.Color))
	}

	p.printBox("DIAGNOSIS CRITERIA", strings.TrimSuffix(sb.String(), "\n"))
}
