package report

import (
	_ "embed"
	"strings"
	"text/template"
	"time"

	"github.com/jonathan/climatewash/internal/types"
)

// TimeLayout formats the report generation time
const TimeLayout = "2006-01-02 15:04:05"

//go:embed report.md.tmpl
var markdownTemplate string

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"escape": EscapeMarkdown,
	"inc":    func(i int) int { return i + 1 },
}).Parse(markdownTemplate))

// TemplateData is passed to the report template
type TemplateData struct {
	GeneratedAt string
	Result      types.EvaluationResult
}

// Markdown renders result as a Markdown report
func Markdown(result types.EvaluationResult, generatedAt time.Time) (string, error) {
	data := TemplateData{
		GeneratedAt: generatedAt.Format(TimeLayout),
		Result:      result,
	}

	var sb strings.Builder
	if err := reportTemplate.Execute(&sb, data); err != nil {
		return "", &TemplateError{
			Message: "failed to execute report template",
			Cause:   err,
		}
	}
	return sb.String(), nil
}
