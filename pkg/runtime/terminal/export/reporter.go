package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/template"

	"github.com/de-tools/autofixer/pkg/models/domain"
)

type TableConfig struct {
	SeverityWidth    int
	IDWidth          int
	CategoryWidth    int
	ResourceWidth    int
	DescriptionWidth int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		SeverityWidth:    8,
		IDWidth:          20,
		CategoryWidth:    14,
		ResourceWidth:    28,
		DescriptionWidth: 54,
	}
}

type Reporter struct {
	writer    io.Writer
	config    TableConfig
	templates *template.Template
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	r := &Reporter{
		writer: writer,
		config: DefaultTableConfig(),
	}
	r.templates = template.Must(template.New("reports").Funcs(r.funcMap()).Parse(reportTemplates))
	return r
}

const reportTemplates = `
{{define "issues"}}
{{if not .}}No issues detected.
{{else}}{{separator}}
{{formatRow "Severity" "Issue" "Category" "Resource" "Description"}}
{{separator}}
{{range .}}{{formatRow (print .Severity) .ID .Category .AffectedResource .Description}}
{{end}}{{separator}}
{{len .}} issue(s) detected.
{{end}}{{end}}

{{define "proposal"}}
Fix proposal for {{.IssueID}}{{if .EstimatedImpact}} (estimated impact: {{.EstimatedImpact}}){{end}}

{{.Explanation}}
{{if not .OriginalCode.IsEmpty}}
--- original
{{code .OriginalCode}}
{{end}}{{if not .FixedCode.IsEmpty}}
+++ fixed
{{code .FixedCode}}
{{end}}{{end}}

{{define "benchmark"}}
Benchmark
  Latency: {{printf "%.1f" .LatencyBeforeMs}} ms -> {{printf "%.1f" .LatencyAfterMs}} ms
  CPU:     {{printf "%.1f" .CPUBefore}} -> {{printf "%.1f" .CPUAfter}}
  Improvement: {{printf "%.1f" .ImprovementPercentage}}%
  Safe to apply: {{if .IsSafe}}yes{{else}}no{{end}}
{{end}}

{{define "apply"}}
Apply result: {{.Status}}{{if .Message}} ({{.Message}}){{end}}
{{end}}
`

func (r *Reporter) funcMap() template.FuncMap {
	return template.FuncMap{
		"formatRow": func(severity, id, category, resource, desc string) string {
			return fmt.Sprintf("| %-*s | %-*s | %-*s | %-*s | %-*s |",
				r.config.SeverityWidth, clip(severity, r.config.SeverityWidth),
				r.config.IDWidth, clip(id, r.config.IDWidth),
				r.config.CategoryWidth, clip(category, r.config.CategoryWidth),
				r.config.ResourceWidth, clip(resource, r.config.ResourceWidth),
				r.config.DescriptionWidth, clip(desc, r.config.DescriptionWidth))
		},
		"separator": func() string {
			return fmt.Sprintf("+%s+%s+%s+%s+%s+",
				strings.Repeat("-", r.config.SeverityWidth+2),
				strings.Repeat("-", r.config.IDWidth+2),
				strings.Repeat("-", r.config.CategoryWidth+2),
				strings.Repeat("-", r.config.ResourceWidth+2),
				strings.Repeat("-", r.config.DescriptionWidth+2))
		},
		"code": formatCode,
	}
}

// Issues prints issues most severe first. Issues of equal severity keep detection order.
func (r *Reporter) Issues(issues []domain.Issue) error {
	ranked := make([]domain.Issue, len(issues))
	copy(ranked, issues)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Severity.Rank() > ranked[j].Severity.Rank()
	})
	return r.render("issues", ranked)
}

func (r *Reporter) Proposal(proposal domain.FixProposal) error {
	return r.render("proposal", proposal)
}

func (r *Reporter) Benchmark(result domain.BenchmarkResult) error {
	return r.render("benchmark", result)
}

func (r *Reporter) ApplyResult(result domain.ApplyResult) error {
	return r.render("apply", result)
}

func (r *Reporter) render(name string, data any) error {
	if err := r.templates.ExecuteTemplate(r.writer, name, data); err != nil {
		return fmt.Errorf("failed to render %s report: %w", name, err)
	}
	return nil
}

func formatCode(b domain.Blob) string {
	var out bytes.Buffer
	if err := json.Indent(&out, b, "", "  "); err != nil {
		return string(b)
	}
	return out.String()
}

func clip(s string, width int) string {
	if len(s) <= width {
		return s
	}
	if width <= 3 {
		return s[:width]
	}
	return s[:width-3] + "..."
}
