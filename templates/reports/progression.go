package reports

import (
	"context"
	"fmt"
	"io"
	"strings"

	"sustain_score_app_go/services"
	"sustain_score_app_go/services/scoring"

	"github.com/a-h/templ"
)

// ProgressionTable renders a project's scores stage by stage. Category
// columns follow the order of tax.
func ProgressionTable(tax *scoring.Taxonomy, r *services.ProgressionReport) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		fmt.Fprintf(&b, `<h1>%s &middot; %s</h1>`, templ.EscapeString(r.ProjectNumber), templ.EscapeString(r.ProjectName))
		b.WriteString(`<table><thead><tr><th>Reference</th><th>Stage</th>`)
		for _, c := range tax.Categories {
			fmt.Fprintf(&b, `<th>%s</th>`, templ.EscapeString(c.Name))
		}
		b.WriteString(`<th>Total</th><th>Change</th></tr></thead><tbody>`)
		for i, step := range r.Steps {
			fmt.Fprintf(&b, `<tr><td>%s</td><td>%s</td>`, templ.EscapeString(step.Reference), templ.EscapeString(string(step.Stage)))
			for _, c := range tax.Categories {
				cell := formatScore(step.CategoryScores[c.ID])
				if i > 0 {
					cell += ` <small>(` + formatDelta(step.CategoryDeltas[c.ID]) + `)</small>`
				}
				fmt.Fprintf(&b, `<td class="num">%s</td>`, cell)
			}
			change := ""
			if i > 0 {
				change = formatDelta(step.Delta)
			}
			fmt.Fprintf(&b, `<td class="num">%s</td><td class="num">%s</td></tr>`, formatScore(step.TotalScore), change)
		}
		b.WriteString(`</tbody></table>`)
		fmt.Fprintf(&b, `<script type="application/json" id="progression-data">%s</script>`,
			strings.ReplaceAll(JSON(r), "</", `<\/`))

		_, err := io.WriteString(w, b.String())
		return err
	})
}

// ProgressionPage is the standalone progression document
func ProgressionPage(tax *scoring.Taxonomy, r *services.ProgressionReport) templ.Component {
	return Document("Project Progression "+r.ProjectNumber, ProgressionTable(tax, r))
}
