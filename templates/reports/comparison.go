package reports

import (
	"context"
	"fmt"
	"io"
	"strings"

	"sustain_score_app_go/models"
	"sustain_score_app_go/services"

	"github.com/a-h/templ"
)

// ComparisonTable renders the comparison rows and averages
func ComparisonTable(r *services.ComparisonReport) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<h1>Sustainability Comparison</h1>`)
		fmt.Fprintf(&b, `<div class="meta">Generated %s &middot; taxonomy version %d &middot; %d projects</div>`,
			templ.EscapeString(formatDate(r.GeneratedAt)), r.TaxonomyVersion, len(r.Rows))

		b.WriteString(`<table><thead><tr><th>Reference</th><th>Project</th><th>Department</th><th>Stage</th>`)
		for _, c := range r.Categories {
			fmt.Fprintf(&b, `<th>%s (%.0f%%)</th>`, templ.EscapeString(c.Name), c.Weight)
		}
		b.WriteString(`<th>Total</th><th>Rating</th></tr></thead><tbody>`)
		for _, row := range r.Rows {
			fmt.Fprintf(&b, `<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td>`,
				templ.EscapeString(row.Reference), templ.EscapeString(row.ProjectName),
				templ.EscapeString(row.Department), templ.EscapeString(string(row.Stage)))
			for _, c := range r.Categories {
				fmt.Fprintf(&b, `<td class="num">%s</td>`, formatScore(row.CategoryScores[c.ID]))
			}
			fmt.Fprintf(&b, `<td class="num">%s</td><td class="%s">%s</td></tr>`,
				formatScore(row.TotalScore), ratingClass(row.Rating), templ.EscapeString(string(row.Rating)))
		}
		if len(r.Rows) == 0 {
			fmt.Fprintf(&b, `<tr><td colspan="%d">No project records match this report.</td></tr>`, len(r.Categories)+6)
		}
		b.WriteString(`</tbody></table>`)

		b.WriteString(`<h2>Averages</h2><table><thead><tr><th>Category</th><th>Average</th></tr></thead><tbody>`)
		for _, c := range r.Categories {
			fmt.Fprintf(&b, `<tr><td>%s</td><td class="num">%s</td></tr>`,
				templ.EscapeString(c.Name), formatScore(r.CategoryAverages[c.ID]))
		}
		for _, stage := range models.ProjectStages {
			if avg, ok := r.StageAverages[string(stage)]; ok {
				fmt.Fprintf(&b, `<tr><td>%s stage total</td><td class="num">%s</td></tr>`,
					templ.EscapeString(string(stage)), formatScore(avg))
			}
		}
		fmt.Fprintf(&b, `<tr><th>All projects</th><th class="num">%s</th></tr></tbody></table>`, formatScore(r.AverageTotal))

		_, err := io.WriteString(w, b.String())
		return err
	})
}

// ComparisonPage is the standalone comparison document used for PDF export
func ComparisonPage(r *services.ComparisonReport) templ.Component {
	return Document("Sustainability Comparison", ComparisonTable(r))
}
