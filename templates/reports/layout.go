// Package reports renders report HTML with templ components. The markup is
// shared by the HTML endpoints and the PDF export.
package reports

import (
	"bytes"
	"context"
	"io"

	"github.com/a-h/templ"
)

const reportCSS = `
body { font-family: "Helvetica Neue", Arial, sans-serif; font-size: 11px; color: #1f2933; margin: 0; }
h1 { font-size: 18px; margin: 0 0 4px 0; }
h2 { font-size: 14px; margin: 18px 0 6px 0; }
.meta { color: #616e7c; margin-bottom: 12px; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #cbd2d9; padding: 4px 6px; text-align: left; }
th { background: #f0f4f8; }
td.num { text-align: right; font-variant-numeric: tabular-nums; }
.rating-excellent { color: #0e7c41; font-weight: bold; }
.rating-good { color: #2d6a9f; font-weight: bold; }
.rating-fair { color: #b7791f; font-weight: bold; }
.rating-poor { color: #c53030; font-weight: bold; }
`

// Document wraps body in a standalone HTML page
func Document(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>`+
			templ.EscapeString(title)+`</title><style>`+reportCSS+`</style></head><body>`); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

// RenderHTML renders c to a string, for the PDF generator
func RenderHTML(ctx context.Context, c templ.Component) (string, error) {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
