// Package templates holds the HTML fragments returned to HTMX requests.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// ImportRow is one file in an import result table.
type ImportRow struct {
	File       string
	Imported   int
	Errors     int
	Duplicates int
	Message    string
	Error      string
}

// ErrorAlert renders an inline error box with a support code.
func ErrorAlert(message, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<div class="alert alert-error" role="alert"><p class="alert-message">%s</p><p class="alert-code">Reference: %s</p></div>`,
			templ.EscapeString(message), templ.EscapeString(code))
		return err
	})
}

// ImportResults renders the per-file outcome of an import.
func ImportResults(rows []ImportRow) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<table class="import-results"><thead><tr>`)
		b.WriteString(`<th>File</th><th>Imported</th><th>Errors</th><th>Duplicates</th><th>Status</th>`)
		b.WriteString(`</tr></thead><tbody>`)
		for _, r := range rows {
			class := "import-ok"
			if r.Errors > 0 {
				class = "import-partial"
			}
			status := r.Message
			if r.Error != "" {
				class = "import-failed"
				status = r.Error
			}
			fmt.Fprintf(&b, `<tr class="%s"><td>%s</td><td>%d</td><td>%d</td><td>%d</td><td>%s</td></tr>`,
				class, templ.EscapeString(r.File), r.Imported, r.Errors, r.Duplicates, templ.EscapeString(status))
		}
		b.WriteString(`</tbody></table>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}
