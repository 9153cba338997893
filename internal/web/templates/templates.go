// Package templates renders the HTML fragments HTMX swaps into the billing
// page: the import report and the error alert.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// ErrorAlert is the fragment shown in place of a failed request.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<div class="alert alert-error" role="alert"><p class="font-medium">%s</p>`,
			templ.EscapeString(message))
		if err != nil {
			return err
		}
		if action != "" {
			if _, err := fmt.Fprintf(w, `<p class="text-sm">%s</p>`, templ.EscapeString(action)); err != nil {
				return err
			}
		}
		_, err = fmt.Fprintf(w, `<p class="text-xs text-gray-500">Code: %s</p></div>`, templ.EscapeString(code))
		return err
	})
}

// ImportReport lists the per-row outcome of an import, successes first.
func ImportReport(fileName string, successes, errs []string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w,
			`<div id="import-report"><h3>Import of %s: %d imported, %d failed</h3>`,
			templ.EscapeString(fileName), len(successes), len(errs)); err != nil {
			return err
		}
		if err := list(w, "import-successes", "text-green-700", successes); err != nil {
			return err
		}
		if err := list(w, "import-errors", "text-red-700", errs); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	})
}

func list(w io.Writer, id, class string, items []string) error {
	if len(items) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, `<ul id="%s" class="%s">`, id, class); err != nil {
		return err
	}
	for _, item := range items {
		if _, err := fmt.Fprintf(w, `<li>%s</li>`, templ.EscapeString(item)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, `</ul>`)
	return err
}
