package flatjson

import (
	"fmt"
	"io"
	"text/template"
)

func writeGoTemplate(w io.Writer, tmplStr string, t *Table) error {
	tmpl, err := template.New("").Option("missingkey=zero").Parse(tmplStr)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTemplate, err)
	}
	for _, row := range t.Rows {
		if err := tmpl.Execute(w, row.Strings()); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}
