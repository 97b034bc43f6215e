package flatjson

import (
	"fmt"
	"html"
	"io"
)

func writeHTML(w io.Writer, t *Table, opts WriteOptions) error {
	if t.Len() == 0 {
		return nil
	}
	aligns := columnAligns(t, opts)

	if _, err := fmt.Fprintln(w, "<table>"); err != nil {
		return err
	}

	if !opts.NoHeader {
		if _, err := fmt.Fprintln(w, "  <thead>\n    <tr>"); err != nil {
			return err
		}
		for i, col := range opts.header(t.Columns) {
			if _, err := fmt.Fprintf(w, "      <th%s>%s</th>\n", alignStyle(aligns, i), html.EscapeString(col)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, "    </tr>\n  </thead>"); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(w, "  <tbody>"); err != nil {
		return err
	}
	for i, rec := range t.Records() {
		if _, err := fmt.Fprintln(w, "    <tr>"); err != nil {
			return err
		}
		for j, cell := range opts.record(i, rec) {
			if _, err := fmt.Fprintf(w, "      <td%s>%s</td>\n", alignStyle(aligns, j), html.EscapeString(cell)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, "    </tr>"); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, "  </tbody>"); err != nil {
		return err
	}

	_, err := fmt.Fprintln(w, "</table>")
	return err
}

func alignStyle(aligns []Alignment, col int) string {
	if col >= len(aligns) {
		return ""
	}
	switch aligns[col] {
	case AlignRight:
		return ` style="text-align: right"`
	case AlignCenter:
		return ` style="text-align: center"`
	default:
		return ""
	}
}
