package flatjson

import (
	"fmt"
	"io"
	"strings"
)

var tsvEscaper = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

func writeTSV(w io.Writer, t *Table, opts WriteOptions) error {
	if t.Len() == 0 {
		return nil
	}
	if !opts.NoHeader {
		if err := writeTSVRow(w, opts.header(t.Columns)); err != nil {
			return err
		}
	}
	for i, rec := range t.Records() {
		if err := writeTSVRow(w, opts.record(i, rec)); err != nil {
			return err
		}
	}
	return nil
}

// writeTSVRow joins cells with tabs. Tabs and line breaks inside a cell
// become spaces since TSV has no quoting.
func writeTSVRow(w io.Writer, cells []string) error {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = tsvEscaper.Replace(c)
	}
	_, err := fmt.Fprintln(w, strings.Join(escaped, "\t"))
	return err
}
