package flatjson

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// writeKV writes one column=value line per cell present in a row, with a
// blank line between rows. Columns and values that contain whitespace,
// quotes, or "=" are Go-quoted, as is an empty column.
func writeKV(w io.Writer, t *Table, opts WriteOptions) error {
	for i, row := range t.Rows {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if opts.Index {
			name := opts.IndexHeader
			if name == "" {
				name = "index"
			}
			if _, err := fmt.Fprintf(w, "%s=%d\n", kvKey(name), i); err != nil {
				return err
			}
		}
		for _, c := range row {
			if _, err := fmt.Fprintf(w, "%s=%s\n", kvKey(c.Column), kvValue(c.Value.String())); err != nil {
				return err
			}
		}
	}
	return nil
}

func kvValue(s string) string {
	if strings.ContainsAny(s, " \t\r\n\"'=\\") {
		return strconv.Quote(s)
	}
	return s
}

func kvKey(s string) string {
	if s == "" {
		return `""`
	}
	return kvValue(s)
}
