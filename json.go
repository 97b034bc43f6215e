package flatjson

import (
	"io"
)

func writeJSON(w io.Writer, t *Table) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return err
	}
	for i, row := range t.Rows {
		if i > 0 {
			if _, err := io.WriteString(w, ","); err != nil {
				return err
			}
		}
		data, err := row.MarshalJSON()
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "]\n")
	return err
}
