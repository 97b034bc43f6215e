package flatjson

import (
	"io"
)

func writeJSONL(w io.Writer, t *Table) error {
	for _, row := range t.Rows {
		if err := writeJSONLRow(w, row); err != nil {
			return err
		}
	}
	return nil
}

func writeJSONLRow(w io.Writer, row Row) error {
	data, err := row.MarshalJSON()
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
