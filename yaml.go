package flatjson

import (
	"io"

	"gopkg.in/yaml.v3"
)

func writeYAML(w io.Writer, t *Table) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	rows := t.Rows
	if rows == nil {
		rows = []Row{}
	}
	if err := enc.Encode(rows); err != nil {
		return err
	}
	return enc.Close()
}
