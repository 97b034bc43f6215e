package flatjson

import (
	"encoding/csv"
	"io"
)

func newCSVWriter(w io.Writer, opts WriteOptions) *csv.Writer {
	cw := csv.NewWriter(w)
	if opts.Delimiter != 0 {
		cw.Comma = opts.Delimiter
	}
	return cw
}

func writeCSV(w io.Writer, t *Table, opts WriteOptions) error {
	if t.Len() == 0 {
		return nil
	}
	cw := newCSVWriter(w, opts)
	if !opts.NoHeader {
		if err := cw.Write(opts.header(t.Columns)); err != nil {
			return err
		}
	}
	for i, rec := range t.Records() {
		if err := cw.Write(opts.record(i, rec)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeCSVRow writes a single record and flushes it.
func writeCSVRow(w io.Writer, rec []string, opts WriteOptions) error {
	cw := newCSVWriter(w, opts)
	if err := cw.Write(rec); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
