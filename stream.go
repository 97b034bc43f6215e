package flatjson

import (
	"io"
	"iter"
)

// WriteRows formats rows from an iterator and writes them to w as they
// arrive. JSONL and JSON always stream. CSV and TSV stream when
// opts.Columns fixes the column list; cells outside that list are dropped.
// Everything else collects the rows into a [Table] first.
//
// The first error from seq stops writing and is returned.
func WriteRows(w io.Writer, f Format, seq iter.Seq2[Row, error], opts WriteOptions) error {
	switch {
	case f == JSONL:
		return streamJSONL(w, seq)
	case f == JSON:
		return streamJSON(w, seq)
	case (f == CSV || f == TSV) && len(opts.Columns) > 0:
		return streamDelimited(w, f, seq, opts)
	default:
		return streamCollect(w, f, seq, opts)
	}
}

func streamCollect(w io.Writer, f Format, seq iter.Seq2[Row, error], opts WriteOptions) error {
	var rows []Row
	for row, err := range seq {
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	return Write(w, f, NewTable(rows), opts)
}

func streamJSONL(w io.Writer, seq iter.Seq2[Row, error]) error {
	for row, err := range seq {
		if err != nil {
			return err
		}
		if err := writeJSONLRow(w, row); err != nil {
			return err
		}
	}
	return nil
}

func streamJSON(w io.Writer, seq iter.Seq2[Row, error]) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return err
	}
	first := true
	for row, err := range seq {
		if err != nil {
			return err
		}
		if !first {
			if _, err := io.WriteString(w, ","); err != nil {
				return err
			}
		}
		first = false
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

func streamDelimited(w io.Writer, f Format, seq iter.Seq2[Row, error], opts WriteOptions) error {
	writeRow := func(cells []string) error {
		if f == TSV {
			return writeTSVRow(w, cells)
		}
		return writeCSVRow(w, cells, opts)
	}
	i := 0
	for row, err := range seq {
		if err != nil {
			return err
		}
		if i == 0 && !opts.NoHeader {
			if err := writeRow(opts.header(opts.Columns)); err != nil {
				return err
			}
		}
		if err := writeRow(opts.record(i, row.Record(opts.Columns))); err != nil {
			return err
		}
		i++
	}
	return nil
}
