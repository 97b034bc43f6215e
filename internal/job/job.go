// Package job converts a single JSON document into a table file.
package job

import (
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/bjaus/flatjson"
	"github.com/spf13/afero"
)

const partialSuffix = ".partial"

// Result summarizes a conversion.
type Result struct {
	Rows    int
	Columns int
	Bytes   int
}

// Converter flattens documents and renders them in one output format.
type Converter struct {
	fs      afero.Afero
	format  flatjson.Format
	flatten flatjson.Options
	write   flatjson.WriteOptions
	log     *slog.Logger
}

// NewConverter returns a Converter that reads and writes files on fs.
func NewConverter(fs afero.Fs, format flatjson.Format, flatten flatjson.Options, write flatjson.WriteOptions, log *slog.Logger) *Converter {
	return &Converter{
		fs:      afero.Afero{Fs: fs},
		format:  format,
		flatten: flatten,
		write:   write,
		log:     log,
	}
}

// Format returns the output format.
func (c *Converter) Format() flatjson.Format { return c.format }

// Convert reads a document from r and writes the rendered table to w.
// Nothing is written to w unless the document parses and renders.
func (c *Converter) Convert(r io.Reader, w io.Writer) (Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, &flatjson.IOError{Op: "read", Err: err}
	}
	out, res, err := c.render(data)
	if err != nil {
		return Result{}, err
	}
	if _, err := w.Write(out); err != nil {
		return Result{}, &flatjson.IOError{Op: "write", Err: err}
	}
	return res, nil
}

// ConvertFile converts the document at in and writes the table to out.
// The table is written to out+".partial" and renamed into place, so out is
// either complete or untouched.
func (c *Converter) ConvertFile(in, out string) (Result, error) {
	data, err := c.fs.ReadFile(in)
	if err != nil {
		return Result{}, &flatjson.IOError{Op: "read", Path: in, Err: err}
	}
	res, err := c.writeFile(data, out)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", in, err)
	}
	c.log.Debug("Converted document", "input", in, "output", out, "rows", res.Rows, "columns", res.Columns)
	return res, nil
}

// ConvertToFile reads a document from r and writes the table to out, with
// the same guarantees as [Converter.ConvertFile].
func (c *Converter) ConvertToFile(r io.Reader, out string) (Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, &flatjson.IOError{Op: "read", Err: err}
	}
	return c.writeFile(data, out)
}

func (c *Converter) writeFile(data []byte, out string) (Result, error) {
	rendered, res, err := c.render(data)
	if err != nil {
		return Result{}, err
	}
	partial := out + partialSuffix
	if err := c.fs.WriteFile(partial, rendered, 0o644); err != nil {
		_ = c.fs.Remove(partial)
		return Result{}, &flatjson.IOError{Op: "write", Path: out, Err: err}
	}
	if err := c.fs.Rename(partial, out); err != nil {
		_ = c.fs.Remove(partial)
		return Result{}, &flatjson.IOError{Op: "rename", Path: out, Err: err}
	}
	return res, nil
}

func (c *Converter) render(data []byte) ([]byte, Result, error) {
	rows, err := flatjson.FlattenBytes(data, c.flatten)
	if err != nil {
		return nil, Result{}, err
	}
	t := flatjson.NewTable(rows)
	out, err := flatjson.Marshal(c.format, t, c.write)
	if err != nil {
		return nil, Result{}, err
	}
	return out, Result{Rows: t.Len(), Columns: len(t.Columns), Bytes: len(out)}, nil
}

// OutputName returns the name of the table produced from the object key:
// the key without its extension, followed by "tabular." and the format
// extension. "bundles/a.json" becomes "bundles/atabular.csv".
func OutputName(key string, f flatjson.Format) string {
	return strings.TrimSuffix(key, path.Ext(key)) + "tabular." + f.Ext()
}

// ContentType returns the MIME type for f.
func ContentType(f flatjson.Format) string {
	switch f {
	case flatjson.CSV:
		return "text/csv"
	case flatjson.TSV:
		return "text/tab-separated-values"
	case flatjson.JSON:
		return "application/json"
	case flatjson.JSONL:
		return "application/x-ndjson"
	case flatjson.YAML:
		return "application/yaml"
	case flatjson.Markdown:
		return "text/markdown"
	case flatjson.HTML:
		return "text/html"
	default:
		return "text/plain"
	}
}
