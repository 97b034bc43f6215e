package flatjson

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Sentinel errors for programmatic error handling.
var (
	ErrInvalidJSON       = errors.New("invalid JSON")
	ErrPathNotFound      = errors.New("path not found")
	ErrMaxDepth          = errors.New("maximum nesting depth exceeded")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrInvalidTemplate   = errors.New("invalid template")
)

// ParseError reports a document that is not well-formed JSON.
type ParseError struct {
	// Offset is the byte offset of the error, or -1 when unknown.
	Offset int64
	// Detail is the decoder's description of the problem, if any.
	Detail string
	Err    error
}

func (e *ParseError) Error() string {
	msg := "parsing document: " + e.Err.Error()
	if e.Offset >= 0 {
		msg += fmt.Sprintf(" at offset %d", e.Offset)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// IOError reports an input that could not be read or an output that could
// not be written.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s %q: %s", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Format represents an output format.
type Format string

const (
	CSV      Format = "csv"
	TSV      Format = "tsv"
	JSON     Format = "json"
	JSONL    Format = "jsonl"
	YAML     Format = "yaml"
	Markdown Format = "markdown"
	Pretty   Format = "table"
	HTML     Format = "html"
	KV       Format = "kv"
)

const goTemplatePrefix = "go-template="

var formats = []Format{CSV, TSV, JSON, JSONL, YAML, Markdown, Pretty, HTML, KV}

var extensions = map[Format]string{
	CSV:      "csv",
	TSV:      "tsv",
	JSON:     "json",
	JSONL:    "jsonl",
	YAML:     "yaml",
	Markdown: "md",
	Pretty:   "txt",
	HTML:     "html",
	KV:       "txt",
}

// String returns the format name.
func (f Format) String() string { return string(f) }

// Ext returns the file extension for f, without the dot.
func (f Format) Ext() string {
	if ext, ok := extensions[f]; ok {
		return ext
	}
	return "txt"
}

// Formats returns all supported static format names.
// GoTemplate is not included because it is parameterized.
func Formats() []Format {
	out := make([]Format, len(formats))
	copy(out, formats)
	return out
}

// GoTemplate returns a Format that renders each row using a Go text/template.
// The template is executed against the row's column-to-text mapping.
func GoTemplate(tmpl string) Format {
	return Format(goTemplatePrefix + tmpl)
}

// ParseFormat parses a format string. Recognizes all static formats and
// go-template=<tmpl> strings.
func ParseFormat(s string) (Format, error) {
	if strings.HasPrefix(s, goTemplatePrefix) {
		return Format(s), nil
	}
	for _, f := range formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// BorderStyle controls table border characters.
type BorderStyle int

const (
	BorderRounded BorderStyle = iota // ╭─╮╰╯│┬┴├┤┼
	BorderNone                       // No borders, space-separated columns
	BorderASCII                      // +-+|
	BorderHeavy                      // ┏━┓┗┛┃┳┻┣┫╋
	BorderDouble                     // ╔═╗╚╝║╦╩╠╣╬
)

var borderNames = map[string]BorderStyle{
	"rounded": BorderRounded,
	"none":    BorderNone,
	"ascii":   BorderASCII,
	"heavy":   BorderHeavy,
	"double":  BorderDouble,
}

// ParseBorderStyle parses a border name: rounded, none, ascii, heavy, double.
func ParseBorderStyle(s string) (BorderStyle, error) {
	if b, ok := borderNames[s]; ok {
		return b, nil
	}
	return 0, fmt.Errorf("unknown border style %q", s)
}

// Alignment controls column text alignment.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

// WriteOptions tunes rendering. The zero value writes a header, no index
// column, comma-delimited CSV, and rounded table borders.
type WriteOptions struct {
	// Delimiter is the CSV field delimiter. Default comma.
	Delimiter rune
	// NoHeader suppresses the header row of CSV, TSV, Pretty, and HTML output.
	NoHeader bool
	// Index prepends a 0-based row index column.
	Index bool
	// IndexHeader names the index column. Default empty.
	IndexHeader string
	// Border is the Pretty border style.
	Border BorderStyle
	// MaxWidth truncates Pretty cells wider than this with "...". Zero means
	// no limit.
	MaxWidth int
	// Columns fixes the column list for [WriteRows]. Ignored by [Write].
	Columns []string
}

// header returns the header row including the optional index column.
func (o WriteOptions) header(columns []string) []string {
	if !o.Index {
		return columns
	}
	return append([]string{o.IndexHeader}, columns...)
}

// record returns a data row including the optional index column.
func (o WriteOptions) record(i int, rec []string) []string {
	if !o.Index {
		return rec
	}
	return append([]string{fmt.Sprintf("%d", i)}, rec...)
}

// Write renders t in format f and writes it to w.
func Write(w io.Writer, f Format, t *Table, opts WriteOptions) error {
	if t == nil {
		t = &Table{}
	}
	switch f {
	case CSV:
		return writeCSV(w, t, opts)
	case TSV:
		return writeTSV(w, t, opts)
	case JSON:
		return writeJSON(w, t)
	case JSONL:
		return writeJSONL(w, t)
	case YAML:
		return writeYAML(w, t)
	case Markdown:
		return writeMarkdown(w, t, opts)
	case Pretty:
		return writeTable(w, t, opts)
	case HTML:
		return writeHTML(w, t, opts)
	case KV:
		return writeKV(w, t, opts)
	default:
		if tmpl, ok := strings.CutPrefix(string(f), goTemplatePrefix); ok {
			return writeGoTemplate(w, tmpl, t)
		}
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}

// Marshal renders t in format f and returns the bytes.
func Marshal(f Format, t *Table, opts WriteOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, f, t, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
