package flatjson

import (
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/tidwall/pretty"
)

// DefaultSeparator joins key path segments into column names.
const DefaultSeparator = "."

// DefaultMaxDepth is the nesting limit used when Options.MaxDepth is zero.
const DefaultMaxDepth = 512

// ScalarColumn names the column of a record that is itself a scalar.
const ScalarColumn = "value"

// ArrayPolicy controls how arrays nested inside a record are flattened.
type ArrayPolicy int

const (
	// ArrayIndex uses the element index as a path segment: tags.0, tags.1.
	ArrayIndex ArrayPolicy = iota
	// ArrayJSON stores the whole array as one cell of compact JSON text.
	ArrayJSON
)

var arrayPolicies = map[string]ArrayPolicy{
	"index": ArrayIndex,
	"json":  ArrayJSON,
}

// String returns the policy name accepted by [ParseArrayPolicy].
func (p ArrayPolicy) String() string {
	for name, v := range arrayPolicies {
		if v == p {
			return name
		}
	}
	return "ArrayPolicy(" + strconv.Itoa(int(p)) + ")"
}

// ParseArrayPolicy parses "index" or "json".
func ParseArrayPolicy(s string) (ArrayPolicy, error) {
	if p, ok := arrayPolicies[s]; ok {
		return p, nil
	}
	return 0, fmt.Errorf("unknown array policy %q (want index or json)", s)
}

// Options controls flattening. The zero value flattens the document root with
// "." separators and indexed arrays.
type Options struct {
	// Separator joins path segments. Default ".".
	Separator string
	// Arrays selects the nested array policy. Default ArrayIndex.
	Arrays ArrayPolicy
	// Path is a gjson path selecting the value to unbundle. An array yields
	// one row per element; anything else yields a single row. Empty means
	// the document root.
	Path string
	// StripNewlines removes carriage returns and line feeds from strings.
	StripNewlines bool
	// MaxDepth bounds nesting below a record. Default DefaultMaxDepth.
	MaxDepth int
}

func (o Options) withDefaults() Options {
	if o.Separator == "" {
		o.Separator = DefaultSeparator
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	return o
}

// parseDepth is the document nesting that MaxDepth below a record at Path
// can need, and never less than DefaultParseDepth.
func (o Options) parseDepth() int {
	o = o.withDefaults()
	return max(DefaultParseDepth, o.MaxDepth+strings.Count(o.Path, ".")+2)
}

// FlattenBytes parses data and flattens it. Documents nested too deeply for
// opts are rejected by the parser with [ErrMaxDepth].
func FlattenBytes(data []byte, opts Options) ([]Row, error) {
	v, err := ParseDepth(data, opts.parseDepth())
	if err != nil {
		return nil, err
	}
	return Flatten(v, opts)
}

// Flatten converts a document into rows. Rows without any cells are dropped,
// so an empty object or array yields no rows.
func Flatten(v Value, opts Options) ([]Row, error) {
	var rows []Row
	for row, err := range Rows(v, opts) {
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Rows yields the rows of a document one record at a time. Iteration stops
// after the first error.
func Rows(v Value, opts Options) iter.Seq2[Row, error] {
	opts = opts.withDefaults()
	return func(yield func(Row, error) bool) {
		target, ok := v.Get(opts.Path)
		if !ok {
			yield(nil, fmt.Errorf("%w: %q", ErrPathNotFound, opts.Path))
			return
		}
		records := []Value{target}
		if target.Kind() == Array {
			records = target.Elements()
		}
		for _, rec := range records {
			row, err := flattenRecord(rec, opts)
			if err != nil {
				yield(nil, err)
				return
			}
			if len(row) == 0 {
				continue
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

// rowBuilder accumulates cells. A repeated column keeps its first position
// and takes the last value.
type rowBuilder struct {
	opts  Options
	row   Row
	index map[string]int
}

func flattenRecord(rec Value, opts Options) (Row, error) {
	b := &rowBuilder{opts: opts, index: make(map[string]int)}
	if rec.IsScalar() {
		b.set(ScalarColumn, rec)
		return b.row, nil
	}
	if err := b.walk(rec, "", 0); err != nil {
		return nil, err
	}
	return b.row, nil
}

func (b *rowBuilder) walk(v Value, path string, depth int) error {
	if depth > b.opts.MaxDepth {
		return fmt.Errorf("%w: more than %d levels below a record", ErrMaxDepth, b.opts.MaxDepth)
	}
	switch v.Kind() {
	case Object:
		for _, m := range v.Members() {
			if err := b.walk(m.Value, b.join(path, m.Key), depth+1); err != nil {
				return err
			}
		}
	case Array:
		if b.opts.Arrays == ArrayJSON && depth > 0 {
			b.set(path, newString(string(pretty.Ugly([]byte(v.Raw())))))
			return nil
		}
		for i, elem := range v.Elements() {
			if err := b.walk(elem, b.join(path, strconv.Itoa(i)), depth+1); err != nil {
				return err
			}
		}
	default:
		b.set(path, b.scalar(v))
	}
	return nil
}

func (b *rowBuilder) join(path, seg string) string {
	if path == "" {
		return seg
	}
	return path + b.opts.Separator + seg
}

var newlineStripper = strings.NewReplacer("\r\n", "", "\n", "", "\r", "")

func (b *rowBuilder) scalar(v Value) Value {
	if b.opts.StripNewlines && v.Kind() == String && strings.ContainsAny(v.text, "\r\n") {
		return newString(newlineStripper.Replace(v.text))
	}
	return v
}

func (b *rowBuilder) set(column string, v Value) {
	if i, ok := b.index[column]; ok {
		b.row[i].Value = v
		return
	}
	b.index[column] = len(b.row)
	b.row = append(b.row, Cell{Column: column, Value: v})
}
