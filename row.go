package flatjson

import (
	"bytes"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Cell is one column of a row. Value is always a scalar.
type Cell struct {
	Column string
	Value  Value
}

// Row is one flattened record. Column names are unique within a row and
// appear in the order they were first seen in the document.
type Row []Cell

// Get returns the value stored under column.
func (r Row) Get(column string) (Value, bool) {
	for _, c := range r {
		if c.Column == column {
			return c.Value, true
		}
	}
	return Value{}, false
}

// Columns returns the row's column names in order.
func (r Row) Columns() []string {
	cols := make([]string, len(r))
	for i, c := range r {
		cols[i] = c.Column
	}
	return cols
}

// Map returns the row as a column-to-value mapping.
func (r Row) Map() map[string]Value {
	m := make(map[string]Value, len(r))
	for _, c := range r {
		m[c.Column] = c.Value
	}
	return m
}

// Strings returns the row as a column-to-cell-text mapping.
func (r Row) Strings() map[string]string {
	m := make(map[string]string, len(r))
	for _, c := range r {
		m[c.Column] = c.Value.String()
	}
	return m
}

// Record returns the cell texts of r aligned to columns. Columns missing from
// r are empty.
func (r Row) Record(columns []string) []string {
	m := r.Strings()
	rec := make([]string, len(columns))
	for i, col := range columns {
		rec[i] = m[col]
	}
	return rec
}

// MarshalJSON encodes the row as a JSON object with columns in row order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(quote(c.Column))
		buf.WriteByte(':')
		buf.WriteString(c.Value.Raw())
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML encodes the row as an ordered YAML mapping with typed scalars.
func (r Row) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, c := range r {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: c.Column},
			yamlScalar(c.Value),
		)
	}
	return node, nil
}

func yamlScalar(v Value) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Value: v.String()}
	switch v.Kind() {
	case Null:
		n.Tag, n.Value = "!!null", "null"
	case Bool:
		n.Tag = "!!bool"
	case Number:
		if _, err := strconv.ParseInt(v.text, 10, 64); err == nil {
			n.Tag = "!!int"
		} else {
			n.Tag = "!!float"
		}
	default:
		n.Tag = "!!str"
	}
	return n
}

// Table is a set of rows sharing one column list.
type Table struct {
	Columns []string
	Rows    []Row
}

// NewTable builds a table whose columns are the union of the row columns in
// first-seen order.
func NewTable(rows []Row) *Table {
	t := &Table{Rows: rows}
	seen := make(map[string]struct{})
	for _, row := range rows {
		for _, c := range row {
			if _, ok := seen[c.Column]; ok {
				continue
			}
			seen[c.Column] = struct{}{}
			t.Columns = append(t.Columns, c.Column)
		}
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Records returns every row's cell texts aligned to t.Columns.
func (t *Table) Records() [][]string {
	if t == nil {
		return nil
	}
	recs := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		recs[i] = row.Record(t.Columns)
	}
	return recs
}

// numericColumns reports, per column, whether every non-empty cell is a
// number.
func (t *Table) numericColumns() []bool {
	numeric := make([]bool, len(t.Columns))
	index := make(map[string]int, len(t.Columns))
	for i, col := range t.Columns {
		index[col] = i
	}
	seen := make([]bool, len(t.Columns))
	nonNumeric := make([]bool, len(t.Columns))
	for _, row := range t.Rows {
		for _, c := range row {
			i := index[c.Column]
			switch c.Value.Kind() {
			case Null:
			case Number:
				seen[i] = true
			default:
				nonNumeric[i] = true
			}
		}
	}
	for i := range numeric {
		numeric[i] = seen[i] && !nonNumeric[i]
	}
	return numeric
}
