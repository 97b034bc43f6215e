// Package flatjson flattens JSON documents into tables.
//
// A document is parsed into a [Value], split into records, and each record is
// walked depth first. Every scalar found becomes a cell whose column name is
// the key path from the record root, joined with a separator:
//
//	rows, err := flatjson.FlattenBytes([]byte(`{"a": 1, "b": {"c": 2}}`), flatjson.Options{})
//	// one row: a=1, b.c=2
//
// # Records
//
// [Options].Path selects the value to unbundle with a gjson path. An array
// yields one record per element; any other value is a single record. Scalar
// records are stored under the [ScalarColumn] column. Records without any
// scalar produce no row, so `{}` flattens to zero rows.
//
// # Arrays
//
// Arrays nested inside a record follow [Options].Arrays:
//
//   - [ArrayIndex]: the element index is a path segment (tags.0, tags.1)
//   - [ArrayJSON]: the array is stored as one cell of compact JSON
//
// # Output
//
// [NewTable] unions the row columns in first-seen order. [Write] and
// [Marshal] render a table as CSV, TSV, JSON, JSONL, YAML, Markdown, HTML, a
// terminal table ([Pretty]), column=value records ([KV]), or a Go template.
// [WriteRows] streams rows from [Rows] for formats that allow it.
//
// # Errors
//
//   - [*ParseError]: input is not well-formed JSON (wraps [ErrInvalidJSON]),
//     or nests deeper than the parse limit (wraps [ErrMaxDepth])
//   - [*IOError]: input unreadable or output unwritable
//   - [ErrPathNotFound]: Options.Path selects nothing
//   - [ErrMaxDepth]: nesting deeper than Options.MaxDepth below a record
//   - [ErrUnsupportedFormat]: unknown format string
//   - [ErrInvalidTemplate]: invalid go-template syntax
package flatjson
