package flatjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tidwall/gjson"
)

// Kind identifies the JSON type held by a [Value].
type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

var kindNames = [...]string{
	Null:   "null",
	Bool:   "bool",
	Number: "number",
	String: "string",
	Array:  "array",
	Object: "object",
}

// String returns the JSON type name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Value is a parsed JSON value. Object members keep document order, and
// numbers keep their literal text. The zero Value is null.
type Value struct {
	kind    Kind
	text    string
	raw     string
	elems   []Value
	members []Member
}

// Member is one key-value pair of a JSON object.
type Member struct {
	Key   string
	Value Value
}

// DefaultParseDepth is the nesting limit applied by [Parse].
const DefaultParseDepth = 1024

// Parse parses a complete JSON document. Malformed input, or input nested
// more than DefaultParseDepth levels, returns a [*ParseError].
func Parse(data []byte) (Value, error) {
	return ParseDepth(data, DefaultParseDepth)
}

// ParseDepth is like [Parse] but rejects documents whose arrays and objects
// nest more than maxDepth levels. The error wraps [ErrMaxDepth] and carries
// the offset of the first bracket past the limit. A maxDepth of zero or less
// means DefaultParseDepth.
func ParseDepth(data []byte, maxDepth int) (Value, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultParseDepth
	}
	if off := depthExceeded(data, maxDepth); off >= 0 {
		return Value{}, &ParseError{
			Offset: off,
			Detail: fmt.Sprintf("more than %d levels", maxDepth),
			Err:    ErrMaxDepth,
		}
	}
	if !gjson.ValidBytes(data) {
		return Value{}, newParseError(data)
	}
	return fromResult(gjson.ParseBytes(data)), nil
}

// depthExceeded returns the offset of the first '[' or '{' that opens level
// limit+1, or -1. Brackets inside strings are skipped. It runs in one pass
// so deep input is rejected before the tree is built.
func depthExceeded(data []byte, limit int) int64 {
	depth := 0
	inString := false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[', '{':
			depth++
			if depth > limit {
				return int64(i)
			}
		case ']', '}':
			depth--
		}
	}
	return -1
}

// ReadValue reads r to the end and parses the result. Read failures return
// an [*IOError].
func ReadValue(r io.Reader) (Value, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Value{}, &IOError{Op: "read", Err: err}
	}
	return Parse(data)
}

func newParseError(data []byte) *ParseError {
	perr := &ParseError{Offset: -1, Err: ErrInvalidJSON}
	if len(bytes.TrimSpace(data)) == 0 {
		perr.Offset = int64(len(data))
		perr.Detail = "empty document"
		return perr
	}
	var v any
	err := json.Unmarshal(data, &v)
	var syn *json.SyntaxError
	if errors.As(err, &syn) {
		perr.Offset = syn.Offset
		perr.Detail = syn.Error()
	}
	return perr
}

func fromResult(r gjson.Result) Value {
	switch r.Type {
	case gjson.Null:
		return Value{kind: Null, raw: "null"}
	case gjson.False:
		return Value{kind: Bool, text: "false", raw: "false"}
	case gjson.True:
		return Value{kind: Bool, text: "true", raw: "true"}
	case gjson.Number:
		return Value{kind: Number, text: r.Raw, raw: r.Raw}
	case gjson.String:
		return Value{kind: String, text: r.Str, raw: r.Raw}
	}
	if r.IsArray() {
		v := Value{kind: Array, raw: r.Raw}
		r.ForEach(func(_, elem gjson.Result) bool {
			v.elems = append(v.elems, fromResult(elem))
			return true
		})
		return v
	}
	v := Value{kind: Object, raw: r.Raw}
	r.ForEach(func(key, member gjson.Result) bool {
		v.members = append(v.members, Member{Key: key.Str, Value: fromResult(member)})
		return true
	})
	return v
}

func newString(s string) Value {
	return Value{kind: String, text: s, raw: quote(s)}
}

func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
}

// Kind returns the JSON type of v.
func (v Value) Kind() Kind { return v.kind }

// IsScalar reports whether v is null, a bool, a number, or a string.
func (v Value) IsScalar() bool { return v.kind != Array && v.kind != Object }

// String returns the cell text of a scalar: the unquoted string, the number
// literal, "true"/"false", or "" for null. Arrays and objects return their
// JSON text.
func (v Value) String() string {
	switch v.kind {
	case Null:
		return ""
	case Array, Object:
		return v.Raw()
	default:
		return v.text
	}
}

// Raw returns the JSON encoding of v as it appeared in the document.
func (v Value) Raw() string {
	if v.raw == "" {
		return "null"
	}
	return v.raw
}

// MarshalJSON implements [json.Marshaler].
func (v Value) MarshalJSON() ([]byte, error) {
	return []byte(v.Raw()), nil
}

// Len returns the number of array elements or object members.
func (v Value) Len() int {
	switch v.kind {
	case Array:
		return len(v.elems)
	case Object:
		return len(v.members)
	default:
		return 0
	}
}

// Index returns the i-th array element. It panics if v is not an array or
// i is out of range.
func (v Value) Index(i int) Value {
	if v.kind != Array {
		panic("flatjson: Index on " + v.kind.String())
	}
	return v.elems[i]
}

// Elements returns the array elements of v, or nil.
func (v Value) Elements() []Value { return v.elems }

// Members returns the object members of v in document order, or nil.
func (v Value) Members() []Member { return v.members }

// Get selects a nested value with a gjson path such as "entry" or
// "bundle.entry.#.resource".
func (v Value) Get(path string) (Value, bool) {
	if path == "" {
		return v, true
	}
	r := gjson.Get(v.Raw(), path)
	if !r.Exists() {
		return Value{}, false
	}
	return fromResult(r), true
}
