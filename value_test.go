package flatjson_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/bjaus/flatjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKinds(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		doc  string
		kind flatjson.Kind
		str  string
	}{
		"null":   {doc: `null`, kind: flatjson.Null, str: ""},
		"true":   {doc: `true`, kind: flatjson.Bool, str: "true"},
		"false":  {doc: ` false `, kind: flatjson.Bool, str: "false"},
		"number": {doc: `1.50`, kind: flatjson.Number, str: "1.50"},
		"string": {doc: `"a\"b"`, kind: flatjson.String, str: `a"b`},
		"array":  {doc: `[1, 2]`, kind: flatjson.Array, str: `[1, 2]`},
		"object": {doc: `{"a": 1}`, kind: flatjson.Object, str: `{"a": 1}`},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			v, err := flatjson.Parse([]byte(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.str, v.String())
		})
	}
}

func TestValueStructure(t *testing.T) {
	t.Parallel()
	v, err := flatjson.Parse([]byte(`{"b": [true, null], "a": {"c": "x"}}`))
	require.NoError(t, err)
	require.Equal(t, 2, v.Len())

	members := v.Members()
	assert.Equal(t, "b", members[0].Key)
	assert.Equal(t, "a", members[1].Key)

	arr := members[0].Value
	assert.Equal(t, 2, arr.Len())
	assert.Equal(t, flatjson.Bool, arr.Index(0).Kind())
	assert.Equal(t, flatjson.Null, arr.Index(1).Kind())
	assert.Len(t, arr.Elements(), 2)
	assert.Nil(t, arr.Members())
	assert.Zero(t, arr.Index(0).Len())

	assert.Panics(t, func() { v.Index(0) })
}

func TestValueGet(t *testing.T) {
	t.Parallel()
	v, err := flatjson.Parse([]byte(`{"entry": [{"resource": {"id": "p1"}}, {"resource": {"id": "p2"}}]}`))
	require.NoError(t, err)

	got, ok := v.Get("entry.1.resource.id")
	require.True(t, ok)
	assert.Equal(t, "p2", got.String())

	ids, ok := v.Get("entry.#.resource.id")
	require.True(t, ok)
	assert.Equal(t, flatjson.Array, ids.Kind())
	assert.Equal(t, 2, ids.Len())

	same, ok := v.Get("")
	require.True(t, ok)
	assert.Equal(t, v, same)

	_, ok = v.Get("missing")
	assert.False(t, ok)
}

func TestValueMarshalJSON(t *testing.T) {
	t.Parallel()
	v, err := flatjson.Parse([]byte(`{"a":[1,"x"]}`))
	require.NoError(t, err)
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":[1,"x"]}`, string(data))

	var zero flatjson.Value
	assert.Equal(t, flatjson.Null, zero.Kind())
	assert.Equal(t, "null", zero.Raw())
}

func TestKindString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "object", flatjson.Object.String())
	assert.Equal(t, "Kind(9)", flatjson.Kind(9).String())
}

func TestReadValue(t *testing.T) {
	t.Parallel()
	v, err := flatjson.ReadValue(strings.NewReader(`{"a": 1}`))
	require.NoError(t, err)
	assert.Equal(t, flatjson.Object, v.Kind())
}

func TestReadValueIOError(t *testing.T) {
	t.Parallel()
	errBoom := errors.New("boom")
	_, err := flatjson.ReadValue(iotest.ErrReader(errBoom))
	var ioErr *flatjson.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "read", ioErr.Op)
	assert.ErrorIs(t, err, errBoom)
}

func TestParseErrorMessage(t *testing.T) {
	t.Parallel()
	_, err := flatjson.Parse([]byte(`{"a": tru}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON at offset")
	assert.Contains(t, err.Error(), "invalid character")
}

func TestParseDepth(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		doc    string
		limit  int
		offset int64
	}{
		"within limit":        {doc: `[[1]]`, limit: 2, offset: -1},
		"one over":            {doc: `[[1]]`, limit: 1, offset: 1},
		"mixed brackets":      {doc: `{"a": [{"b": 1}]}`, limit: 2, offset: 7},
		"brackets in strings": {doc: `["[[[{{{", "\"[["]`, limit: 1, offset: -1},
		"siblings":            {doc: `[[1], [2], [3]]`, limit: 2, offset: -1},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := flatjson.ParseDepth([]byte(tt.doc), tt.limit)
			if tt.offset < 0 {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, flatjson.ErrMaxDepth)
			var perr *flatjson.ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.offset, perr.Offset)
		})
	}
}

func TestParseRejectsDeepNesting(t *testing.T) {
	t.Parallel()
	n := flatjson.DefaultParseDepth + 1
	doc := []byte(strings.Repeat("[", n) + strings.Repeat("]", n))
	_, err := flatjson.Parse(doc)
	require.ErrorIs(t, err, flatjson.ErrMaxDepth)

	_, err = flatjson.Parse(doc[1 : len(doc)-1])
	require.NoError(t, err)
}

func TestIOErrorMessage(t *testing.T) {
	t.Parallel()
	err := &flatjson.IOError{Op: "write", Path: "out.csv", Err: errors.New("disk full")}
	assert.Equal(t, `write "out.csv": disk full`, err.Error())
	err = &flatjson.IOError{Op: "read", Err: errors.New("closed")}
	assert.Equal(t, "read: closed", err.Error())
}
