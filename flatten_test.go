package flatjson_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bjaus/flatjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatten(t *testing.T, doc string, opts flatjson.Options) []flatjson.Row {
	t.Helper()
	rows, err := flatjson.FlattenBytes([]byte(doc), opts)
	require.NoError(t, err)
	return rows
}

func cells(rows []flatjson.Row) []map[string]string {
	out := make([]map[string]string, len(rows))
	for i, r := range rows {
		out[i] = r.Strings()
	}
	return out
}

func TestFlatten(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		doc  string
		opts flatjson.Options
		want []map[string]string
	}{
		"nested object": {
			doc:  `{"a": 1, "b": {"c": 2}}`,
			want: []map[string]string{{"a": "1", "b.c": "2"}},
		},
		"custom separator": {
			doc:  `{"a": 1, "b": {"c": 2}}`,
			opts: flatjson.Options{Separator: "_"},
			want: []map[string]string{{"a": "1", "b_c": "2"}},
		},
		"indexed arrays": {
			doc:  `{"tags": ["x", "y"], "empty": [], "obj": {}}`,
			want: []map[string]string{{"tags.0": "x", "tags.1": "y"}},
		},
		"json arrays": {
			doc:  `{"tags": ["x", {"k": 1}], "empty": []}`,
			opts: flatjson.Options{Arrays: flatjson.ArrayJSON},
			want: []map[string]string{{"tags": `["x",{"k":1}]`, "empty": "[]"}},
		},
		"root array yields one row per element": {
			doc:  `[{"id": 1}, {"id": 2, "x": true}]`,
			want: []map[string]string{{"id": "1"}, {"id": "2", "x": "true"}},
		},
		"scalar records": {
			doc:  `[1, null, "x"]`,
			want: []map[string]string{{"value": "1"}, {"value": ""}, {"value": "x"}},
		},
		"scalar root": {
			doc:  `42`,
			want: []map[string]string{{"value": "42"}},
		},
		"nested array records are indexed": {
			doc:  `[[1, 2], [3]]`,
			opts: flatjson.Options{Arrays: flatjson.ArrayJSON},
			want: []map[string]string{{"0": "1", "1": "2"}, {"0": "3"}},
		},
		"unbundle path": {
			doc: `{"resourceType": "Bundle", "entry": [
				{"id": "1", "resource": {"name": [{"given": ["Ann"]}]}},
				{"id": "2"}
			]}`,
			opts: flatjson.Options{Path: "entry"},
			want: []map[string]string{
				{"id": "1", "resource.name.0.given.0": "Ann"},
				{"id": "2"},
			},
		},
		"unbundle path to object": {
			doc:  `{"meta": {"v": "1.50"}}`,
			opts: flatjson.Options{Path: "meta"},
			want: []map[string]string{{"v": "1.50"}},
		},
		"strip newlines": {
			doc:  `{"note": "a\nb\r\nc\rd"}`,
			opts: flatjson.Options{StripNewlines: true},
			want: []map[string]string{{"note": "abcd"}},
		},
		"newlines kept by default": {
			doc:  `{"note": "a\nb"}`,
			want: []map[string]string{{"note": "a\nb"}},
		},
		"number literal kept": {
			doc:  `{"n": 1.50, "e": 1e3, "neg": -0.0}`,
			want: []map[string]string{{"n": "1.50", "e": "1e3", "neg": "-0.0"}},
		},
		"escaped keys": {
			doc:  `{"ké": "vé"}`,
			want: []map[string]string{{"ké": "vé"}},
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, cells(flatten(t, tt.doc, tt.opts)))
		})
	}
}

func TestFlattenEmptyYieldsNoRows(t *testing.T) {
	t.Parallel()
	for _, doc := range []string{`{}`, `[]`, `[{}, {"a": {}}, []]`} {
		rows := flatten(t, doc, flatjson.Options{})
		assert.Empty(t, rows, doc)
	}
}

func TestFlattenColumnOrder(t *testing.T) {
	t.Parallel()
	rows := flatten(t, `{"z": 1, "a": {"y": 2, "b": 3}, "m": [4]}`, flatjson.Options{})
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"z", "a.y", "a.b", "m.0"}, rows[0].Columns())
}

func TestFlattenColumnCollisionKeepsFirstPositionLastValue(t *testing.T) {
	t.Parallel()
	rows := flatten(t, `{"a.b": 1, "c": 3, "a": {"b": 2}}`, flatjson.Options{})
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"a.b", "c"}, rows[0].Columns())
	v, ok := rows[0].Get("a.b")
	require.True(t, ok)
	assert.Equal(t, "2", v.String())
}

func TestFlattenDuplicateKeys(t *testing.T) {
	t.Parallel()
	rows := flatten(t, `{"a": 1, "a": 2}`, flatjson.Options{})
	require.Len(t, rows, 1)
	assert.Equal(t, map[string]string{"a": "2"}, rows[0].Strings())
}

func TestFlattenCellKinds(t *testing.T) {
	t.Parallel()
	rows := flatten(t, `{"s": "x", "n": 1, "b": false, "z": null}`, flatjson.Options{})
	require.Len(t, rows, 1)
	m := rows[0].Map()
	assert.Equal(t, flatjson.String, m["s"].Kind())
	assert.Equal(t, flatjson.Number, m["n"].Kind())
	assert.Equal(t, flatjson.Bool, m["b"].Kind())
	assert.Equal(t, flatjson.Null, m["z"].Kind())
}

func TestFlattenCellsAreScalars(t *testing.T) {
	t.Parallel()
	docs := []string{
		`{"a": [[1, [2, {"b": [3]}]], {"c": {"d": null}}]}`,
		`[{"x": [{"y": [true]}]}, [[["deep"]]]]`,
	}
	for _, policy := range []flatjson.ArrayPolicy{flatjson.ArrayIndex, flatjson.ArrayJSON} {
		for _, doc := range docs {
			for _, row := range flatten(t, doc, flatjson.Options{Arrays: policy}) {
				for _, c := range row {
					assert.True(t, c.Value.IsScalar(), "%s: column %q is %s", doc, c.Column, c.Value.Kind())
				}
			}
		}
	}
}

func TestFlattenIdempotent(t *testing.T) {
	t.Parallel()
	doc := []byte(`{"entry": [{"a": [1, 2], "b": {"c": "x\ny"}}, {"d": null}]}`)
	opts := flatjson.Options{Path: "entry", StripNewlines: true}
	first, err := flatjson.FlattenBytes(doc, opts)
	require.NoError(t, err)
	second, err := flatjson.FlattenBytes(doc, opts)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFlattenParseError(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"truncated":      `{"a": `,
		"trailing comma": `{"a": 1,}`,
		"empty":          ``,
		"whitespace":     "  \n",
		"garbage":        `hello`,
		"two documents":  `{} {}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			rows, err := flatjson.FlattenBytes([]byte(doc), flatjson.Options{})
			require.Error(t, err)
			assert.Nil(t, rows)
			var perr *flatjson.ParseError
			require.ErrorAs(t, err, &perr)
			assert.ErrorIs(t, err, flatjson.ErrInvalidJSON)
			assert.GreaterOrEqual(t, perr.Offset, int64(0))
		})
	}
}

func TestFlattenPathNotFound(t *testing.T) {
	t.Parallel()
	_, err := flatjson.FlattenBytes([]byte(`{"resourceType": "Bundle"}`), flatjson.Options{Path: "entry"})
	require.ErrorIs(t, err, flatjson.ErrPathNotFound)
	assert.Contains(t, err.Error(), `"entry"`)
}

func TestFlattenMaxDepth(t *testing.T) {
	t.Parallel()
	doc := []byte(`{"a": {"b": {"c": 1}}}`)
	_, err := flatjson.FlattenBytes(doc, flatjson.Options{MaxDepth: 1})
	require.ErrorIs(t, err, flatjson.ErrMaxDepth)

	rows, err := flatjson.FlattenBytes(doc, flatjson.Options{MaxDepth: 3})
	require.NoError(t, err)
	assert.Equal(t, []map[string]string{{"a.b.c": "1"}}, cells(rows))
}

func TestFlattenMaxDepthMessage(t *testing.T) {
	t.Parallel()
	doc := `{"a": ` + strings.Repeat(`{"long_key": `, 20) + `1` + strings.Repeat(`}`, 20) + `}`
	_, err := flatjson.FlattenBytes([]byte(doc), flatjson.Options{MaxDepth: 10})
	require.ErrorIs(t, err, flatjson.ErrMaxDepth)
	assert.Equal(t, "maximum nesting depth exceeded: more than 10 levels below a record", err.Error())
}

func TestFlattenRejectsDeepDocumentQuickly(t *testing.T) {
	t.Parallel()
	const n = 100_000
	doc := []byte(strings.Repeat("[", n) + strings.Repeat("]", n))

	start := time.Now()
	_, err := flatjson.FlattenBytes(doc, flatjson.Options{})
	elapsed := time.Since(start)

	require.ErrorIs(t, err, flatjson.ErrMaxDepth)
	var perr *flatjson.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, int64(flatjson.DefaultParseDepth), perr.Offset)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestFlattenDeepPathWithinParseDepth(t *testing.T) {
	t.Parallel()
	doc := strings.Repeat(`{"a": `, 1100) + `[{"x": 1}]` + strings.Repeat(`}`, 1100)
	path := strings.TrimSuffix(strings.Repeat("a.", 1100), ".")
	rows := flatten(t, doc, flatjson.Options{Path: path, MaxDepth: 100})
	assert.Equal(t, []map[string]string{{"x": "1"}}, cells(rows))
}

func TestRowsStopsEarly(t *testing.T) {
	t.Parallel()
	v, err := flatjson.Parse([]byte(`[{"a": 1}, {"a": 2}, {"a": 3}]`))
	require.NoError(t, err)
	var got []string
	for row, err := range flatjson.Rows(v, flatjson.Options{}) {
		require.NoError(t, err)
		val, _ := row.Get("a")
		got = append(got, val.String())
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"1", "2"}, got)
}

func TestRowsYieldsErrorOnce(t *testing.T) {
	t.Parallel()
	v, err := flatjson.Parse([]byte(`[{"a": 1}, {"a": {"b": {"c": 1}}}, {"a": 3}]`))
	require.NoError(t, err)
	var n, errs int
	for _, err := range flatjson.Rows(v, flatjson.Options{MaxDepth: 1}) {
		if err != nil {
			errs++
			assert.True(t, errors.Is(err, flatjson.ErrMaxDepth))
			continue
		}
		n++
	}
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, errs)
}

func TestParseArrayPolicy(t *testing.T) {
	t.Parallel()
	p, err := flatjson.ParseArrayPolicy("json")
	require.NoError(t, err)
	assert.Equal(t, flatjson.ArrayJSON, p)
	assert.Equal(t, "index", flatjson.ArrayIndex.String())

	_, err = flatjson.ParseArrayPolicy("explode")
	assert.Error(t, err)
}
