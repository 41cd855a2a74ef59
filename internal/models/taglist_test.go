package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  any
		want []string
	}{
		{name: "nil", raw: nil, want: []string{}},
		{name: "native list", raw: []string{" go ", "", "rust"}, want: []string{"go", "rust"}},
		{name: "any list", raw: []any{"cad", nil, 3, "  "}, want: []string{"cad", "3"}},
		{name: "json array string", raw: `["welding", " electronics "]`, want: []string{"welding", "electronics"}},
		{name: "json encoded string", raw: `"a, b"`, want: []string{"a", "b"}},
		{name: "bracket delimited", raw: "[a, 'b', \"c\"]", want: []string{"a", "b", "c"}},
		{name: "plain csv", raw: "3d printing,  cnc ,", want: []string{"3d printing", "cnc"}},
		{name: "empty string", raw: "   ", want: []string{}},
		{name: "json null", raw: "null", want: []string{}},
		{name: "bytes", raw: []byte(`["x"]`), want: []string{"x"}},
		{name: "tag list", raw: TagList{" y "}, want: []string{"y"}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, NormalizeList(tc.raw))
		})
	}
}

func TestNormalizeList_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []any{
		[]string{" a", "b ", ""},
		`["a","b"]`,
		"[a, b, c]",
		"solo",
		`"x,y"`,
	}
	for _, in := range inputs {
		once := NormalizeList(in)
		twice := NormalizeList(once)
		assert.Equal(t, once, twice, "input %v", in)
		for _, entry := range once {
			assert.NotEmpty(t, entry)
		}
	}
}

func TestTagList_ScanAndValue(t *testing.T) {
	t.Parallel()

	var tags TagList
	require.NoError(t, tags.Scan("design, firmware"))
	assert.Equal(t, TagList{"design", "firmware"}, tags)

	v, err := tags.Value()
	require.NoError(t, err)
	assert.Equal(t, `["design","firmware"]`, v)

	var roundTrip TagList
	require.NoError(t, roundTrip.Scan([]byte(v.(string))))
	assert.Equal(t, tags, roundTrip)

	var empty TagList
	require.NoError(t, empty.Scan(nil))
	assert.Empty(t, empty)
}

func TestTagList_JSON(t *testing.T) {
	t.Parallel()

	var payload struct {
		Skills TagList `json:"skills"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"skills":"[\"ml\", \"optics\"]"}`), &payload))
	assert.Equal(t, TagList{"ml", "optics"}, payload.Skills)

	require.NoError(t, json.Unmarshal([]byte(`{"skills":["a"," "]}`), &payload))
	assert.Equal(t, TagList{"a"}, payload.Skills)

	out, err := json.Marshal(struct {
		Skills TagList `json:"skills"`
	}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"skills":[]}`, string(out))
}
