package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestCompatibleVersion(t *testing.T) {
	t.Parallel()
	assert.True(t, CompatibleVersion(Version))
	assert.False(t, CompatibleVersion(Version+1))
	assert.False(t, CompatibleVersion(0))
}

func TestParseResultRoundtrip(t *testing.T) {
	t.Parallel()
	in := ParseResult{
		Spans: []Span{
			{Start: 0, End: 5, Capture: "keyword"},
			{Start: 6, End: 10, Capture: "function"},
		},
		Injections: []Injection{
			{Start: 20, End: 50, Language: "javascript"},
		},
	}

	b, err := msgpack.Marshal(&in)
	require.NoError(t, err)

	var out ParseResult
	require.NoError(t, msgpack.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}

func TestSortSpans(t *testing.T) {
	t.Parallel()
	spans := []Span{
		{Start: 10, End: 12, Capture: "number"},
		{Start: 3, End: 9, Capture: "string"},
		{Start: 3, End: 5, Capture: "keyword"},
		{Start: 3, End: 5, Capture: "variable", Language: "javascript"},
	}
	SortSpans(spans)

	assert.Equal(t, []Span{
		{Start: 3, End: 5, Capture: "keyword"},
		{Start: 3, End: 5, Capture: "variable", Language: "javascript"},
		{Start: 3, End: 9, Capture: "string"},
		{Start: 10, End: 12, Capture: "number"},
	}, spans)
}
