package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/limn/wire"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, c.Migrate())
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGetMiss(t *testing.T) {
	t.Parallel()
	c := newTestCache(t)

	_, ok, err := c.Get("go", HashText([]byte("package main")), 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutThenGet(t *testing.T) {
	t.Parallel()
	c := newTestCache(t)

	res := &wire.ParseResult{
		Spans: []wire.Span{
			{Start: 0, End: 7, Capture: "keyword"},
			{Start: 14, End: 19, Capture: "variable", Language: "javascript"},
		},
		Injections: []wire.Injection{
			{Start: 14, End: 26, Language: "javascript"},
		},
	}
	hash := HashText([]byte("<script>const x = 1;</script>"))
	require.NoError(t, c.Put("html", hash, 5, res))

	got, ok, err := c.Get("html", hash, 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, res, got)
}

func TestDepthIsPartOfKey(t *testing.T) {
	t.Parallel()
	c := newTestCache(t)

	hash := HashText([]byte("<script></script>"))
	require.NoError(t, c.Put("html", hash, 0, &wire.ParseResult{}))

	_, ok, err := c.Get("html", hash, 5)
	require.NoError(t, err)
	assert.False(t, ok, "results resolved at different depths must not alias")
}

func TestPutReplaces(t *testing.T) {
	t.Parallel()
	c := newTestCache(t)

	hash := HashText([]byte("x"))
	require.NoError(t, c.Put("go", hash, 5, &wire.ParseResult{Spans: []wire.Span{{Start: 0, End: 1, Capture: "variable"}}}))
	require.NoError(t, c.Put("go", hash, 5, &wire.ParseResult{Spans: []wire.Span{{Start: 0, End: 1, Capture: "constant"}}}))

	got, ok, err := c.Get("go", hash, 5)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got.Spans, 1)
	assert.Equal(t, "constant", got.Spans[0].Capture)
}

func TestHashTextStable(t *testing.T) {
	t.Parallel()
	assert.Equal(t, HashText([]byte("abc")), HashText([]byte("abc")))
	assert.NotEqual(t, HashText([]byte("abc")), HashText([]byte("abd")))
	assert.Len(t, HashText(nil), 64)
}
