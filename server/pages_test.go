package server

import (
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPages_FallbackWhenMissing(t *testing.T) {
	p := NewPages(afero.NewMemMapFs(), "/www", nil, discardLogger())

	assert.Contains(t, string(p.Load(HomePage)), "Hello, world!")
	assert.Contains(t, string(p.Load(NotFoundPage)), "404 Not Found")
	assert.Contains(t, string(p.Load("other.html")), "404 Not Found")
}

func TestPages_ReadsDocRoot(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/www/hello.html", []byte("<h1>custom</h1>"), 0o644))
	p := NewPages(fs, "/www", nil, discardLogger())

	assert.Equal(t, "<h1>custom</h1>", string(p.Load(HomePage)))
	assert.Contains(t, string(p.Load(NotFoundPage)), "404 Not Found")

	// without a cache edits show up immediately
	require.NoError(t, afero.WriteFile(fs, "/www/hello.html", []byte("<h1>edited</h1>"), 0o644))
	assert.Equal(t, "<h1>edited</h1>", string(p.Load(HomePage)))
}

func TestPages_Cache(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/www/hello.html", []byte("v1"), 0o644))
	cache := NewCache(4)
	p := NewPages(fs, "/www", cache, discardLogger())

	assert.Equal(t, "v1", string(p.Load(HomePage)))
	require.NoError(t, afero.WriteFile(fs, "/www/hello.html", []byte("v2"), 0o644))
	assert.Equal(t, "v1", string(p.Load(HomePage)), "served from cache")

	// fallbacks are not cached
	p.Load(NotFoundPage)
	assert.Equal(t, 1, cache.Len())
}
