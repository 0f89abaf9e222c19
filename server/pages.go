package server

import (
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"
)

// Page file names looked up under the document root
const (
	HomePage     = "hello.html"
	NotFoundPage = "404.html"
)

const homeBody = `<!DOCTYPE html>
<html>
<head>
    <title>Hello</title>
</head>
<body>
<h1>Hello, world!</h1>
<p>Welcome to ThreadedHTTP server</p>
</body>
</html>`

const notFoundBody = `<!DOCTYPE html>
<html>
<head>
    <title>404</title>
</head>
<body>
<h1>404 Not Found</h1>
<p>The requested resource was not found.</p>
</body>
</html>`

// fallbackBodies are served when a page file is missing or unreadable
var fallbackBodies = map[string][]byte{
	HomePage:     []byte(homeBody),
	NotFoundPage: []byte(notFoundBody),
}

// Pages loads response bodies from a document root, falling back to the
// built-in HTML when a file cannot be read.
type Pages struct {
	fs     afero.Fs
	root   string
	cache  *Cache
	logger *slog.Logger
}

// NewPages creates a page store. cache may be nil to read files on every call.
func NewPages(fs afero.Fs, root string, cache *Cache, logger *slog.Logger) *Pages {
	return &Pages{
		fs:     fs,
		root:   root,
		cache:  cache,
		logger: logger,
	}
}

// Load returns the body for a page name
func (p *Pages) Load(name string) []byte {
	if p.cache != nil {
		if body, ok := p.cache.Get(name); ok {
			return body
		}
	}

	body, err := afero.ReadFile(p.fs, filepath.Join(p.root, name))
	if err != nil {
		p.logger.Debug("page not readable, using built-in body", "page", name, "error", err)
		return fallbackBody(name)
	}

	if p.cache != nil {
		p.cache.Put(name, body)
	}
	return body
}

// fallbackBody returns the built-in body for a page; unknown pages get the
// not-found body
func fallbackBody(name string) []byte {
	if body, ok := fallbackBodies[name]; ok {
		return body
	}
	return fallbackBodies[NotFoundPage]
}
