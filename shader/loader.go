package shader

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// Loader turns a shader path into a Module for one language.
//
// Load may block (a loader can fetch sources from disk or the network) and
// must honor ctx cancellation. Parse and validation failures are returned as
// *CompileError.
type Loader interface {
	Load(ctx context.Context, path string, lang Language) (*Module, error)
}

// DefaultCacheSize is the number of parsed modules an FSLoader keeps.
const DefaultCacheSize = 64

//go:embed shaders/*
var builtinFS embed.FS

var (
	builtinOnce   sync.Once
	builtinLoader *FSLoader
)

// Builtin returns the shared loader over the embedded shaders.
func Builtin() *FSLoader {
	builtinOnce.Do(func() {
		sub, err := fs.Sub(builtinFS, "shaders")
		if err != nil {
			panic(fmt.Sprintf("shader: embedded shaders: %v", err))
		}
		builtinLoader = NewFSLoader(sub, DefaultCacheSize)
	})
	return builtinLoader
}

// FSLoader loads shader sources from an fs.FS.
//
// Parsed modules are kept in an LRU cache keyed by file name, so repeated
// loads of the same shader (for example across backend switches) skip the
// naga compilation. FSLoader is safe for concurrent use.
type FSLoader struct {
	fsys  fs.FS
	cache *lru.Cache
}

// NewFSLoader creates a loader reading from fsys and caching up to size
// modules. A size below 1 uses DefaultCacheSize.
func NewFSLoader(fsys fs.FS, size int) *FSLoader {
	if size < 1 {
		size = DefaultCacheSize
	}
	c, err := lru.New(size)
	if err != nil {
		// lru.New only fails for a non-positive size.
		panic(err)
	}
	return &FSLoader{fsys: fsys, cache: c}
}

// Load reads path+lang.Ext() and parses it.
func (l *FSLoader) Load(ctx context.Context, path string, lang Language) (*Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ext := lang.Ext()
	if ext == "" {
		return nil, &CompileError{Path: path, Lang: lang, Err: ErrUnknownLanguage}
	}
	name := path + ext
	if v, ok := l.cache.Get(name); ok {
		return v.(*Module), nil
	}

	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("shader: load %s: %w", name, err)
	}
	mod, err := Parse(path, lang, string(data))
	if err != nil {
		return nil, err
	}
	l.cache.Add(name, mod)
	return mod, nil
}

// Cached reports how many parsed modules are held.
func (l *FSLoader) Cached() int {
	return l.cache.Len()
}

// Purge drops every cached module.
func (l *FSLoader) Purge() {
	l.cache.Purge()
}
