// Package content holds the in-memory file set a build pass operates on.
package content

import (
	"io/fs"
	"path"
	"strings"
	"time"
)

// Item is one source file flowing through the pipeline.
type Item struct {
	// Path is the slash-separated output path relative to the locale
	// destination. Stages rename items by changing it through Files.Rename.
	Path string
	// SourcePath is the file the item was loaded from.
	SourcePath string
	Contents   []byte
	Meta       map[string]any
	Mode       fs.FileMode
	ModTime    time.Time
}

// Ext returns the lower-cased extension of the output path.
func (it *Item) Ext() string { return strings.ToLower(path.Ext(it.Path)) }

// Dir returns the directory part of the output path ("" for the root).
func (it *Item) Dir() string {
	d := path.Dir(it.Path)
	if d == "." {
		return ""
	}
	return d
}

// Base returns the file name without extension.
func (it *Item) Base() string {
	b := path.Base(it.Path)
	return strings.TrimSuffix(b, path.Ext(b))
}

// String returns the front matter value under key when it is a string.
func (it *Item) String(key string) string {
	s, _ := it.Meta[key].(string)
	return s
}

// IsFalse reports whether the front matter value under key is explicitly false.
func (it *Item) IsFalse(key string) bool {
	b, ok := it.Meta[key].(bool)
	return ok && !b
}
