// Package permalink moves rendered pages to directory-style URLs.
package permalink

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/frontmatter"
)

// MetaKey is the front matter key that receives the item's URL path.
const MetaKey = "path"

// DefaultPattern places a page at its source directory and base name.
const DefaultPattern = ":dir/:slug"

// ErrUndated is returned when a pattern uses a date placeholder on an item
// without a date.
var ErrUndated = errors.New("permalink pattern needs a date")

// ErrEmptyPermalink is returned when a pattern expands to nothing.
var ErrEmptyPermalink = errors.New("permalink pattern expanded to an empty path")

// Options configures Assign.
type Options struct {
	Pattern string
	Locale  string
}

// Assign moves every HTML item to <permalink>/index.html and records the URL
// path under MetaKey. index.html files keep their place and items with
// "permalink: false" are left alone. It returns the number of moved items.
func Assign(files *content.Files, opts Options) (int, error) {
	pattern := opts.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}

	moved := 0
	for _, it := range files.Items() {
		if it.Ext() != ".html" || it.IsFalse("permalink") {
			continue
		}
		if path.Base(it.Path) == "index.html" {
			setMeta(it, it.Dir())
			continue
		}

		link, err := Expand(pattern, it, opts.Locale)
		if err != nil {
			return moved, fmt.Errorf("%s: %w", it.Path, err)
		}
		if err := files.Rename(it.Path, path.Join(link, "index.html")); err != nil {
			return moved, err
		}
		setMeta(it, link)
		moved++
	}
	return moved, nil
}

func setMeta(it *content.Item, link string) {
	if it.Meta == nil {
		it.Meta = map[string]any{}
	}
	it.Meta[MetaKey] = link
}

// Expand substitutes the placeholders of pattern for it and returns the
// cleaned, slash-separated URL path without leading or trailing slashes.
func Expand(pattern string, it *content.Item, locale string) (string, error) {
	segments := strings.Split(pattern, "/")
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		value, err := expandSegment(seg, it, locale)
		if err != nil {
			return "", err
		}
		if value != "" {
			out = append(out, value)
		}
	}
	link := strings.Trim(path.Clean("/"+strings.Join(out, "/")), "/")
	if link == "" {
		return "", ErrEmptyPermalink
	}
	return link, nil
}

func expandSegment(seg string, it *content.Item, locale string) (string, error) {
	if !strings.HasPrefix(seg, ":") {
		return seg, nil
	}
	switch seg[1:] {
	case "dir":
		return it.Dir(), nil
	case "slug":
		if s := it.String("slug"); s != "" {
			return Slugify(s), nil
		}
		return it.Base(), nil
	case "title":
		if t := it.String("title"); t != "" {
			return Slugify(t), nil
		}
		return it.Base(), nil
	case "locale":
		return locale, nil
	case "year", "month", "day", "date":
		d, ok := frontmatter.Date(it.Meta["date"])
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUndated, seg)
		}
		switch seg[1:] {
		case "year":
			return d.Format("2006"), nil
		case "month":
			return d.Format("01"), nil
		case "day":
			return d.Format("02"), nil
		default:
			return d.Format("2006/01/02"), nil
		}
	}
	return seg, nil
}

// Slugify lowercases s, strips diacritics and collapses every run of
// characters outside [a-z0-9._~] into a single dash.
func Slugify(s string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '~':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
