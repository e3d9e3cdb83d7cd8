// Package feed renders collections as RSS documents.
package feed

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"git.home.luguber.info/inful/sitebuilder/internal/collections"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/frontmatter"
	"git.home.luguber.info/inful/sitebuilder/internal/permalink"
)

// DefaultLimit caps the number of entries in a feed.
const DefaultLimit = 20

// ErrMissingSiteURL is returned when no absolute site URL is available for item links.
var ErrMissingSiteURL = errors.New("feed requires a site url")

// ErrUnknownCollection is returned when a feed names a collection that was not computed.
var ErrUnknownCollection = errors.New("feed collection not defined")

// Definition maps a collection to a feed document.
type Definition struct {
	Collection  string
	Destination string
	Title       string
	Description string
	Limit       int
}

// Options carry the per-feed values a Generator needs.
type Options struct {
	Title       string
	Description string
	SiteURL     string
	Limit       int
}

// Generator serializes an ordered list of items into a feed document.
type Generator interface {
	Generate(items []*content.Item, opts Options) ([]byte, error)
}

// RSSGenerator produces RSS 2.0 documents.
type RSSGenerator struct{}

// NewGenerator returns the RSS generator.
func NewGenerator() *RSSGenerator { return &RSSGenerator{} }

// Generate builds the feed from items in the order given. Timestamps come
// from item dates only, so unchanged input yields byte-identical output.
func (g *RSSGenerator) Generate(items []*content.Item, opts Options) ([]byte, error) {
	if opts.SiteURL == "" {
		return nil, ErrMissingSiteURL
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(items) > limit {
		items = items[:limit]
	}
	base := strings.TrimRight(opts.SiteURL, "/")

	f := &feeds.Feed{
		Title:       opts.Title,
		Link:        &feeds.Link{Href: base + "/"},
		Description: opts.Description,
	}
	if f.Description == "" {
		f.Description = opts.Title
	}

	var newest time.Time
	for _, it := range items {
		link := base + "/" + itemPath(it)
		entry := &feeds.Item{
			Title:       it.String("title"),
			Link:        &feeds.Link{Href: link},
			Id:          link,
			Description: description(it),
		}
		if author := it.String("author"); author != "" {
			entry.Author = &feeds.Author{Name: author}
		}
		if d, ok := frontmatter.Date(it.Meta["date"]); ok {
			entry.Created = d
			if d.After(newest) {
				newest = d
			}
		}
		f.Add(entry)
	}
	f.Created = newest

	rss, err := f.ToRss()
	if err != nil {
		return nil, fmt.Errorf("encode rss: %w", err)
	}
	return []byte(rss), nil
}

// itemPath prefers the permalink URL path over the output file path.
func itemPath(it *content.Item) string {
	if p, ok := it.Meta[permalink.MetaKey].(string); ok && p != "" {
		return p + "/"
	}
	return it.Path
}

func description(it *content.Item) string {
	for _, key := range []string{"excerpt", "description"} {
		if s := it.String(key); s != "" {
			return s
		}
	}
	return string(it.Contents)
}

// Emit generates every defined feed from set and adds the documents to files
// at their destinations. It returns the destinations written.
func Emit(files *content.Files, set *collections.Set, defs []Definition, siteURL string, gen Generator) ([]string, error) {
	known := make(map[string]bool, len(set.Names()))
	for _, n := range set.Names() {
		known[n] = true
	}

	var written []string
	for _, def := range defs {
		if !known[def.Collection] {
			return written, fmt.Errorf("%w: %s", ErrUnknownCollection, def.Collection)
		}
		data, err := gen.Generate(set.Get(def.Collection), Options{
			Title:       def.Title,
			Description: def.Description,
			SiteURL:     siteURL,
			Limit:       def.Limit,
		})
		if err != nil {
			return written, fmt.Errorf("feed %s: %w", def.Destination, err)
		}
		files.Put(&content.Item{
			Path:     def.Destination,
			Contents: data,
			Meta:     map[string]any{},
			Mode:     0o644,
		})
		written = append(written, def.Destination)
	}
	return written, nil
}
