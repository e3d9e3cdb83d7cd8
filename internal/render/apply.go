package render

import (
	"context"
	"fmt"
	"maps"
	"path"

	"github.com/aymerick/raymond"
	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/sitebuilder/internal/collections"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/metadata"
)

// LayoutKey is the front matter key naming an item's layout.
const LayoutKey = "layout"

// Globals are the pass-wide values every template context receives.
type Globals struct {
	Locale      string
	Site        *metadata.Document
	Project     map[string]any
	Collections *collections.Set
}

// Apply renders every item whose path matches pattern and that names a
// layout, replacing its contents with the rendered page. Renders run
// concurrently, bounded by limit. It returns the number of rendered items.
func Apply(ctx context.Context, files *content.Files, r Renderer, pattern string, g Globals, limit int) (int, error) {
	targets := files.Filter(func(it *content.Item) bool {
		if it.String(LayoutKey) == "" {
			return false
		}
		ok, _ := doublestar.Match(pattern, it.Path)
		return ok
	})

	base := g.context()
	eg, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		eg.SetLimit(limit)
	}
	for _, it := range targets {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := r.Render(it.String(LayoutKey), itemContext(base, it))
			if err != nil {
				return fmt.Errorf("%s: %w", it.Path, err)
			}
			it.Contents = out
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}
	return len(targets), nil
}

// context builds the shared part of every template context. Collections are
// exposed both under "collections" and by name at the root.
func (g Globals) context() map[string]any {
	site := map[string]any{}
	if g.Site != nil {
		site = g.Site.Native()
	}
	project := g.Project
	if project == nil {
		project = map[string]any{}
	}

	ctx := map[string]any{}
	var cols map[string]any
	if g.Collections != nil {
		cols = g.Collections.Native()
		maps.Copy(ctx, cols)
	}
	ctx["collections"] = cols
	ctx["site"] = site
	ctx["i18n"] = site
	ctx["project"] = project
	ctx["locale"] = g.Locale
	return ctx
}

// itemContext layers the item's front matter over the globals; contents is
// the converted page body and is inserted unescaped.
func itemContext(base map[string]any, it *content.Item) map[string]any {
	ctx := make(map[string]any, len(base)+len(it.Meta)+2)
	maps.Copy(ctx, base)
	maps.Copy(ctx, it.Meta)
	if _, ok := it.Meta["title"]; !ok {
		name := it.Base()
		if p := it.String("path"); name == "index" && p != "" {
			name = path.Base(p)
		}
		ctx["title"] = TitleFromName(name)
	}
	ctx["contents"] = raymond.SafeString(it.Contents)
	return ctx
}
