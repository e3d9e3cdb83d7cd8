package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/sitebuilder/internal/feed"
	"git.home.luguber.info/inful/sitebuilder/internal/metadata"
	"git.home.luguber.info/inful/sitebuilder/internal/permalink"
	"git.home.luguber.info/inful/sitebuilder/internal/render"
)

func (p *Pipeline) permalink(_ context.Context, pass *Pass) error {
	moved, err := permalink.Assign(pass.Files, permalink.Options{
		Pattern: p.cfg.Permalinks.Pattern,
		Locale:  pass.Locale,
	})
	if err != nil {
		return err
	}
	pass.Report.Count(StagePermalink, moved)
	return nil
}

// siteURL reads the absolute site URL from the resolved document, falling
// back to the configured one.
func siteURL(doc *metadata.Document, fallback string) string {
	if doc != nil {
		if v, ok := doc.Lookup("url"); ok && v.Kind() == metadata.KindScalar && v.String() != "" {
			return v.String()
		}
	}
	return fallback
}

func (p *Pipeline) emitFeeds(_ context.Context, pass *Pass) error {
	defs := make([]feed.Definition, 0, len(p.cfg.Feeds))
	for _, f := range p.cfg.Feeds {
		defs = append(defs, feed.Definition{
			Collection:  f.Collection,
			Destination: f.Destination,
			Title:       f.Title,
			Description: f.Description,
			Limit:       f.Limit,
		})
	}
	written, err := feed.Emit(pass.Files, pass.Collections, defs, siteURL(pass.Resolved, p.cfg.Site.URL), p.feeds)
	if err != nil {
		return err
	}
	pass.Report.Count(StageFeeds, len(written))
	return nil
}

func (p *Pipeline) render(ctx context.Context, pass *Pass) error {
	r, err := p.renderer(pass)
	if err != nil {
		return err
	}
	n, err := render.Apply(ctx, pass.Files, r, p.cfg.Render.Pattern, render.Globals{
		Locale:      pass.Locale,
		Site:        pass.Resolved,
		Project:     p.cfg.Project,
		Collections: pass.Collections,
	}, p.cfg.Build.Concurrency)
	if err != nil {
		return err
	}
	pass.Report.Count(StageRender, n)
	return nil
}

// write stores every item below the pass destination. Existing files are
// overwritten; files not produced by this pass are left in place.
func (p *Pipeline) write(ctx context.Context, pass *Pass) error {
	items := pass.Files.Items()

	eg, ctx := p.group(ctx)
	for _, it := range items {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			dest := filepath.Join(pass.Destination, filepath.FromSlash(it.Path))
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return fmt.Errorf("create directory for %s: %w", it.Path, err)
			}
			mode := it.Mode.Perm()
			if mode == 0 {
				mode = 0o644
			}
			if err := os.WriteFile(dest, it.Contents, mode); err != nil {
				return fmt.Errorf("write %s: %w", it.Path, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	paths := make([]string, len(items))
	for i, it := range items {
		paths[i] = it.Path
	}
	pass.Report.addOutputs(paths)
	pass.Report.Count(StageWrite, len(items))
	return nil
}
