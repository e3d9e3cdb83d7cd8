package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"sync/atomic"

	"git.home.luguber.info/inful/sitebuilder/internal/collections"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
)

func (p *Pipeline) load(ctx context.Context, pass *Pass) error {
	files, err := content.Load(ctx, pass.Source, content.LoadOptions{
		Skip:        []string{p.cfg.Locales.MetadataFile},
		Ignore:      p.cfg.Build.Ignore,
		Concurrency: p.cfg.Build.Concurrency,
	})
	if err != nil {
		return err
	}
	pass.Files = files
	pass.Report.Count(StageLoad, files.Len())
	return nil
}

func (p *Pipeline) collect(_ context.Context, pass *Pass) error {
	defs := make([]collections.Definition, 0, len(p.cfg.Collections))
	for _, c := range p.cfg.Collections {
		defs = append(defs, collections.Definition{
			Name:    c.Name,
			Pattern: c.Pattern,
			SortBy:  c.SortBy,
			Reverse: c.Reverse,
			Limit:   c.Limit,
		})
	}
	set, err := collections.Compute(pass.Files, defs)
	if err != nil {
		return err
	}
	pass.Collections = set

	members := 0
	for _, name := range set.Names() {
		members += len(set.Get(name))
	}
	pass.Report.Count(StageCollect, members)
	return nil
}

func isMarkdown(it *content.Item) bool {
	switch it.Ext() {
	case ".md", ".markdown":
		return true
	}
	return false
}

// convert turns markdown items into HTML. Renames happen after every
// conversion finished so the item set is only mutated from one goroutine.
func (p *Pipeline) convert(ctx context.Context, pass *Pass) error {
	targets := pass.Files.Filter(isMarkdown)

	eg, ctx := p.group(ctx)
	for _, it := range targets {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := p.converter.Convert(it.Contents)
			if err != nil {
				return fmt.Errorf("%s: %w", it.Path, err)
			}
			it.Contents = out
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	for _, it := range targets {
		to := strings.TrimSuffix(it.Path, path.Ext(it.Path)) + ".html"
		// converted markdown replaces an html source of the same name
		if err := pass.Files.Move(it.Path, to); err != nil {
			return err
		}
	}
	pass.Report.Count(StageConvert, len(targets))
	return nil
}

// highlight rewrites code blocks of every HTML item. When any block was
// highlighted and the tree has no stylesheet at the configured path, the
// token stylesheet is added.
func (p *Pipeline) highlight(ctx context.Context, pass *Pass) error {
	targets := pass.Files.Filter(func(it *content.Item) bool { return it.Ext() == ".html" })

	var changed atomic.Int64
	eg, ctx := p.group(ctx)
	for _, it := range targets {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, ok, err := p.highlighter.Highlight(it.Contents)
			if err != nil {
				return fmt.Errorf("%s: %w", it.Path, err)
			}
			if ok {
				it.Contents = out
				changed.Add(1)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	cssPath := p.cfg.Markdown.HighlightCSS
	if _, exists := pass.Files.Get(cssPath); changed.Load() > 0 && cssPath != "" && !exists {
		var buf bytes.Buffer
		if err := p.highlighter.WriteCSS(&buf); err != nil {
			return fmt.Errorf("highlight stylesheet: %w", err)
		}
		pass.Files.Put(&content.Item{Path: cssPath, Contents: buf.Bytes(), Meta: map[string]any{}, Mode: 0o644})
	}
	pass.Report.Count(StageHighlight, int(changed.Load()))
	return nil
}
