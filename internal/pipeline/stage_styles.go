package pipeline

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/stylesheet"
)

func (p *Pipeline) filterPartials(_ context.Context, pass *Pass) error {
	removed := stylesheet.FilterPartials(pass.Files, p.cfg.Stylesheets.Partials)
	pass.Report.Count(StageFilterPartials, len(removed))
	return nil
}

// compileStyles compiles every stylesheet loaded from the locale tree.
// Generated stylesheets have no source path and are left as they are.
func (p *Pipeline) compileStyles(ctx context.Context, pass *Pass) error {
	targets := pass.Files.Filter(func(it *content.Item) bool {
		return it.Ext() == ".css" && it.SourcePath != ""
	})

	eg, ctx := p.group(ctx)
	for _, it := range targets {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := p.compiler.Compile(it.Contents, it.SourcePath)
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
	pass.Report.Count(StageCompileStyles, len(targets))
	return nil
}
