package main

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// BuildCmd runs one full build and fails when any locale fails.
type BuildCmd struct{}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	s, err := root.loadSite(g)
	if err != nil {
		return err
	}
	builder := build.NewBuilder(s.cfg, s.store, build.WithRecorder(s.recorder))

	res, err := builder.FullBuild(context.Background())
	if err != nil {
		return err
	}
	g.Logger.Info("build complete",
		slog.Int("locales", len(res.Locales)),
		logfields.Elapsed(res.Duration),
		logfields.Path(s.cfg.OutputDir()))
	return nil
}
