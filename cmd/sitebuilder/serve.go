package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/server"
	"git.home.luguber.info/inful/sitebuilder/internal/watch"
)

// ServeCmd builds, serves the output tree and rebuilds on change until interrupted.
type ServeCmd struct {
	Port         int  `short:"p" help:"HTTP port (overrides server.port)"`
	NoLiveReload bool `name:"no-live-reload" help:"Do not inject the live reload client"`
	Poll         bool `help:"Poll the trees instead of using filesystem notifications"`
}

func (c *ServeCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s, err := root.loadSite(g)
	if err != nil {
		return err
	}
	cfg := s.cfg
	builder := build.NewBuilder(cfg, s.store, build.WithRecorder(s.recorder))

	session := watch.NewSession(watch.Roots{
		Content:       cfg.LocalesDir(),
		Templates:     cfg.TemplatesDir(),
		Static:        cfg.StaticDir(),
		DefaultLocale: cfg.Locales.Default,
		MetadataFile:  cfg.Locales.MetadataFile,
	})

	port := cfg.Server.Port
	if c.Port != 0 {
		port = c.Port
	}
	opts := server.Options{
		Port:          port,
		Root:          cfg.OutputDir(),
		DefaultLocale: cfg.Locales.Default,
		LiveReload:    cfg.Server.LiveReloadEnabled() && !c.NoLiveReload,
		Logger:        g.Logger,
	}
	if s.registry != nil {
		opts.Metrics = metrics.HTTPHandler(s.registry)
		opts.MetricsPath = cfg.Metrics.Path
	}
	srv := server.New(opts)
	if err := srv.Start(ctx); err != nil {
		return err
	}

	// the watcher runs during the initial build; its rebuilds wait for it
	ready := make(chan struct{})
	sched := watch.NewScheduler(session, builder, watch.Options{
		Debounce:     cfg.Watch.Debounce,
		Poll:         cfg.Watch.Poll || c.Poll,
		PollInterval: cfg.Watch.PollInterval,
		Recorder:     s.recorder,
		Ready:        ready,
		OnRebuilt: func(_ watch.Action, err error) {
			if err == nil {
				srv.NotifyRebuilt()
			}
		},
	})
	runDone := make(chan error, 1)
	go func() { runDone <- sched.Run(ctx) }()

	// failures are reported and serving continues
	if _, err := builder.FullBuild(ctx); err != nil {
		g.Logger.Error("initial build failed", logfields.Error(err))
	}
	close(ready)
	srv.NotifyRebuilt()

	runErr := <-runDone

	g.Logger.Info("shutting down")
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := srv.Stop(stopCtx); err != nil {
		g.Logger.Warn("server shutdown failed", logfields.Error(err))
	}
	if runErr != nil {
		g.Logger.Error("watcher stopped", logfields.Error(runErr))
	}
	return runErr
}
