package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metadata"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/observability"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
)

// Builder runs locale builds, full builds and static copies for one site.
type Builder struct {
	cfg      *config.Config
	store    *metadata.Store
	pipeline *pipeline.Pipeline
	recorder metrics.Recorder
}

// Option customizes a Builder.
type Option func(*Builder)

// WithRecorder sets the metrics recorder used by the builder and its pipeline.
func WithRecorder(r metrics.Recorder) Option {
	return func(b *Builder) { b.recorder = r }
}

// WithPipeline replaces the pipeline built from the configuration.
func WithPipeline(p *pipeline.Pipeline) Option {
	return func(b *Builder) { b.pipeline = p }
}

// NewBuilder creates a Builder for cfg reading locale documents from store.
func NewBuilder(cfg *config.Config, store *metadata.Store, opts ...Option) *Builder {
	b := &Builder{cfg: cfg, store: store, recorder: metrics.NoopRecorder{}}
	for _, opt := range opts {
		opt(b)
	}
	if b.pipeline == nil {
		b.pipeline = pipeline.New(cfg, pipeline.WithRecorder(b.recorder))
	}
	return b
}

// LocaleResult describes one finished locale build.
type LocaleResult struct {
	Locale   string
	Duration time.Duration
	Report   *pipeline.Report
}

// FullResult describes a full build.
type FullResult struct {
	Locales   []string
	Results   map[string]*LocaleResult
	Failed    map[string]error
	StaticErr error
	Duration  time.Duration
}

// Succeeded reports whether every locale built. Static copy failures do not count.
func (r *FullResult) Succeeded() bool { return len(r.Failed) == 0 }

// BuildLocale re-reads the locale's metadata, resolves it against the default
// locale and runs one pipeline pass into <output>/<locale>.
func (b *Builder) BuildLocale(ctx context.Context, locale string) (*LocaleResult, error) {
	start := time.Now()
	ctx = observability.WithLocale(ctx, locale)

	res := &LocaleResult{Locale: locale}
	err := b.buildLocale(ctx, locale, res)
	res.Duration = time.Since(start)

	switch {
	case err == nil:
		b.recorder.ObserveLocaleBuild(locale, res.Duration, metrics.BuildOutcomeSuccess)
		observability.InfoContext(ctx, "locale build finished",
			logfields.Elapsed(res.Duration),
			logfields.Items(len(res.Report.Outputs)))
	case errors.Is(err, context.Canceled):
		b.recorder.ObserveLocaleBuild(locale, res.Duration, metrics.BuildOutcomeCanceled)
		observability.WarnContext(ctx, "locale build canceled", logfields.Elapsed(res.Duration))
	default:
		b.recorder.ObserveLocaleBuild(locale, res.Duration, metrics.BuildOutcomeFailed)
		attrs := []slog.Attr{logfields.Elapsed(res.Duration), logfields.Error(err)}
		if ce, ok := ferrors.AsClassified(err); ok {
			attrs = append(attrs, ce.LogAttrs()...)
		}
		observability.ErrorContext(ctx, "locale build failed", attrs...)
	}
	return res, err
}

func (b *Builder) buildLocale(ctx context.Context, locale string, res *LocaleResult) error {
	if err := b.store.Refresh(locale, b.store.DefaultLocale()); err != nil {
		return err
	}
	resolved, err := b.store.Resolve(locale)
	if err != nil {
		return err
	}

	pass := pipeline.NewPass(locale,
		filepath.Join(b.cfg.LocalesDir(), locale),
		filepath.Join(b.cfg.OutputDir(), locale),
		resolved)
	res.Report = pass.Report
	ctx = observability.WithBuildID(ctx, pass.ID)
	return b.pipeline.Run(ctx, pass)
}

// FullBuild copies the static tree and builds every discovered locale, all
// concurrently. Locale failures are collected and returned joined; the static
// copy result is reported in FullResult only. An unreadable locale root is
// returned as a fatal error.
func (b *Builder) FullBuild(ctx context.Context) (*FullResult, error) {
	start := time.Now()
	res := &FullResult{
		Results: make(map[string]*LocaleResult),
		Failed:  make(map[string]error),
	}

	var static sync.WaitGroup
	static.Add(1)
	go func() {
		defer static.Done()
		res.StaticErr = b.CopyStatic(ctx)
	}()

	locales, err := DiscoverLocales(b.cfg.LocalesDir())
	if err != nil {
		static.Wait()
		return res, err
	}
	res.Locales = locales

	var (
		mu sync.Mutex
		eg errgroup.Group
	)
	for _, locale := range locales {
		eg.Go(func() error {
			lr, err := b.BuildLocale(ctx, locale)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed[locale] = err
			} else {
				res.Results[locale] = lr
			}
			return nil
		})
	}
	_ = eg.Wait()
	static.Wait()
	res.Duration = time.Since(start)

	errs := make([]error, 0, len(res.Failed))
	for _, locale := range locales {
		if err, ok := res.Failed[locale]; ok {
			errs = append(errs, fmt.Errorf("locale %s: %w", locale, err))
		}
	}
	observability.InfoContext(ctx, "full build finished",
		logfields.Elapsed(res.Duration),
		slog.Int("locales", len(locales)),
		slog.Int("failed", len(res.Failed)))
	return res, errors.Join(errs...)
}

// DiscoverLocales lists the locale directories below root in sorted order.
// Hidden directories and plain files are skipped.
func DiscoverLocales(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, ferrors.WrapError(fmt.Errorf("%w: %w", ErrLocaleRoot, err), ferrors.CategoryFileSystem, "failed to list locale root").
			Fatal().
			WithContext("path", root).
			Build()
	}
	var locales []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			locales = append(locales, e.Name())
		}
	}
	return locales, nil
}
