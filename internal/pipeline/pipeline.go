// Package pipeline runs the ordered content stages of a locale build pass.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/feed"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/markdown"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/observability"
	"git.home.luguber.info/inful/sitebuilder/internal/render"
	"git.home.luguber.info/inful/sitebuilder/internal/stylesheet"
)

// ErrPipelineStage marks a pass aborted by a failing stage.
var ErrPipelineStage = errors.New("pipeline stage failed")

// Highlighter rewrites code blocks of an HTML document.
type Highlighter interface {
	Highlight(src []byte) (out []byte, changed bool, err error)
	WriteCSS(w io.Writer) error
}

// RendererFactory creates the template renderer of one pass.
type RendererFactory func(pass *Pass) (render.Renderer, error)

// Pipeline holds the stage list and the collaborators the stages delegate
// to. A Pipeline is stateless between passes and may run passes of
// different locales concurrently.
type Pipeline struct {
	cfg    *config.Config
	stages []StageDef

	converter   markdown.Converter
	highlighter Highlighter
	compiler    stylesheet.Compiler
	feeds       feed.Generator
	renderer    RendererFactory
	observer    Observer
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

func WithConverter(c markdown.Converter) Option {
	return func(p *Pipeline) { p.converter = c }
}

func WithHighlighter(h Highlighter) Option {
	return func(p *Pipeline) { p.highlighter = h }
}

func WithCompiler(c stylesheet.Compiler) Option {
	return func(p *Pipeline) { p.compiler = c }
}

func WithFeedGenerator(g feed.Generator) Option {
	return func(p *Pipeline) { p.feeds = g }
}

func WithRendererFactory(f RendererFactory) Option {
	return func(p *Pipeline) { p.renderer = f }
}

func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

func WithRecorder(r metrics.Recorder) Option {
	return func(p *Pipeline) { p.observer = Observers{LogObserver{}, RecorderObserver{Recorder: r}} }
}

// New creates the pipeline described by cfg. Collaborators default to the
// goldmark, chroma, tdewolff, gorilla/feeds and raymond implementations.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:         cfg,
		converter:   markdown.NewConverter(cfg.Markdown.LangPrefix),
		highlighter: markdown.NewHighlighter(cfg.Markdown.LangPrefix, cfg.Markdown.HighlightStyle),
		compiler: stylesheet.NewCompiler(stylesheet.Options{
			IncludePaths: cfg.IncludePaths(),
			Prefix:       cfg.Stylesheets.PrefixEnabled(),
			Compress:     cfg.Stylesheets.CompressEnabled(),
		}),
		feeds:    feed.NewGenerator(),
		observer: Observers{LogObserver{}, RecorderObserver{Recorder: metrics.NoopRecorder{}}},
	}
	p.renderer = p.defaultRenderer
	for _, opt := range opts {
		opt(p)
	}

	p.stages = NewBuilder().
		Add(StageLoad, p.load).
		Add(StageCollect, p.collect).
		Add(StageConvert, p.convert).
		AddIf(cfg.Markdown.HighlightEnabled(), StageHighlight, p.highlight).
		Add(StageFilterPartials, p.filterPartials).
		Add(StageCompileStyles, p.compileStyles).
		Add(StagePermalink, p.permalink).
		AddIf(len(cfg.Feeds) > 0, StageFeeds, p.emitFeeds).
		Add(StageRender, p.render).
		Add(StageWrite, p.write).
		Build()
	return p
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() []StageName {
	names := make([]StageName, len(p.stages))
	for i, st := range p.stages {
		names[i] = st.Name
	}
	return names
}

// Run executes every stage for pass. A failing stage aborts the pass with a
// classified build error wrapping ErrPipelineStage and the StageError.
func (p *Pipeline) Run(ctx context.Context, pass *Pass) error {
	ctx = observability.WithLocale(observability.WithBuildID(ctx, pass.ID), pass.Locale)

	err := RunStages(ctx, pass, p.stages, p.observer)
	pass.Report.finish(err)
	p.observer.OnPassComplete(ctx, pass)
	if err != nil {
		return stageFailure(pass, err)
	}
	return nil
}

func stageFailure(pass *Pass, err error) error {
	stage := ""
	var se *StageError
	if errors.As(err, &se) {
		stage = string(se.Stage)
	}
	return ferrors.WrapError(fmt.Errorf("%w: %w", ErrPipelineStage, err), ferrors.CategoryBuild, "locale build pass aborted").
		WithContext("locale", pass.Locale).
		WithContext("stage", stage).
		WithContext("build_id", pass.ID).
		Build()
}

// group returns an errgroup bounded by the configured concurrency.
func (p *Pipeline) group(ctx context.Context) (*errgroup.Group, context.Context) {
	eg, ctx := errgroup.WithContext(ctx)
	if p.cfg.Build.Concurrency > 0 {
		eg.SetLimit(p.cfg.Build.Concurrency)
	}
	return eg, ctx
}

func (p *Pipeline) defaultRenderer(pass *Pass) (render.Renderer, error) {
	return render.NewRenderer(render.Options{
		TemplatesDir:  p.cfg.TemplatesDir(),
		PartialsDir:   p.cfg.PartialsDir(),
		DocsBaseURL:   p.cfg.Render.DocsBaseURL,
		ChangelogsURL: p.cfg.Render.Changelogs,
		Translations:  pass.Resolved,
	})
}
