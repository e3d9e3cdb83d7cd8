package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/feed"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/metadata"
	"git.home.luguber.info/inful/sitebuilder/internal/render"
	"git.home.luguber.info/inful/sitebuilder/internal/testutil"
)

const siteJSON = `{"url":"https://nodejs.org/en","title":"Node.js"}`

func fixtureSite(t *testing.T) string {
	t.Helper()
	return testutil.Site(t, map[string]string{
		"locale/en/site.json": siteJSON,
		"locale/en/index.md":  "---\nlayout: page.hbs\ntitle: Home\n---\n# Welcome\n\n```js\nconst a = 1;\n```\n",
		"locale/en/blog/release/v1.0.0.md": "---\nlayout: page.hbs\ntitle: Node v1.0.0\ndate: 2024-01-01\n---\nRelease one\n",
		"locale/en/blog/release/v2.0.0.md": "---\nlayout: page.hbs\ntitle: Node v2.0.0\ndate: 2024-02-01\n---\nRelease two\n",
		"locale/en/css/styles.css":         "@import \"base\";\nbody{user-select:none}",
		"locale/en/css/_local.css":         "p{margin:0}",
		"layouts/page.hbs":                 "<html><title>{{title}} | {{site.title}}</title><body>{{{contents}}}</body></html>",
		"layouts/css/_base.css":            "a{color:red}",
	})
}

func resolvedDoc(t *testing.T) *metadata.Document {
	t.Helper()
	doc, err := metadata.ParseJSON([]byte(siteJSON))
	require.NoError(t, err)
	return doc
}

func TestPipeline_StageOrder(t *testing.T) {
	p := New(config.Default(t.TempDir()))
	require.Equal(t, []StageName{
		StageLoad, StageCollect, StageConvert, StageHighlight, StageFilterPartials,
		StageCompileStyles, StagePermalink, StageFeeds, StageRender, StageWrite,
	}, p.Stages())

	off := false
	cfg := config.Default(t.TempDir())
	cfg.Markdown.Highlight = &off
	cfg.Feeds = nil
	require.NotContains(t, New(cfg).Stages(), StageHighlight)
	require.NotContains(t, New(cfg).Stages(), StageFeeds)
}

func TestPipeline_RunBuildsLocaleTree(t *testing.T) {
	root := fixtureSite(t)
	cfg := config.Default(root)
	dest := filepath.Join(root, "build", "en")

	pass := NewPass("en", filepath.Join(root, "locale", "en"), dest, resolvedDoc(t))
	require.NoError(t, New(cfg).Run(t.Context(), pass))
	require.True(t, pass.Report.Succeeded())

	out := testutil.NewFileAssertions(t, dest)
	index := out.Read("index.html")
	require.Contains(t, index, "<title>Home | Node.js</title>")
	require.Contains(t, index, `<h1 id="welcome">Welcome</h1>`)
	require.Contains(t, index, `<span class="`)

	release := out.Read("blog/release/v1.0.0/index.html")
	require.Contains(t, release, "<title>Node v1.0.0 | Node.js</title>")
	require.Contains(t, release, "<p>Release one</p>")

	css := out.Read("css/styles.css")
	require.Contains(t, css, "a{color:red}")
	require.Contains(t, css, "-webkit-user-select:none")
	require.NotContains(t, css, "@import")

	out.AssertFileNotExists("css/_local.css").
		AssertFileNotExists("site.json").
		AssertFileExists("css/highlight.css")

	feed := out.Read("feed/releases.xml")
	require.Contains(t, feed, "<title>Node.js Blog: Releases</title>")
	require.Contains(t, feed, "https://nodejs.org/en/blog/release/v2.0.0/")
	require.Less(t, strings.Index(feed, "Node v2.0.0"), strings.Index(feed, "Node v1.0.0"))
	for _, f := range []string{"blog", "announce", "vulnerability", "tsc-minutes"} {
		out.AssertFileExists("feed/" + f + ".xml")
	}

	require.Equal(t, 2, pass.Report.ItemCount(StagePermalink))
	require.Equal(t, StageResultSuccess, pass.Report.StageResults[StageWrite])
	require.Contains(t, pass.Report.Outputs, "index.html")
}

func TestPipeline_RunIsIdempotent(t *testing.T) {
	root := fixtureSite(t)
	cfg := config.Default(root)
	dest := filepath.Join(root, "build", "en")
	p := New(cfg)

	out := testutil.NewFileAssertions(t, dest)

	require.NoError(t, p.Run(t.Context(), NewPass("en", filepath.Join(root, "locale", "en"), dest, resolvedDoc(t))))
	first := out.Snapshot()
	require.NoError(t, p.Run(t.Context(), NewPass("en", filepath.Join(root, "locale", "en"), dest, resolvedDoc(t))))
	require.Equal(t, first, out.Snapshot())
}

func TestPipeline_StageFailureIsClassified(t *testing.T) {
	root := testutil.Site(t, map[string]string{
		"locale/fr/site.json": `{}`,
		"locale/fr/broken.md": "---\ntitle: never closed\n",
	})
	cfg := config.Default(root)
	dest := filepath.Join(root, "build", "fr")

	pass := NewPass("fr", filepath.Join(root, "locale", "fr"), dest, metadata.NewDocument())
	err := New(cfg).Run(t.Context(), pass)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrPipelineStage)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryBuild))

	ce, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	require.Equal(t, "locale build pass aborted", ce.Message())
	require.Equal(t, 1, strings.Count(err.Error(), ErrPipelineStage.Error()))
	require.Equal(t, "fr", ce.Context()["locale"])
	require.Equal(t, string(StageLoad), ce.Context()["stage"])

	var se *StageError
	require.True(t, errors.As(err, &se))
	require.Equal(t, StageErrorFatal, se.Kind)
	require.Equal(t, StageResultFatal, pass.Report.StageResults[StageLoad])
	require.NoDirExists(t, dest)
}

func TestPipeline_MissingSiteURLFailsFeeds(t *testing.T) {
	root := testutil.Site(t, map[string]string{
		"locale/en/site.json": `{}`,
		"locale/en/about.md":  "About",
	})
	cfg := config.Default(root)

	err := New(cfg).Run(t.Context(), NewPass("en", filepath.Join(root, "locale", "en"), filepath.Join(root, "build", "en"), metadata.NewDocument()))
	require.ErrorIs(t, err, ErrPipelineStage)

	var se *StageError
	require.True(t, errors.As(err, &se))
	require.Equal(t, StageFeeds, se.Stage)
}

func TestRunStages_WarningContinuesFatalStops(t *testing.T) {
	pass := NewPass("en", "", "", nil)
	var ran []StageName
	stage := func(name StageName, err error) StageDef {
		return StageDef{Name: name, Fn: func(context.Context, *Pass) error {
			ran = append(ran, name)
			return err
		}}
	}

	err := RunStages(t.Context(), pass, []StageDef{
		stage(StageLoad, nil),
		stage(StageCollect, NewWarnStageError(StageCollect, errors.New("odd"))),
		stage(StageConvert, errors.New("boom")),
		stage(StageWrite, nil),
	}, nil)

	require.Error(t, err)
	require.Equal(t, []StageName{StageLoad, StageCollect, StageConvert}, ran)
	require.Equal(t, StageResultWarning, pass.Report.StageResults[StageCollect])
	require.Equal(t, StageResultFatal, pass.Report.StageResults[StageConvert])
}

func TestRunStages_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	pass := NewPass("en", "", "", nil)
	err := RunStages(ctx, pass, []StageDef{{Name: StageLoad, Fn: func(context.Context, *Pass) error { return nil }}}, nil)

	var se *StageError
	require.True(t, errors.As(err, &se))
	require.Equal(t, StageErrorCanceled, se.Kind)
	require.Equal(t, StageResultCanceled, pass.Report.StageResults[StageLoad])
}

type countingObserver struct {
	NoopObserver
	completed map[StageName]StageResult
	passes    int
}

func (c *countingObserver) OnStageComplete(_ context.Context, _ *Pass, stage StageName, _ time.Duration, result StageResult) {
	c.completed[stage] = result
}

func (c *countingObserver) OnPassComplete(context.Context, *Pass) { c.passes++ }

func TestPipeline_ObserverSeesEveryStage(t *testing.T) {
	root := fixtureSite(t)
	obs := &countingObserver{completed: map[StageName]StageResult{}}
	p := New(config.Default(root), WithObserver(obs))

	require.NoError(t, p.Run(t.Context(), NewPass("en", filepath.Join(root, "locale", "en"), filepath.Join(root, "build", "en"), resolvedDoc(t))))
	require.Len(t, obs.completed, len(p.Stages()))
	require.Equal(t, 1, obs.passes)
}

func TestPipeline_MarkdownReplacesHTMLTwin(t *testing.T) {
	root := testutil.Site(t, map[string]string{
		"locale/en/site.json":  siteJSON,
		"locale/en/about.md":   "# From markdown",
		"locale/en/about.html": "<p>hand written</p>",
	})
	cfg := config.Default(root)
	cfg.Feeds = nil
	dest := filepath.Join(root, "build", "en")

	pass := NewPass("en", filepath.Join(root, "locale", "en"), dest, resolvedDoc(t))
	require.NoError(t, New(cfg).Run(t.Context(), pass))

	page := testutil.NewFileAssertions(t, dest).Read("about/index.html")
	require.Contains(t, page, "From markdown")
	require.NotContains(t, page, "hand written")
}

type upperConverter struct{}

func (upperConverter) Convert(src []byte) ([]byte, error) {
	return []byte("<p>" + strings.ToUpper(string(src)) + "</p>"), nil
}

type passthroughHighlighter struct{ calls int }

func (h *passthroughHighlighter) Highlight(src []byte) ([]byte, bool, error) {
	h.calls++
	return src, false, nil
}

func (*passthroughHighlighter) WriteCSS(io.Writer) error { return nil }

type bannerCompiler struct{}

func (bannerCompiler) Compile(src []byte, _ string) ([]byte, error) {
	return append([]byte("/* compiled */"), src...), nil
}

type titleFeeds struct{}

func (titleFeeds) Generate(_ []*content.Item, opts feed.Options) ([]byte, error) {
	return []byte(opts.Title + ":" + opts.SiteURL), nil
}

type layoutNameRenderer struct{}

func (layoutNameRenderer) Render(layout string, ctx map[string]any) ([]byte, error) {
	return []byte("[" + layout + "]" + fmt.Sprint(ctx["contents"])), nil
}

func TestPipeline_CollaboratorsCanBeReplaced(t *testing.T) {
	root := testutil.Site(t, map[string]string{
		"locale/en/site.json":      siteJSON,
		"locale/en/index.md":       "---\nlayout: page.hbs\n---\nhello",
		"locale/en/css/styles.css": "a{}",
	})
	cfg := config.Default(root)
	cfg.Feeds = []config.Feed{{Collection: "blog", Destination: "feed/custom.xml", Title: "Custom"}}
	dest := filepath.Join(root, "build", "en")

	hl := &passthroughHighlighter{}
	p := New(cfg,
		WithConverter(upperConverter{}),
		WithHighlighter(hl),
		WithCompiler(bannerCompiler{}),
		WithFeedGenerator(titleFeeds{}),
		WithRendererFactory(func(*Pass) (render.Renderer, error) { return layoutNameRenderer{}, nil }),
	)
	require.NoError(t, p.Run(t.Context(), NewPass("en", filepath.Join(root, "locale", "en"), dest, resolvedDoc(t))))

	out := testutil.NewFileAssertions(t, dest)
	require.Equal(t, "[page.hbs]<p>HELLO</p>", out.Read("index.html"))
	require.Equal(t, "/* compiled */a{}", out.Read("css/styles.css"))
	require.Equal(t, "Custom:https://nodejs.org/en", out.Read("feed/custom.xml"))
	require.Equal(t, 1, hl.calls)
}
