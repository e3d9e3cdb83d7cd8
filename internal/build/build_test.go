package build

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/metadata"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
	"git.home.luguber.info/inful/sitebuilder/internal/testutil"
)

func newSite(t *testing.T, files map[string]string) (*config.Config, *metadata.Store) {
	t.Helper()
	cfg := config.Default(testutil.Site(t, files))
	cfg.Feeds = nil
	store, err := metadata.LoadStore(cfg.LocalesDir(), cfg.Locales.MetadataFile, cfg.Locales.Default)
	require.NoError(t, err)
	return cfg, store
}

const layout = "<title>{{title}}</title>{{site.greeting}}|{{{contents}}}"

func TestBuildLocale_MergesDefaultMetadata(t *testing.T) {
	cfg, store := newSite(t, map[string]string{
		"locale/en/site.json": `{"greeting":"Hello","title":"Node.js"}`,
		"locale/en/index.md":  "---\nlayout: page.hbs\n---\nhome",
		"locale/de/site.json": `{"greeting":"Hallo"}`,
		"locale/de/index.md":  "---\nlayout: page.hbs\ntitle: Start\n---\nstart",
		"layouts/page.hbs":    layout,
	})
	b := NewBuilder(cfg, store)

	res, err := b.BuildLocale(t.Context(), "de")
	require.NoError(t, err)
	require.Equal(t, "de", res.Locale)
	require.True(t, res.Report.Succeeded())

	out, err := os.ReadFile(filepath.Join(cfg.OutputDir(), "de", "index.html"))
	require.NoError(t, err)
	require.Contains(t, string(out), "<title>Start</title>Hallo|<p>start</p>")
}

func TestBuildLocale_PicksUpMetadataChanges(t *testing.T) {
	cfg, store := newSite(t, map[string]string{
		"locale/en/site.json": `{"greeting":"Hello"}`,
		"locale/en/index.md":  "---\nlayout: page.hbs\ntitle: Home\n---\nhome",
		"layouts/page.hbs":    layout,
	})
	b := NewBuilder(cfg, store)
	_, err := b.BuildLocale(t.Context(), "en")
	require.NoError(t, err)

	testutil.WriteTree(t, cfg.Paths.Root, map[string]string{"locale/en/site.json": `{"greeting":"Howdy"}`})
	_, err = b.BuildLocale(t.Context(), "en")
	require.NoError(t, err)

	out, err := os.ReadFile(filepath.Join(cfg.OutputDir(), "en", "index.html"))
	require.NoError(t, err)
	require.Contains(t, string(out), "Howdy|")
}

func TestBuildLocale_MissingLocaleDocument(t *testing.T) {
	cfg, store := newSite(t, map[string]string{
		"locale/en/site.json": `{}`,
		"locale/es/index.md":  "hola",
	})
	_, err := NewBuilder(cfg, store).BuildLocale(t.Context(), "es")
	require.ErrorIs(t, err, metadata.ErrMissingLocaleDocument)
	require.NoDirExists(t, filepath.Join(cfg.OutputDir(), "es"))
}

func TestFullBuild_IsolatesLocaleFailures(t *testing.T) {
	cfg, store := newSite(t, map[string]string{
		"locale/en/site.json":  `{"greeting":"Hello"}`,
		"locale/en/index.md":   "---\nlayout: page.hbs\ntitle: Home\n---\nhome",
		"locale/fr/site.json":  `{"greeting":"Bonjour"}`,
		"locale/fr/broken.md":  "---\ntitle: never closed\n",
		"layouts/page.hbs":     layout,
		"static/js/app.js":     "console.log(1)",
		"static/img/a/b/c.svg": "<svg/>",
	})

	res, err := NewBuilder(cfg, store).FullBuild(t.Context())
	require.Error(t, err)
	require.ErrorIs(t, err, pipeline.ErrPipelineStage)
	require.Equal(t, []string{"en", "fr"}, res.Locales)
	require.False(t, res.Succeeded())
	require.Contains(t, res.Failed, "fr")
	require.Contains(t, res.Results, "en")
	require.NoError(t, res.StaticErr)

	testutil.NewFileAssertions(t, cfg.OutputDir()).
		AssertFileExists("en/index.html").
		AssertFileNotExists("fr/index.html").
		AssertFileExists(StaticDir + "/js/app.js").
		AssertFileExists(StaticDir + "/img/a/b/c.svg")
}

func TestFullBuild_MissingStaticIsNotFatal(t *testing.T) {
	cfg, store := newSite(t, map[string]string{
		"locale/en/site.json":  `{}`,
		"locale/en/robots.txt": "User-agent: *",
	})

	res, err := NewBuilder(cfg, store).FullBuild(t.Context())
	require.NoError(t, err)
	require.True(t, res.Succeeded())
	require.ErrorIs(t, res.StaticErr, ErrStaticCopy)
	require.Equal(t, ferrors.SeverityWarning, ferrors.GetSeverity(res.StaticErr))
	require.FileExists(t, filepath.Join(cfg.OutputDir(), "en", "robots.txt"))
}

func TestFullBuild_UnreadableLocaleRootIsFatal(t *testing.T) {
	cfg, store := newSite(t, map[string]string{"locale/en/site.json": `{}`})
	cfg.Paths.Locales = "missing"

	_, err := NewBuilder(cfg, store).FullBuild(t.Context())
	require.ErrorIs(t, err, ErrLocaleRoot)
	ce, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	require.True(t, ce.IsFatal())
}

func TestCopyStatic_OverwritesExistingFiles(t *testing.T) {
	cfg, store := newSite(t, map[string]string{
		"locale/en/site.json":  `{}`,
		"static/app.css":       "new",
		"build/static/app.css": "old",
	})
	b := NewBuilder(cfg, store)

	require.NoError(t, b.CopyStatic(t.Context()))
	data, err := os.ReadFile(filepath.Join(cfg.OutputDir(), StaticDir, "app.css"))
	require.NoError(t, err)
	require.Equal(t, "new", string(data))
}

func TestDiscoverLocales_SkipsFilesAndHiddenDirs(t *testing.T) {
	root := testutil.Site(t, map[string]string{
		"zh-cn/site.json": `{}`,
		"en/site.json":    `{}`,
		".git/HEAD":       "ref",
		"README.md":       "x",
	})
	locales, err := DiscoverLocales(root)
	require.NoError(t, err)
	require.Equal(t, []string{"en", "zh-cn"}, locales)

	_, err = DiscoverLocales(filepath.Join(root, "nope"))
	require.True(t, errors.Is(err, ErrLocaleRoot))
}
