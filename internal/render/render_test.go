package render

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/collections"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/metadata"
	"git.home.luguber.info/inful/sitebuilder/internal/testutil"
)

func translations(t *testing.T) *metadata.Document {
	t.Helper()
	doc, err := metadata.ParseJSON([]byte(`{"title":"Node.js","layouts":{"footer":{"copyright":"&copy; OpenJS"}}}`))
	require.NoError(t, err)
	return doc
}

func TestRenderer_LayoutWithPartialAndHelpers(t *testing.T) {
	dir := testutil.Site(t, map[string]string{
		"page.hbs":                  `{{> header}}<main>{{{contents}}}</main>{{i18n "layouts.footer" "copyright"}}`,
		"partials/header.hbs":       `<h1>{{site.title}} - {{title}}</h1>`,
		"partials/nested/small.hbs": `small`,
	})

	r, err := NewRenderer(Options{
		TemplatesDir: dir,
		PartialsDir:  filepath.Join(dir, "partials"),
		Translations: translations(t),
	})
	require.NoError(t, err)
	require.Contains(t, r.partials, "small")

	out, err := r.Render("page", map[string]any{
		"site":     map[string]any{"title": "Node.js"},
		"title":    "About",
		"contents": "<p>hi</p>",
	})
	require.NoError(t, err)
	require.Equal(t, "<h1>Node.js - About</h1><main><p>hi</p></main>&copy; OpenJS", string(out))
}

func TestRenderer_MissingLayout(t *testing.T) {
	r, err := NewRenderer(Options{TemplatesDir: t.TempDir()})
	require.NoError(t, err)

	_, err = r.Render("nope.hbs", nil)
	require.ErrorIs(t, err, ErrLayoutNotFound)
}

func TestHelpers_BlockAndFormatting(t *testing.T) {
	dir := testutil.Site(t, map[string]string{
		"h.hbs": `{{#equals locale "en"}}EN{{else}}other{{/equals}}|` +
			`{{#startswith path "blog/"}}blog{{/startswith}}|` +
			`{{strftime date "%Y-%m-%d"}}|{{changeloglink version}}|{{apidocslink version}}|{{i18n "missing" "key"}}`,
	})
	r, err := NewRenderer(Options{
		TemplatesDir:  dir,
		DocsBaseURL:   "https://nodejs.org/dist",
		ChangelogsURL: "https://github.com/nodejs/node/blob/main/doc/changelogs",
	})
	require.NoError(t, err)

	out, err := r.Render("h.hbs", map[string]any{
		"locale":  "en",
		"path":    "blog/release/v22.0.0",
		"date":    "2024-04-24T12:00:00Z",
		"version": "v22.0.0",
	})
	require.NoError(t, err)
	require.Equal(t, "EN|blog|2024-04-24|"+
		"https://github.com/nodejs/node/blob/main/doc/changelogs/CHANGELOG_V22.md#22.0.0|"+
		"https://nodejs.org/dist/v22.0.0/docs/api/|key", string(out))
}

func TestChangelogLink(t *testing.T) {
	base := "https://example.com/changelogs"
	require.Equal(t, base+"/CHANGELOG_V012.md#0.12.18", ChangelogLink(base, "v0.12.18"))
	require.Equal(t, base+"/CHANGELOG_IOJS.md#3.3.1", ChangelogLink(base, "v3.3.1"))
	require.Equal(t, base+"/CHANGELOG_V8.md#8.0.0", ChangelogLink(base, "8.0.0"))
	require.Equal(t, base+"/", ChangelogLink(base, "latest"))
}

func TestTitleFromName(t *testing.T) {
	require.Equal(t, "Get Involved", TitleFromName("get-involved"))
	require.Equal(t, "Code Of Conduct", TitleFromName("code_of_conduct"))
}

func TestApply_RendersItemsWithLayout(t *testing.T) {
	dir := testutil.Site(t, map[string]string{
		"blog.hbs": `<title>{{title}}</title>{{#each blog}}[{{title}}]{{/each}}{{locale}}:{{project.currentVersion}}:{{{contents}}}`,
	})
	r, err := NewRenderer(Options{TemplatesDir: dir})
	require.NoError(t, err)

	post := &content.Item{Path: "blog/post.html", Contents: []byte("<p>x</p>"), Meta: map[string]any{"layout": "blog.hbs", "title": "Post", "date": "2024-01-01"}}
	bare := &content.Item{Path: "blog/get-involved/index.html", Contents: []byte("body"), Meta: map[string]any{"layout": "blog.hbs", "path": "blog/get-involved"}}
	plain := &content.Item{Path: "robots.txt", Contents: []byte("User-agent: *"), Meta: map[string]any{"layout": "blog.hbs"}}
	noLayout := &content.Item{Path: "raw.html", Contents: []byte("raw"), Meta: map[string]any{}}
	files := content.NewFiles(post, bare, plain, noLayout)

	set, err := collections.Compute(files, []collections.Definition{{Name: "blog", Pattern: "blog/*.html", SortBy: "date"}})
	require.NoError(t, err)

	n, err := Apply(t.Context(), files, r, "**/*.html", Globals{
		Locale:      "en",
		Site:        translations(t),
		Project:     map[string]any{"currentVersion": "v22.0.0"},
		Collections: set,
	}, 2)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.Equal(t, "<title>Post</title>[Post]en:v22.0.0:<p>x</p>", string(post.Contents))
	require.Equal(t, "<title>Get Involved</title>[Post]en:v22.0.0:body", string(bare.Contents))
	require.Equal(t, "User-agent: *", string(plain.Contents))
	require.Equal(t, "raw", string(noLayout.Contents))
}

func TestApply_PropagatesRenderErrors(t *testing.T) {
	r, err := NewRenderer(Options{TemplatesDir: t.TempDir()})
	require.NoError(t, err)

	files := content.NewFiles(&content.Item{Path: "a.html", Meta: map[string]any{"layout": "missing.hbs"}})
	_, err = Apply(t.Context(), files, r, "**/*.html", Globals{}, 1)
	require.ErrorIs(t, err, ErrLayoutNotFound)
}

func TestApply_SiteAndI18nExposeResolvedDocument(t *testing.T) {
	dir := testutil.Site(t, map[string]string{
		"page.hbs": `{{site.title}}|{{i18n.title}}|{{site.layouts.footer.copyright}}`,
	})
	r, err := NewRenderer(Options{TemplatesDir: dir})
	require.NoError(t, err)

	page := &content.Item{Path: "index.html", Meta: map[string]any{"layout": "page.hbs"}}
	_, err = Apply(t.Context(), content.NewFiles(page), r, "**/*.html", Globals{Locale: "de", Site: translations(t)}, 1)
	require.NoError(t, err)
	require.Equal(t, "Node.js|Node.js|&amp;copy; OpenJS", string(page.Contents))
}
