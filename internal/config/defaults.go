package config

import (
	"runtime"
	"time"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// defaultAppliers run in order; each only fills values left empty by the file.
var defaultAppliers = []DefaultApplier{
	pathsDefaults{},
	contentDefaults{},
	pipelineDefaults{},
	runtimeDefaults{},
}

// ApplyDefaults fills every unset configuration value.
func ApplyDefaults(cfg *Config) error {
	for _, a := range defaultAppliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}

type pathsDefaults struct{}

func (pathsDefaults) Domain() string { return "paths" }

func (pathsDefaults) ApplyDefaults(cfg *Config) error {
	p := &cfg.Paths
	if p.Root == "" {
		p.Root = "."
	}
	if p.Locales == "" {
		p.Locales = "locale"
	}
	if p.Templates == "" {
		p.Templates = "layouts"
	}
	if p.Static == "" {
		p.Static = "static"
	}
	if p.Output == "" {
		p.Output = "build"
	}
	if cfg.Locales.Default == "" {
		cfg.Locales.Default = "en"
	}
	if cfg.Locales.MetadataFile == "" {
		cfg.Locales.MetadataFile = "site.json"
	}
	return nil
}

type contentDefaults struct{}

func (contentDefaults) Domain() string { return "content" }

func (contentDefaults) ApplyDefaults(cfg *Config) error {
	if !cfg.collectionsSpecified && len(cfg.Collections) == 0 {
		cfg.Collections = DefaultCollections()
	}
	for i := range cfg.Collections {
		if cfg.Collections[i].SortBy == "" {
			cfg.Collections[i].SortBy = "date"
		}
	}
	if !cfg.feedsSpecified && len(cfg.Feeds) == 0 {
		cfg.Feeds = DefaultFeeds()
	}
	for i := range cfg.Feeds {
		if cfg.Feeds[i].Limit <= 0 {
			cfg.Feeds[i].Limit = 20
		}
	}
	if cfg.Project == nil {
		cfg.Project = map[string]any{}
	}
	return nil
}

type pipelineDefaults struct{}

func (pipelineDefaults) Domain() string { return "pipeline" }

func (pipelineDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Markdown.LangPrefix == "" {
		cfg.Markdown.LangPrefix = "language-"
	}
	if cfg.Markdown.HighlightStyle == "" {
		cfg.Markdown.HighlightStyle = "github"
	}
	if cfg.Markdown.HighlightCSS == "" {
		cfg.Markdown.HighlightCSS = "css/highlight.css"
	}
	if len(cfg.Stylesheets.Partials) == 0 {
		cfg.Stylesheets.Partials = []string{"**/_*.css"}
	}
	if len(cfg.Stylesheets.IncludePaths) == 0 {
		cfg.Stylesheets.IncludePaths = []string{"layouts/css"}
	}
	if cfg.Permalinks.Pattern == "" {
		cfg.Permalinks.Pattern = ":dir/:slug"
	}
	if cfg.Render.Pattern == "" {
		cfg.Render.Pattern = "**/*.html"
	}
	if cfg.Render.PartialsDir == "" {
		cfg.Render.PartialsDir = "partials"
	}
	if cfg.Render.DocsBaseURL == "" {
		cfg.Render.DocsBaseURL = "https://nodejs.org/dist"
	}
	if cfg.Render.Changelogs == "" {
		cfg.Render.Changelogs = "https://github.com/nodejs/node/blob/main/doc/changelogs"
	}
	if cfg.Build.Concurrency <= 0 {
		cfg.Build.Concurrency = runtime.GOMAXPROCS(0)
	}
	if len(cfg.Build.Ignore) == 0 {
		cfg.Build.Ignore = []string{"**/.*", "**/.*/**"}
	}
	return nil
}

type runtimeDefaults struct{}

func (runtimeDefaults) Domain() string { return "runtime" }

func (runtimeDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = 100 * time.Millisecond
	}
	if cfg.Watch.PollInterval <= 0 {
		cfg.Watch.PollInterval = time.Second
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	return nil
}

// DefaultCollections mirrors the collections of the nodejs.org site.
func DefaultCollections() []Collection {
	blog := func(name, pattern string, limit int) Collection {
		return Collection{Name: name, Pattern: pattern, SortBy: "date", Reverse: true, Limit: limit}
	}
	return []Collection{
		blog("blog", "blog/**/*.md", 0),
		blog("blogAnnounce", "blog/announcements/*.md", 0),
		blog("blogReleases", "blog/release/*.md", 0),
		blog("blogVulnerability", "blog/vulnerability/*.md", 0),
		blog("lastWeekly", "blog/weekly-updates/*.md", 1),
		blog("tscMinutes", "foundation/tsc/minutes/*.md", 0),
	}
}

// DefaultFeeds mirrors the RSS feeds of the nodejs.org site.
func DefaultFeeds() []Feed {
	return []Feed{
		{Collection: "blog", Destination: "feed/blog.xml", Title: "Node.js Blog", Limit: 20},
		{Collection: "blogAnnounce", Destination: "feed/announce.xml", Title: "Node.js Announcements", Limit: 20},
		{Collection: "blogReleases", Destination: "feed/releases.xml", Title: "Node.js Blog: Releases", Limit: 20},
		{Collection: "blogVulnerability", Destination: "feed/vulnerability.xml", Title: "Node.js Blog: Vulnerability Reports", Limit: 20},
		{Collection: "tscMinutes", Destination: "feed/tsc-minutes.xml", Title: "Node.js Technical Steering Committee meetings", Limit: 20},
	}
}
