package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// DefaultConfigFile is looked up in the working directory when --config is not set.
const DefaultConfigFile = "sitebuilder.yaml"

// Config represents the application configuration.
type Config struct {
	Paths       PathsConfig       `yaml:"paths"`
	Locales     LocalesConfig     `yaml:"locales"`
	Site        SiteConfig        `yaml:"site"`
	Project     map[string]any    `yaml:"project,omitempty"`
	Collections []Collection      `yaml:"collections"`
	Feeds       []Feed            `yaml:"feeds"`
	Markdown    MarkdownConfig    `yaml:"markdown"`
	Stylesheets StylesheetsConfig `yaml:"stylesheets"`
	Permalinks  PermalinksConfig  `yaml:"permalinks"`
	Render      RenderConfig      `yaml:"render"`
	Build       BuildConfig       `yaml:"build"`
	Watch       WatchConfig       `yaml:"watch"`
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`

	// collectionsSpecified is true when the YAML named a collections key (even an empty list).
	collectionsSpecified bool
	feedsSpecified       bool
}

// PathsConfig locates the input trees and the output tree. Relative paths resolve
// against Root.
type PathsConfig struct {
	Root      string `yaml:"root"`
	Locales   string `yaml:"locales"`
	Templates string `yaml:"templates"`
	Static    string `yaml:"static"`
	Output    string `yaml:"output"`
}

// LocalesConfig names the default locale and the per-locale metadata document.
type LocalesConfig struct {
	Default      string `yaml:"default"`
	MetadataFile string `yaml:"metadata_file"`
}

// SiteConfig holds site-wide values not carried by the locale documents.
type SiteConfig struct {
	URL string `yaml:"url"`
}

// Collection selects items by glob pattern.
type Collection struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
	SortBy  string `yaml:"sort_by"`
	Reverse bool   `yaml:"reverse"`
	Limit   int    `yaml:"limit,omitempty"`
}

// Feed maps a collection to an RSS document.
type Feed struct {
	Collection  string `yaml:"collection"`
	Destination string `yaml:"destination"`
	Title       string `yaml:"title"`
	Description string `yaml:"description,omitempty"`
	Limit       int    `yaml:"limit,omitempty"`
}

// MarkdownConfig configures conversion and highlighting.
type MarkdownConfig struct {
	LangPrefix     string `yaml:"lang_prefix"`
	HighlightStyle string `yaml:"highlight_style"`
	Highlight      *bool  `yaml:"highlight,omitempty"`
	// HighlightCSS is the output path of the generated token stylesheet.
	// It is only emitted when the locale tree does not provide one.
	HighlightCSS string `yaml:"highlight_css"`
}

// HighlightEnabled reports whether the highlight pass runs (default true).
func (m MarkdownConfig) HighlightEnabled() bool { return m.Highlight == nil || *m.Highlight }

// StylesheetsConfig configures partial filtering and compilation.
type StylesheetsConfig struct {
	Partials     []string `yaml:"partials"`
	IncludePaths []string `yaml:"include_paths"`
	Compress     *bool    `yaml:"compress,omitempty"`
	Prefix       *bool    `yaml:"prefix,omitempty"`
}

// CompressEnabled reports whether compiled stylesheets are minified (default true).
func (s StylesheetsConfig) CompressEnabled() bool { return s.Compress == nil || *s.Compress }

// PrefixEnabled reports whether vendor prefixes are added (default true).
func (s StylesheetsConfig) PrefixEnabled() bool { return s.Prefix == nil || *s.Prefix }

// PermalinksConfig configures the permalink stage.
type PermalinksConfig struct {
	Pattern string `yaml:"pattern"`
}

// RenderConfig configures template rendering.
type RenderConfig struct {
	Pattern     string `yaml:"pattern"`
	PartialsDir string `yaml:"partials_dir"`
	DocsBaseURL string `yaml:"docs_base_url"`
	Changelogs  string `yaml:"changelogs_url"`
}

// BuildConfig configures build concurrency and the load stage.
type BuildConfig struct {
	Concurrency int      `yaml:"concurrency"`
	Ignore      []string `yaml:"ignore"`
}

// WatchConfig configures the development watch scheduler.
type WatchConfig struct {
	Debounce     time.Duration `yaml:"debounce"`
	Poll         bool          `yaml:"poll"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// ServerConfig configures the development HTTP server.
type ServerConfig struct {
	Port       int   `yaml:"port"`
	LiveReload *bool `yaml:"live_reload,omitempty"`
}

// LiveReloadEnabled reports whether served pages reload after rebuilds (default true).
func (s ServerConfig) LiveReloadEnabled() bool { return s.LiveReload == nil || *s.LiveReload }

// LoggingConfig selects log level and output format.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// MetricsConfig enables the Prometheus recorder and its endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// UnmarshalYAML records which list sections were explicitly set so defaults
// only fill in omitted sections.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type plain Config
	if err := node.Decode((*plain)(c)); err != nil {
		return err
	}
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			switch node.Content[i].Value {
			case "collections":
				c.collectionsSpecified = true
			case "feeds":
				c.feedsSpecified = true
			}
		}
	}
	return nil
}

// Load reads configuration from path. A missing file is only an error when
// required is true; otherwise defaults reproduce the conventional site layout
// relative to the working directory.
func Load(path string, required bool) (*Config, error) {
	loadEnvFiles()

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to parse config file").
				Fatal().
				WithContext("path", path).
				Build()
		}
		if cfg.Paths.Root == "" {
			cfg.Paths.Root = filepath.Dir(path)
		}
	case errors.Is(err, os.ErrNotExist) && !required:
	default:
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").
			Fatal().
			WithContext("path", path).
			Build()
	}

	if err := ApplyDefaults(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with every default applied, rooted at root.
func Default(root string) *Config {
	cfg := &Config{Paths: PathsConfig{Root: root}}
	_ = ApplyDefaults(cfg)
	return cfg
}

// LocalesDir returns the absolute-or-root-relative locale content root.
func (c *Config) LocalesDir() string { return c.resolve(c.Paths.Locales) }

// TemplatesDir returns the templates root.
func (c *Config) TemplatesDir() string { return c.resolve(c.Paths.Templates) }

// StaticDir returns the static asset root.
func (c *Config) StaticDir() string { return c.resolve(c.Paths.Static) }

// OutputDir returns the build output root.
func (c *Config) OutputDir() string { return c.resolve(c.Paths.Output) }

// IncludePaths returns stylesheet include directories resolved against the root.
func (c *Config) IncludePaths() []string {
	out := make([]string, 0, len(c.Stylesheets.IncludePaths))
	for _, p := range c.Stylesheets.IncludePaths {
		out = append(out, c.resolve(p))
	}
	return out
}

// PartialsDir returns the handlebars partials directory.
func (c *Config) PartialsDir() string {
	if filepath.IsAbs(c.Render.PartialsDir) {
		return c.Render.PartialsDir
	}
	return filepath.Join(c.TemplatesDir(), c.Render.PartialsDir)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Paths.Root, p)
}

// String renders a short summary used in startup logs.
func (c *Config) String() string {
	return fmt.Sprintf("locales=%s templates=%s static=%s output=%s default_locale=%s",
		c.LocalesDir(), c.TemplatesDir(), c.StaticDir(), c.OutputDir(), c.Locales.Default)
}
