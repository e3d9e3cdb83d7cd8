package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	charmlog "github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/metadata"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

// Global carries state shared by subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI is the root command. Without a subcommand it builds every locale once.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path (default: ./sitebuilder.yaml when present)"`
	Verbose   bool             `short:"v" help:"Enable debug logging"`
	LogFormat string           `name:"log-format" help:"Log output format: text, json or pretty (overrides logging.format)"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build BuildCmd `cmd:"" default:"1" help:"Build every locale once"`
	Serve ServeCmd `cmd:"" help:"Build, then watch for changes and serve the output"`
}

// AfterApply installs the logger chosen by the flags. Commands refine it once
// the configuration is loaded.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	c.installLogger(nil)
	return nil
}

// installLogger sets the default logger. Flags win over cfg; cfg may be nil.
func (c *CLI) installLogger(cfg *config.Config) *slog.Logger {
	format := config.NormalizeLogFormat(c.LogFormat)
	level := slog.LevelInfo
	if cfg != nil {
		if c.LogFormat == "" {
			format = cfg.Logging.Format
		}
		level = cfg.Logging.Level.SlogLevel()
	}
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := newLogger(os.Stderr, format, level)
	slog.SetDefault(logger)
	return logger
}

func newLogger(w io.Writer, format config.LogFormat, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case config.LogFormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts))
	case config.LogFormatPretty:
		return slog.New(charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmlog.Level(level),
			ReportTimestamp: true,
		}))
	default:
		return slog.New(slog.NewTextHandler(w, opts))
	}
}

// site is everything a command needs to build.
type site struct {
	cfg      *config.Config
	store    *metadata.Store
	recorder metrics.Recorder
	registry *prometheus.Registry
}

// loadSite reads the configuration and the locale documents. An explicit
// --config must exist; the default file is optional.
func (c *CLI) loadSite(g *Global) (*site, error) {
	path, required := c.Config, true
	if path == "" {
		path, required = config.DefaultConfigFile, false
	}
	cfg, err := config.Load(path, required)
	if err != nil {
		return nil, err
	}
	g.Logger = c.installLogger(cfg)
	g.Logger.Debug("configuration loaded", slog.String("config", cfg.String()))

	store, err := metadata.LoadStore(cfg.LocalesDir(), cfg.Locales.MetadataFile, cfg.Locales.Default)
	if err != nil {
		return nil, err
	}

	s := &site{cfg: cfg, store: store, recorder: metrics.NoopRecorder{}}
	if cfg.Metrics.Enabled {
		s.registry = prometheus.NewRegistry()
		s.recorder = metrics.NewPrometheusRecorder(s.registry)
	}
	return s, nil
}
