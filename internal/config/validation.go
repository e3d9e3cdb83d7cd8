package config

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Validate checks cross-field constraints after defaults are applied.
func Validate(cfg *Config) error {
	if strings.ContainsAny(cfg.Locales.Default, `/\`) {
		return invalid("locales.default must be a directory name", "value", cfg.Locales.Default)
	}

	names := make(map[string]bool, len(cfg.Collections))
	for i, c := range cfg.Collections {
		if c.Name == "" {
			return invalid(fmt.Sprintf("collections[%d]: name is required", i))
		}
		if names[c.Name] {
			return invalid("duplicate collection name", "collection", c.Name)
		}
		names[c.Name] = true
		if !doublestar.ValidatePattern(c.Pattern) || c.Pattern == "" {
			return invalid("invalid collection pattern", "collection", c.Name, "pattern", c.Pattern)
		}
		if c.Limit < 0 {
			return invalid("collection limit must not be negative", "collection", c.Name)
		}
	}

	dests := make(map[string]bool, len(cfg.Feeds))
	for _, f := range cfg.Feeds {
		if !names[f.Collection] {
			return invalid("feed references unknown collection", "collection", f.Collection)
		}
		dest := path.Clean(f.Destination)
		if f.Destination == "" || strings.HasPrefix(dest, "../") || path.IsAbs(dest) {
			return invalid("feed destination must be a relative path", "destination", f.Destination)
		}
		if dests[dest] {
			return invalid("duplicate feed destination", "destination", dest)
		}
		dests[dest] = true
	}

	for _, p := range append(append([]string{}, cfg.Stylesheets.Partials...), cfg.Build.Ignore...) {
		if !doublestar.ValidatePattern(p) {
			return invalid("invalid glob pattern", "pattern", p)
		}
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return invalid("server.port out of range", "port", cfg.Server.Port)
	}
	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return invalid("metrics.path must start with /", "path", cfg.Metrics.Path)
	}
	return nil
}

func invalid(msg string, kv ...any) error {
	b := ferrors.ValidationError(msg)
	for i := 0; i+1 < len(kv); i += 2 {
		b.WithContext(fmt.Sprint(kv[i]), kv[i+1])
	}
	return b.Build()
}
