package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyLocale     = "locale"
	KeyStage      = "stage"
	KeyBuildID    = "build_id"
	KeyPath       = "path"
	KeyTree       = "tree"
	KeyScope      = "scope"
	KeyCollection = "collection"
	KeyFeed       = "feed"
	KeyItems      = "items"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
	KeyMethod     = "method"
	KeyStatus     = "status"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Locale(l string) slog.Attr         { return slog.String(KeyLocale, l) }
func Stage(name string) slog.Attr       { return slog.String(KeyStage, name) }
func BuildID(id string) slog.Attr       { return slog.String(KeyBuildID, id) }
func Path(p string) slog.Attr           { return slog.String(KeyPath, p) }
func Tree(name string) slog.Attr        { return slog.String(KeyTree, name) }
func Scope(s string) slog.Attr          { return slog.String(KeyScope, s) }
func Collection(name string) slog.Attr  { return slog.String(KeyCollection, name) }
func Feed(dest string) slog.Attr        { return slog.String(KeyFeed, dest) }
func Items(n int) slog.Attr             { return slog.Int(KeyItems, n) }
func DurationMS(ms float64) slog.Attr   { return slog.Float64(KeyDurationMS, ms) }
func Elapsed(d time.Duration) slog.Attr { return DurationMS(float64(d.Microseconds()) / 1000) }
func Method(m string) slog.Attr         { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr         { return slog.Int(KeyStatus, code) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
