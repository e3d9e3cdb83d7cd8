// Package stylesheet filters stylesheet partials and compiles stylesheets.
package stylesheet

import (
	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
)

// FilterPartials removes every item whose path matches one of patterns and
// returns the removed paths. Partials are only reachable through @import.
func FilterPartials(files *content.Files, patterns []string) []string {
	var removed []string
	for _, p := range files.Paths() {
		for _, pat := range patterns {
			if ok, _ := doublestar.Match(pat, p); ok {
				files.Delete(p)
				removed = append(removed, p)
				break
			}
		}
	}
	return removed
}
