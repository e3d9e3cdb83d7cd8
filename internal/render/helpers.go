package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aymerick/raymond"
	"github.com/ncruces/go-strftime"

	"git.home.luguber.info/inful/sitebuilder/internal/frontmatter"
	"git.home.luguber.info/inful/sitebuilder/internal/metadata"
)

// helpers returns the handlebars helpers available to every layout. The
// i18n helper reads from translations, the resolved document of the locale.
func helpers(translations *metadata.Document, opts Options) map[string]any {
	return map[string]any{
		"equals": func(a, b any, options *raymond.Options) string {
			if raymond.Str(a) == raymond.Str(b) {
				return options.Fn()
			}
			return options.Inverse()
		},
		"startswith": func(s, prefix any, options *raymond.Options) string {
			if strings.HasPrefix(raymond.Str(s), raymond.Str(prefix)) {
				return options.Fn()
			}
			return options.Inverse()
		},
		"i18n": func(scope, key any) raymond.SafeString {
			return raymond.SafeString(translate(translations, raymond.Str(scope), raymond.Str(key)))
		},
		"strftime": func(date any, format string) string {
			t, ok := frontmatter.Date(date)
			if !ok {
				return ""
			}
			return strftime.Format(format, t.UTC())
		},
		"changeloglink": func(version any) string {
			return ChangelogLink(opts.ChangelogsURL, raymond.Str(version))
		},
		"apidocslink": func(version any) string {
			return APIDocsLink(opts.DocsBaseURL, raymond.Str(version))
		},
	}
}

// translate looks up scope.key, then key alone. Missing translations render
// as the key so gaps are visible on the page.
func translate(doc *metadata.Document, scope, key string) string {
	if doc != nil {
		for _, p := range []string{scope + "." + key, key} {
			if v, ok := doc.Lookup(p); ok && v.Kind() == metadata.KindScalar {
				return v.String()
			}
		}
	}
	return key
}

func majorMinor(version string) (major, minor int, ok bool) {
	parts := strings.SplitN(strings.TrimPrefix(version, "v"), ".", 3)
	if len(parts) < 2 {
		return 0, 0, false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return major, minor, true
}

// ChangelogLink returns the URL of the changelog entry for version. io.js
// releases (1.x to 3.x) share one changelog; 0.x releases are grouped per minor.
func ChangelogLink(base, version string) string {
	major, minor, ok := majorMinor(version)
	if !ok {
		return strings.TrimRight(base, "/") + "/"
	}
	v := strings.TrimPrefix(version, "v")
	var file string
	switch {
	case major == 0:
		file = fmt.Sprintf("CHANGELOG_V%d%d.md", major, minor)
	case major <= 3:
		file = "CHANGELOG_IOJS.md"
	default:
		file = fmt.Sprintf("CHANGELOG_V%d.md", major)
	}
	return fmt.Sprintf("%s/%s#%s", strings.TrimRight(base, "/"), file, v)
}

// APIDocsLink returns the API documentation URL of version.
func APIDocsLink(base, version string) string {
	v := version
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return fmt.Sprintf("%s/%s/docs/api/", strings.TrimRight(base, "/"), v)
}
