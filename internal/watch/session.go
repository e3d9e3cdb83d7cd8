// Package watch maps filesystem changes under the content, templates and
// static trees to rebuild actions and schedules them.
package watch

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Tree names one of the watched trees.
type Tree string

const (
	TreeContent   Tree = "content"
	TreeTemplates Tree = "templates"
	TreeStatic    Tree = "static"
)

// Op is the kind of change an Event reports.
type Op int

const (
	OpCreate Op = iota + 1
	OpWrite
	OpRemove
	OpRename
	OpChmod
)

// Event is one observed change.
type Event struct {
	Path  string
	Op    Op
	IsDir bool
}

// ActionKind is the rebuild an event calls for.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionLocaleBuild
	ActionFullBuild
	ActionStaticCopy
)

func (k ActionKind) String() string {
	switch k {
	case ActionLocaleBuild:
		return "locale_build"
	case ActionFullBuild:
		return "full_build"
	case ActionStaticCopy:
		return "static_copy"
	default:
		return "none"
	}
}

// Action is a rebuild request. Locale is set for locale builds only.
type Action struct {
	Kind   ActionKind
	Locale string
	Tree   Tree
}

// scope identifies the unit rebuilds are coalesced on.
func (a Action) scope() string {
	if a.Kind == ActionLocaleBuild {
		return "locale:" + a.Locale
	}
	return a.Kind.String()
}

// Roots locates the watched trees. A change to the default locale's metadata
// file affects every locale and is escalated to a full build.
type Roots struct {
	Content   string
	Templates string
	Static    string

	DefaultLocale string
	MetadataFile  string
}

// Session holds the tracked path sets of the three trees. It is not safe for
// concurrent use; the scheduler goroutine owns it.
type Session struct {
	roots   Roots
	dirs    map[Tree]string
	tracked map[Tree]map[string]struct{}
}

// NewSession tracks every file currently present under the roots without
// producing any action. Missing roots are watched as empty trees.
func NewSession(roots Roots) *Session {
	s := &Session{
		roots: roots,
		dirs: map[Tree]string{
			TreeContent:   filepath.Clean(roots.Content),
			TreeTemplates: filepath.Clean(roots.Templates),
			TreeStatic:    filepath.Clean(roots.Static),
		},
		tracked: map[Tree]map[string]struct{}{
			TreeContent:   {},
			TreeTemplates: {},
			TreeStatic:    {},
		},
	}
	for tree, dir := range s.dirs {
		for _, p := range filesUnder(dir) {
			s.tracked[tree][p] = struct{}{}
		}
	}
	return s
}

// Dirs returns the root directory of every tree.
func (s *Session) Dirs() map[Tree]string {
	out := make(map[Tree]string, len(s.dirs))
	for k, v := range s.dirs {
		out[k] = v
	}
	return out
}

// TreeOf returns the tree containing path.
func (s *Session) TreeOf(path string) (Tree, bool) {
	path = filepath.Clean(path)
	var (
		best    Tree
		bestLen = -1
	)
	for tree, dir := range s.dirs {
		if within(dir, path) && len(dir) > bestLen {
			best, bestLen = tree, len(dir)
		}
	}
	return best, bestLen >= 0
}

// Tracked reports whether path is tracked in tree.
func (s *Session) Tracked(tree Tree, path string) bool {
	_, ok := s.tracked[tree][filepath.Clean(path)]
	return ok
}

// Classify records new files and maps the event to an action. Creating or
// writing a file acts on it; a new directory tracks and acts on the files
// found inside. Removals, renames and mode changes do nothing.
func (s *Session) Classify(tree Tree, ev Event) Action {
	none := Action{Tree: tree}
	if ev.Op != OpCreate && ev.Op != OpWrite {
		return none
	}
	path := filepath.Clean(ev.Path)
	if shouldIgnoreEvent(path) {
		return none
	}
	set, ok := s.tracked[tree]
	if !ok {
		return none
	}

	if ev.IsDir {
		if ev.Op != OpCreate {
			return none
		}
		files := filesUnder(path)
		if len(files) == 0 {
			return none
		}
		for _, f := range files {
			set[f] = struct{}{}
		}
		return s.action(tree, files[0])
	}

	set[path] = struct{}{}
	return s.action(tree, path)
}

func (s *Session) action(tree Tree, path string) Action {
	switch tree {
	case TreeTemplates:
		return Action{Kind: ActionFullBuild, Tree: tree}
	case TreeStatic:
		return Action{Kind: ActionStaticCopy, Tree: tree}
	case TreeContent:
		rel, err := filepath.Rel(s.dirs[TreeContent], path)
		if err != nil {
			return Action{Tree: tree}
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		// files directly in the locale root belong to no locale
		if len(parts) < 2 || parts[0] == ".." {
			return Action{Tree: tree}
		}
		if parts[0] == s.roots.DefaultLocale && len(parts) == 2 && parts[1] == s.roots.MetadataFile {
			return Action{Kind: ActionFullBuild, Tree: tree}
		}
		return Action{Kind: ActionLocaleBuild, Locale: parts[0], Tree: tree}
	}
	return Action{Tree: tree}
}

// filesUnder lists the non-ignored regular files below dir, sorted.
func filesUnder(dir string) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && !shouldIgnoreEvent(p) {
			out = append(out, filepath.Clean(p))
		}
		return nil
	})
	return out
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// shouldIgnoreEvent reports hidden files, editor swap files and OS litter.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
