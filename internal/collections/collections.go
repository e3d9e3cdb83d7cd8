// Package collections groups pipeline items into named, ordered views.
package collections

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/frontmatter"
)

// MetaKey is the front matter key listing the collections an item belongs to.
const MetaKey = "collection"

// Definition selects members by glob pattern and orders them.
type Definition struct {
	Name    string
	Pattern string
	SortBy  string
	Reverse bool
	Limit   int
}

// Set holds the computed collections of one pass.
type Set struct {
	names   []string
	members map[string][]*content.Item
}

// Names returns the collection names in definition order.
func (s *Set) Names() []string { return append([]string(nil), s.names...) }

// Get returns the members of the named collection (nil if unknown).
func (s *Set) Get(name string) []*content.Item { return s.members[name] }

// Native returns the collections as front matter maps for template contexts.
// Each entry exposes the member's meta plus its path and contents.
func (s *Set) Native() map[string]any {
	out := make(map[string]any, len(s.names))
	for _, name := range s.names {
		list := make([]any, 0, len(s.members[name]))
		for _, it := range s.members[name] {
			entry := make(map[string]any, len(it.Meta)+2)
			for k, v := range it.Meta {
				entry[k] = v
			}
			if _, ok := entry["path"]; !ok {
				entry["path"] = it.Path
			}
			entry["contents"] = string(it.Contents)
			list = append(list, entry)
		}
		out[name] = list
	}
	return out
}

// Compute evaluates every definition against files. Membership depends only
// on the pattern; ordering is stable with ties broken by path. Each member's
// meta gains the names of the collections it belongs to.
func Compute(files *content.Files, defs []Definition) (*Set, error) {
	set := &Set{members: make(map[string][]*content.Item, len(defs))}
	items := files.Items()
	for _, it := range items {
		delete(it.Meta, MetaKey)
	}

	for _, def := range defs {
		if _, dup := set.members[def.Name]; dup {
			return nil, fmt.Errorf("collection %q defined twice", def.Name)
		}
		if !doublestar.ValidatePattern(def.Pattern) {
			return nil, fmt.Errorf("collection %q: invalid pattern %q", def.Name, def.Pattern)
		}
		var members []*content.Item
		for _, it := range items {
			if ok, _ := doublestar.Match(def.Pattern, it.Path); ok {
				members = append(members, it)
			}
		}
		sortMembers(members, def.SortBy)
		if def.Reverse {
			for i, j := 0, len(members)-1; i < j; i, j = i+1, j-1 {
				members[i], members[j] = members[j], members[i]
			}
		}
		if def.Limit > 0 && len(members) > def.Limit {
			members = members[:def.Limit]
		}
		for _, it := range members {
			names, _ := it.Meta[MetaKey].([]string)
			it.Meta[MetaKey] = append(names, def.Name)
		}
		set.names = append(set.names, def.Name)
		set.members[def.Name] = members
	}
	return set, nil
}

func sortMembers(items []*content.Item, key string) {
	sort.SliceStable(items, func(i, j int) bool {
		if key != "" {
			if c := compareValues(items[i].Meta[key], items[j].Meta[key]); c != 0 {
				return c < 0
			}
		}
		return items[i].Path < items[j].Path
	})
}

// compareValues orders missing and undated values before dated ones. Values
// that are not dates compare numerically when possible, else as text.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	ta, aIsDate := frontmatter.Date(a)
	tb, bIsDate := frontmatter.Date(b)
	switch {
	case aIsDate && bIsDate:
		return ta.Compare(tb)
	case bIsDate:
		return -1
	case aIsDate:
		return 1
	}
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
