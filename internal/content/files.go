package content

import (
	"fmt"
	"sort"
	"sync"
)

// Files is the set of items of one build pass, keyed by output path.
// Iteration order is sorted by path so every pass is deterministic.
type Files struct {
	mu    sync.RWMutex
	items map[string]*Item
}

// NewFiles builds a set from items. Later items replace earlier ones with the same path.
func NewFiles(items ...*Item) *Files {
	f := &Files{items: make(map[string]*Item, len(items))}
	for _, it := range items {
		f.items[it.Path] = it
	}
	return f
}

func (f *Files) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.items)
}

// Get returns the item at path.
func (f *Files) Get(path string) (*Item, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	it, ok := f.items[path]
	return it, ok
}

// Put adds or replaces an item.
func (f *Files) Put(it *Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[it.Path] = it
}

// Delete removes the item at path.
func (f *Files) Delete(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, path)
}

// Rename moves an item to a new output path. Renaming onto an existing
// different item is an error.
func (f *Files) Rename(from, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[from]
	if !ok {
		return fmt.Errorf("rename %s: no such item", from)
	}
	if from == to {
		return nil
	}
	if other, exists := f.items[to]; exists && other != it {
		return fmt.Errorf("rename %s: %s already exists (from %s)", from, to, other.SourcePath)
	}
	delete(f.items, from)
	it.Path = to
	f.items[to] = it
	return nil
}

// Move moves an item to a new output path, replacing any item already there.
func (f *Files) Move(from, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[from]
	if !ok {
		return fmt.Errorf("move %s: no such item", from)
	}
	delete(f.items, from)
	it.Path = to
	f.items[to] = it
	return nil
}

// Paths returns all output paths in sorted order.
func (f *Files) Paths() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.items))
	for p := range f.items {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Items returns all items sorted by output path.
func (f *Files) Items() []*Item {
	paths := f.Paths()
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*Item, 0, len(paths))
	for _, p := range paths {
		if it, ok := f.items[p]; ok {
			out = append(out, it)
		}
	}
	return out
}

// Filter returns the items for which keep is true, sorted by path.
func (f *Files) Filter(keep func(*Item) bool) []*Item {
	all := f.Items()
	out := all[:0]
	for _, it := range all {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}
