package metadata

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// ErrMissingLocaleDocument is returned by Resolve when the default or the
// requested locale has no metadata document.
var ErrMissingLocaleDocument = errors.New("missing locale document")

// Store holds one metadata document per locale, keyed by locale identifier.
type Store struct {
	mu            sync.RWMutex
	defaultLocale string
	docs          map[string]*Document

	// set by LoadStore; empty for in-memory stores
	root string
	file string
}

// NewStore builds a store from in-memory documents.
func NewStore(defaultLocale string, docs map[string]*Document) *Store {
	copied := make(map[string]*Document, len(docs))
	for k, v := range docs {
		copied[k] = v
	}
	return &Store{defaultLocale: defaultLocale, docs: copied}
}

// LoadStore reads <root>/<locale>/<file> for every locale directory under root.
// Locale directories without the file are left out of the store; a malformed
// document is an error.
func LoadStore(root, file, defaultLocale string) (*Store, error) {
	s := &Store{defaultLocale: defaultLocale, docs: map[string]*Document{}, root: root, file: file}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to list locale root").
			Fatal().
			WithContext("path", root).
			Build()
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := s.Refresh(e.Name()); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Refresh re-reads the documents of the given locales from disk. A locale whose
// file disappeared is dropped from the store.
func (s *Store) Refresh(locales ...string) error {
	if s.root == "" {
		return nil
	}
	for _, locale := range locales {
		p := filepath.Join(s.root, locale, s.file)
		data, err := os.ReadFile(p)
		if errors.Is(err, os.ErrNotExist) {
			s.mu.Lock()
			delete(s.docs, locale)
			s.mu.Unlock()
			continue
		}
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to read locale document").
				WithContext("locale", locale).
				WithContext("path", p).
				Build()
		}
		doc, err := ParseJSON(data)
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryValidation, "malformed locale document").
				WithContext("locale", locale).
				WithContext("path", p).
				Build()
		}
		s.mu.Lock()
		s.docs[locale] = doc
		s.mu.Unlock()
	}
	return nil
}

// DefaultLocale returns the locale whose document is the merge base.
func (s *Store) DefaultLocale() string { return s.defaultLocale }

// Locales returns the locales with a document, sorted.
func (s *Store) Locales() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.docs))
	for k := range s.docs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Document returns the raw, unmerged document for a locale.
func (s *Store) Document(locale string) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[locale]
	return d, ok
}

// Resolve returns the default document deep-merged with the locale's override.
// Stored documents are never modified.
func (s *Store) Resolve(locale string) (*Document, error) {
	s.mu.RLock()
	base, hasBase := s.docs[s.defaultLocale]
	override, hasOverride := s.docs[locale]
	s.mu.RUnlock()

	missing := ""
	switch {
	case !hasBase:
		missing = s.defaultLocale
	case !hasOverride:
		missing = locale
	}
	if missing != "" {
		return nil, ferrors.WrapError(fmt.Errorf("%w: %s", ErrMissingLocaleDocument, missing), ferrors.CategoryNotFound, "cannot resolve locale metadata").
			WithContext("locale", locale).
			WithContext("missing", missing).
			Build()
	}
	return Merge(base, override), nil
}
