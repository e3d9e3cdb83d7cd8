package content

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/sitebuilder/internal/frontmatter"
)

// LoadOptions controls which files Load reads.
type LoadOptions struct {
	// Skip lists root-relative paths excluded verbatim, such as the locale
	// metadata document.
	Skip []string
	// Ignore lists doublestar patterns matched against root-relative paths.
	Ignore      []string
	Concurrency int
}

// Load reads every regular file under root into a Files set. Text files that
// begin with a front matter block have it parsed into Meta and stripped from
// Contents. Reads run concurrently and all complete before Load returns.
func Load(ctx context.Context, root string, opts LoadOptions) (*Files, error) {
	skip := make(map[string]bool, len(opts.Skip))
	for _, s := range opts.Skip {
		skip[filepath.ToSlash(s)] = true
	}

	var paths []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if skip[rel] || ignored(rel, opts.Ignore) {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	items := make([]*Item, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for i, rel := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			it, err := readItem(root, rel)
			if err != nil {
				return err
			}
			items[i] = it
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return NewFiles(items...), nil
}

func ignored(rel string, patterns []string) bool {
	for _, pat := range patterns {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

func readItem(root, rel string) (*Item, error) {
	src := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Stat(src)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, err
	}
	it := &Item{
		Path:       rel,
		SourcePath: src,
		Contents:   data,
		Meta:       map[string]any{},
		Mode:       info.Mode().Perm(),
		ModTime:    info.ModTime(),
	}
	if bytes.HasPrefix(data, []byte("---")) && utf8.Valid(data) {
		meta, body, err := frontmatter.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rel, err)
		}
		it.Meta = meta
		it.Contents = body
	}
	return it, nil
}
