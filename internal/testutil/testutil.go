// Package testutil holds site fixtures and file assertions shared by tests.
package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	dirPermissions  = 0o755
	filePermissions = 0o644
)

// WriteTree writes files below root. Keys are slash-separated relative paths.
func WriteTree(t testing.TB, root string, files map[string]string) {
	t.Helper()
	for rel, body := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), dirPermissions))
		require.NoError(t, os.WriteFile(p, []byte(body), filePermissions))
	}
}

// Site writes files into a fresh temporary directory and returns it.
func Site(t testing.TB, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	WriteTree(t, root, files)
	return root
}

// FileAssertions checks the state of an output tree.
type FileAssertions struct {
	t       testing.TB
	baseDir string
}

// NewFileAssertions creates assertions rooted at baseDir.
func NewFileAssertions(t testing.TB, baseDir string) *FileAssertions {
	return &FileAssertions{t: t, baseDir: baseDir}
}

func (fa *FileAssertions) path(rel string) string {
	return filepath.Join(fa.baseDir, filepath.FromSlash(rel))
}

// AssertFileExists fails unless rel is a regular file.
func (fa *FileAssertions) AssertFileExists(rel string) *FileAssertions {
	fa.t.Helper()
	require.FileExists(fa.t, fa.path(rel))
	return fa
}

// AssertFileNotExists fails if rel exists.
func (fa *FileAssertions) AssertFileNotExists(rel string) *FileAssertions {
	fa.t.Helper()
	require.NoFileExists(fa.t, fa.path(rel))
	return fa
}

// AssertFileContains fails unless rel contains want.
func (fa *FileAssertions) AssertFileContains(rel, want string) *FileAssertions {
	fa.t.Helper()
	require.Contains(fa.t, fa.Read(rel), want)
	return fa
}

// Read returns the contents of rel.
func (fa *FileAssertions) Read(rel string) string {
	fa.t.Helper()
	data, err := os.ReadFile(fa.path(rel))
	require.NoError(fa.t, err)
	return string(data)
}

// Snapshot maps every file below the base directory to its contents.
func (fa *FileAssertions) Snapshot() map[string]string {
	fa.t.Helper()
	out := map[string]string{}
	require.NoError(fa.t, filepath.WalkDir(fa.baseDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(fa.baseDir, p)
		out[filepath.ToSlash(rel)] = string(data)
		return err
	}))
	return out
}

// Files lists the files below the base directory, sorted.
func (fa *FileAssertions) Files() []string {
	fa.t.Helper()
	snap := fa.Snapshot()
	out := make([]string, 0, len(snap))
	for k := range snap {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
