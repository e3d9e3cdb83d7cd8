package build

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/observability"
)

// StaticDir is the output subdirectory receiving the static tree.
const StaticDir = "static"

// CopyStatic copies the static tree to <output>/static, creating directories
// and overwriting existing files. A failure is logged and returned as a
// warning-severity filesystem error wrapping ErrStaticCopy.
func (b *Builder) CopyStatic(ctx context.Context) error {
	start := time.Now()
	src := b.cfg.StaticDir()
	dst := filepath.Join(b.cfg.OutputDir(), StaticDir)

	err := copyDir(ctx, src, dst)
	d := time.Since(start)
	b.recorder.ObserveStaticCopy(d, err == nil)
	if err != nil {
		wrapped := ferrors.WrapError(fmt.Errorf("%w: %w", ErrStaticCopy, err), ferrors.CategoryFileSystem, "static copy failed").
			Warning().
			WithContext("source", src).
			WithContext("destination", dst).
			Build()
		observability.WarnContext(ctx, "static copy failed", logfields.Path(src), logfields.Error(err))
		return wrapped
	}
	observability.InfoContext(ctx, "static copy finished", logfields.Path(dst), logfields.Elapsed(d))
	return nil
}

// copyDir recursively copies src into dst.
func copyDir(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, srcInfo.Mode().Perm()|0o700); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := copyDir(ctx, srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

// copyFile copies a single file from src to dst, keeping its permissions.
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = srcFile.Close()
	}()

	info, err := srcFile.Stat()
	if err != nil {
		return err
	}
	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(dstFile, srcFile); err != nil {
		_ = dstFile.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return dstFile.Close()
}
