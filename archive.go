package endnotefix

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
)

// Extract unpacks the ePub at archivePath into dir, creating dir if needed.
// Encrypted books are refused before anything is written. Structural
// oddities (misplaced mimetype, missing package document) are logged as
// warnings and returned so callers can surface them.
func (f *Fixer) Extract(ctx context.Context, archivePath, dir string) ([]string, error) {
	zrc, warnings, err := f.openArchive(archivePath)
	if err != nil {
		return nil, err
	}
	defer zrc.Close()

	if err := f.extractArchive(ctx, &zrc.Reader, archivePath, dir); err != nil {
		return nil, err
	}
	return warnings, nil
}

// openArchive opens archivePath and runs the checks that must pass before
// the working directory is touched: the ZIP structure, DRM and the layout
// inspection. The caller closes the returned reader.
func (f *Fixer) openArchive(archivePath string) (*zip.ReadCloser, []string, error) {
	zrc, err := zip.OpenReader(archivePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("endnotefix: open %s: %w", archivePath, err)
		}
		return nil, nil, fmt.Errorf("endnotefix: open %s: %w: %v", archivePath, ErrInvalidArchive, err)
	}

	fontObfuscation, err := checkDRM(&zrc.Reader)
	if err != nil {
		zrc.Close()
		return nil, nil, err
	}

	warnings := inspectArchive(&zrc.Reader)
	if fontObfuscation {
		warnings = append(warnings, "font obfuscation detected; obfuscated fonts are copied unchanged")
	}
	for _, w := range warnings {
		f.log.Warn("archive check", zap.String("archive", archivePath), zap.String("warning", w))
	}
	return zrc, warnings, nil
}

// extractArchive writes every member of zr below dir and sets each file's
// modification time from its ZIP header.
func (f *Fixer) extractArchive(ctx context.Context, zr *zip.Reader, archivePath, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("endnotefix: create %s: %w", dir, err)
	}

	f.log.Info("extract", zap.String("archive", archivePath), zap.String("dir", dir))
	for _, zf := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := extractZipFile(zf, dir); err != nil {
			return err
		}
		if zf.Modified.IsZero() {
			continue
		}
		target := filepath.Join(dir, filepath.FromSlash(zf.Name))
		if err := os.Chtimes(target, zf.Modified, zf.Modified); err != nil {
			return fmt.Errorf("endnotefix: set mtime %s: %w", target, err)
		}
	}
	return nil
}

// Repack writes every regular file below dir into a new ZIP archive at out,
// using paths relative to dir. The mimetype member, when present, is
// written first and stored uncompressed; the rest follow in lexical order.
func (f *Fixer) Repack(ctx context.Context, dir, out string) (PassReport, error) {
	var report PassReport
	if err := requireWorkspace(dir); err != nil {
		return report, err
	}

	names, err := collectFiles(dir)
	if err != nil {
		return report, err
	}
	if len(names) == 0 {
		return report, fmt.Errorf("%w: %s is empty", ErrNoWorkspace, dir)
	}
	sort.SliceStable(names, func(i, j int) bool {
		return names[i] == mimetypeName && names[j] != mimetypeName
	})

	file, err := os.Create(out)
	if err != nil {
		return report, fmt.Errorf("endnotefix: create %s: %w", out, err)
	}
	defer file.Close()

	f.log.Info("repack", zap.String("dir", dir))
	zw := zip.NewWriter(file)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			zw.Close()
			return report, err
		}
		src := filepath.Join(dir, filepath.FromSlash(name))
		if err := addZipFile(zw, src, name); err != nil {
			zw.Close()
			return report, err
		}
		report.Files = append(report.Files, src)
		report.Count++
		f.log.Debug("packed", zap.String("file", src))
	}
	if err := zw.Close(); err != nil {
		return report, fmt.Errorf("endnotefix: finalize %s: %w", out, err)
	}
	if err := file.Close(); err != nil {
		return report, fmt.Errorf("endnotefix: close %s: %w", out, err)
	}

	f.log.Info("repacked", zap.String("result", out), zap.Int("members", report.Count))
	return report, nil
}

// collectFiles returns the slash-separated paths of all regular files below
// dir, relative to dir, in lexical walk order.
func collectFiles(dir string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("endnotefix: walk %s: %w", dir, err)
	}
	return names, nil
}

// requireWorkspace fails with ErrNoWorkspace unless dir is an existing
// directory, as left behind by a previous extraction.
func requireWorkspace(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNoWorkspace, dir)
		}
		return fmt.Errorf("endnotefix: stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrNoWorkspace, dir)
	}
	return nil
}
