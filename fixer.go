package endnotefix

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/beevik/etree"
	"go.uber.org/zap"
)

// Fixer runs the fix passes over an extracted ePub.
//
// A Fixer is not safe for concurrent use; the passes are strictly sequential
// and each file is parsed, rewritten and closed before the next is opened.
type Fixer struct {
	cfg Config
	log *zap.Logger
}

// New returns a Fixer for cfg. Zero-valued fields of cfg take their
// DefaultConfig values. A nil logger discards all output.
func New(cfg Config, log *zap.Logger) *Fixer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fixer{cfg: cfg.withDefaults(), log: log}
}

// Config returns the effective configuration.
func (f *Fixer) Config() Config { return f.cfg }

// Run executes mode for the ePub at archivePath using the configured working
// directory. TOC-only and repack-only runs require a previous extraction and
// return ErrNoWorkspace without it. A full run opens and checks the archive
// first, then clears the working directory before extracting so that it
// never operates on stale files.
func (f *Fixer) Run(ctx context.Context, archivePath string, mode Mode) (Report, error) {
	dir := f.cfg.WorkDir
	report := Report{Mode: mode}

	switch mode {
	case ModeTOCOnly:
		if err := requireWorkspace(dir); err != nil {
			return report, err
		}
		toc, err := f.FixTOCFiles(ctx, dir)
		report.TOC = toc
		if err != nil {
			return report, err
		}
		f.log.Info("completed TOC modify only")
		return report, nil

	case ModeRepackOnly:
		report.Output = OutputName(archivePath, f.cfg.OutputSuffix)
		rp, err := f.Repack(ctx, dir, report.Output)
		report.Repack = rp
		if err != nil {
			return report, err
		}
		f.log.Info("completed repack only")
		return report, nil

	case ModeFull:
	default:
		return report, fmt.Errorf("endnotefix: unknown mode %d", mode)
	}

	zrc, warnings, err := f.openArchive(archivePath)
	report.Warnings = warnings
	if err != nil {
		return report, err
	}
	defer zrc.Close()

	if within(archivePath, dir) {
		return report, fmt.Errorf("endnotefix: %s is inside the working directory %s", archivePath, dir)
	}
	if err := resetWorkspace(dir); err != nil {
		return report, err
	}
	if err := f.extractArchive(ctx, &zrc.Reader, archivePath, dir); err != nil {
		return report, err
	}

	if report.HTML, err = f.FixHTMLFiles(ctx, dir); err != nil {
		return report, err
	}
	if report.TOC, err = f.FixTOCFiles(ctx, dir); err != nil {
		return report, err
	}

	report.Output = OutputName(archivePath, f.cfg.OutputSuffix)
	if report.Repack, err = f.Repack(ctx, dir, report.Output); err != nil {
		return report, err
	}
	return report, nil
}

// FixHTMLFiles runs the endnote and empty-frame fixes over every .html and
// .xhtml file below dir. Files without a change are not rewritten.
func (f *Fixer) FixHTMLFiles(ctx context.Context, dir string) (HTMLReport, error) {
	var report HTMLReport
	err := walkFiles(ctx, dir, func(p string) error {
		if !isContentDocument(p) {
			return nil
		}
		endnotes, frames, err := f.FixHTMLFile(p)
		if err != nil {
			return err
		}
		report.Count += endnotes
		report.FramesRemoved += frames
		if endnotes+frames > 0 {
			report.Files = append(report.Files, p)
			f.log.Info("wrote modified html",
				zap.String("file", p),
				zap.Int("endnotes", endnotes),
				zap.Int("frames_removed", frames))
		}
		return nil
	})
	f.log.Info("html pass",
		zap.Int("files", len(report.Files)),
		zap.Int("endnotes", report.Count),
		zap.Int("frames_removed", report.FramesRemoved))
	return report, err
}

// FixHTMLFile applies FixEndnotes and RemoveEmptyFrames to one file and
// writes it back when either changed something.
func (f *Fixer) FixHTMLFile(p string) (endnotes, frames int, err error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return 0, 0, fmt.Errorf("endnotefix: read %s: %w", p, err)
	}
	doc, err := parseHTMLDocument(data)
	if err != nil {
		return 0, 0, fmt.Errorf("%w (%s)", err, p)
	}

	endnotes = FixEndnotes(doc.Document, f.cfg)
	frames = RemoveEmptyFrames(doc.Document, f.cfg)
	if endnotes+frames == 0 {
		return 0, 0, nil
	}

	out, err := doc.Bytes()
	if err != nil {
		return 0, 0, fmt.Errorf("%w (%s)", err, p)
	}
	if err := writeFileKeepTime(p, out); err != nil {
		return 0, 0, err
	}
	return endnotes, frames, nil
}

// FixTOCFiles renumbers chapter labels in the navigation files and content
// documents below dir. Files named with the TOC prefix get the navigation map
// and list walks; other .xhtml files get the content-div walk. Chapter
// overflow is logged and does not stop the pass.
func (f *Fixer) FixTOCFiles(ctx context.Context, dir string) (TOCReport, error) {
	var report TOCReport
	err := walkFiles(ctx, dir, func(p string) error {
		n, overflow, err := f.FixTOCFile(p)
		if err != nil {
			return err
		}
		if overflow {
			report.Overflows = append(report.Overflows, p)
		}
		if n > 0 {
			report.Count += n
			report.Files = append(report.Files, p)
			f.log.Info("wrote modified toc", zap.String("file", p), zap.Int("chapters", n))
		}
		return nil
	})
	f.log.Info("toc pass",
		zap.Int("files", len(report.Files)),
		zap.Int("chapters", report.Count),
		zap.Int("overflows", len(report.Overflows)))
	return report, err
}

// FixTOCFile routes one file to the applicable table-of-contents walks and
// writes it back when any walk numbered a chapter. The overflow result
// reports whether a walk stopped with ErrTooManyChapters; that condition is
// logged, not returned as an error.
//
// Files are parsed as strict XML. Only the HTML named entities known to
// preprocessHTMLEntities are converted first; any other named entity (such
// as &hearts;) or markup that is not well-formed makes FixTOCFile return a
// parse error, which stops the TOC pass.
func (f *Fixer) FixTOCFile(p string) (chapters int, overflow bool, err error) {
	type walk struct {
		name string
		fn   func(*etree.Document, Config) (int, error)
	}

	var walks []walk
	base := filepath.Base(p)
	switch {
	case strings.HasPrefix(base, f.cfg.TOCPrefix):
		if !isNavigationDocument(base) {
			f.log.Debug("skip non-markup toc file", zap.String("file", p))
			return 0, false, nil
		}
		walks = []walk{{"ncx", RenumberNCX}, {"nav list", RenumberNavList}}
	case strings.HasSuffix(base, ".xhtml"):
		walks = []walk{{"content", RenumberContentTOC}}
	default:
		return 0, false, nil
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return 0, false, fmt.Errorf("endnotefix: read %s: %w", p, err)
	}
	doc, bom, err := parseXMLDocument(data)
	if err != nil {
		return 0, false, fmt.Errorf("%w (%s)", err, p)
	}

	for _, w := range walks {
		n, err := w.fn(doc, f.cfg)
		chapters += n
		if errors.Is(err, ErrTooManyChapters) {
			overflow = true
			f.log.Warn("toc numbering stopped",
				zap.String("file", p),
				zap.String("walk", w.name),
				zap.Int("chapters", n),
				zap.Error(err))
			continue
		}
		if err != nil {
			return 0, false, fmt.Errorf("endnotefix: %s walk %s: %w", w.name, p, err)
		}
	}
	if chapters == 0 {
		return 0, overflow, nil
	}

	out, err := renderXMLDocument(doc, bom)
	if err != nil {
		return 0, overflow, fmt.Errorf("%w (%s)", err, p)
	}
	if err := writeFileKeepTime(p, out); err != nil {
		return 0, overflow, err
	}
	return chapters, overflow, nil
}

// isContentDocument reports whether the HTML pass applies to p.
func isContentDocument(p string) bool {
	return strings.HasSuffix(p, ".html") || strings.HasSuffix(p, ".xhtml")
}

// isNavigationDocument reports whether a TOC-prefixed file is markup the
// TOC pass can parse, as opposed to a stylesheet or image that merely
// shares the prefix.
func isNavigationDocument(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".ncx", ".xhtml", ".html", ".htm", ".xml":
		return true
	}
	return false
}

// walkFiles calls fn for every regular file below dir in lexical order,
// stopping at the first error or when ctx is cancelled.
func walkFiles(ctx context.Context, dir string, fn func(path string) error) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return fn(p)
	})
}

// writeFileKeepTime replaces the contents of p and restores its previous
// modification time, so that repacking the same input twice yields the same
// archive bytes.
func writeFileKeepTime(p string, data []byte) error {
	var mtime time.Time
	if info, err := os.Stat(p); err == nil {
		mtime = info.ModTime()
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("endnotefix: write %s: %w", p, err)
	}
	if !mtime.IsZero() {
		if err := os.Chtimes(p, mtime, mtime); err != nil {
			return fmt.Errorf("endnotefix: restore mtime %s: %w", p, err)
		}
	}
	return nil
}

// resetWorkspace removes a previous extraction at dir. It refuses paths that
// would clear the current directory or one of its parents, however they are
// spelled.
func resetWorkspace(dir string) error {
	clean := filepath.Clean(dir)
	if clean == "." || clean == ".." || clean == string(filepath.Separator) || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("endnotefix: refusing to clear working directory %q", dir)
	}
	abs, err := filepath.Abs(clean)
	if err != nil {
		return fmt.Errorf("endnotefix: resolve %s: %w", dir, err)
	}
	if abs == filepath.Dir(abs) {
		return fmt.Errorf("endnotefix: refusing to clear working directory %q", dir)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("endnotefix: resolve current directory: %w", err)
	}
	if within(cwd, abs) {
		return fmt.Errorf("endnotefix: refusing to clear working directory %q: it contains the current directory", dir)
	}
	if err := os.RemoveAll(clean); err != nil {
		return fmt.Errorf("endnotefix: clear %s: %w", dir, err)
	}
	return nil
}

// within reports whether p lies below dir.
func within(p, dir string) bool {
	ap, err1 := filepath.Abs(p)
	ad, err2 := filepath.Abs(dir)
	if err1 != nil || err2 != nil {
		return false
	}
	rel, err := filepath.Rel(ad, ap)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
