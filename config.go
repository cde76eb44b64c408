package endnotefix

import (
	"path/filepath"
	"strings"
)

// DefaultWorkDir is the scratch directory an archive is extracted into.
// It is relative to the current working directory and survives between runs
// so that TOC-only and repack-only modes can operate on a previous extraction.
const DefaultWorkDir = "endnote_fix_temp"

// ChapterOrdinals is the default table of spelled-out chapter numbers
// prefixed to table-of-contents labels.
var ChapterOrdinals = []string{
	"ONE", "TWO", "THREE", "FOUR", "FIVE",
	"SIX", "SEVEN", "EIGHT", "NINE", "TEN",
	"ELEVEN", "TWELVE", "THIRTEEN", "FOURTEEN", "FIFTEEN",
	"SIXTEEN", "SEVENTEEN", "EIGHTEEN", "NINETEEN",
}

// Config holds the book-specific literals that drive the fix passes.
// The defaults match the layout exported by InDesign for the book this tool
// was written for; other books mostly need StartMarker and EndMarker changed.
type Config struct {
	// WorkDir is the extraction root.
	WorkDir string

	// OutputSuffix is inserted before the extension of the input name
	// to form the output archive name.
	OutputSuffix string

	// EndnoteAnchorClass marks the <a> element wrapping an endnote label.
	EndnoteAnchorClass string

	// Placeholder is the label text that stands for "number not assigned yet".
	Placeholder string

	// TextFrameClass marks the <div> containers checked for emptiness.
	TextFrameClass string

	// TOCPrefix selects navigation files by base name (toc.ncx, toc.xhtml).
	TOCPrefix string

	// StartMarker is the title of the first numbered chapter.
	StartMarker string

	// EndMarker is the title at which numbering stops. It is never modified.
	EndMarker string

	// Ordinals is the chapter word table, indexed by the chapter counter.
	Ordinals []string
}

// DefaultConfig returns the configuration used by the command-line tool.
func DefaultConfig() Config {
	return Config{
		WorkDir:            DefaultWorkDir,
		OutputSuffix:       "_fixed",
		EndnoteAnchorClass: "_idEndnoteAnchor",
		Placeholder:        "-1",
		TextFrameClass:     "Basic-Text-Frame",
		TOCPrefix:          "toc",
		StartMarker:        "Darian",
		EndMarker:          "Endnotes",
		Ordinals:           append([]string(nil), ChapterOrdinals...),
	}
}

// withDefaults fills zero-valued fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WorkDir == "" {
		c.WorkDir = d.WorkDir
	}
	if c.OutputSuffix == "" {
		c.OutputSuffix = d.OutputSuffix
	}
	if c.EndnoteAnchorClass == "" {
		c.EndnoteAnchorClass = d.EndnoteAnchorClass
	}
	if c.Placeholder == "" {
		c.Placeholder = d.Placeholder
	}
	if c.TextFrameClass == "" {
		c.TextFrameClass = d.TextFrameClass
	}
	if c.TOCPrefix == "" {
		c.TOCPrefix = d.TOCPrefix
	}
	if c.StartMarker == "" {
		c.StartMarker = d.StartMarker
	}
	if c.EndMarker == "" {
		c.EndMarker = d.EndMarker
	}
	if len(c.Ordinals) == 0 {
		c.Ordinals = d.Ordinals
	}
	return c
}

// OutputName derives the repacked archive name from the input name by
// inserting suffix before the extension: "book.epub" -> "book_fixed.epub".
func OutputName(input, suffix string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + suffix + ext
}
