package endnotefix

// Mode selects which steps Run executes.
type Mode int

const (
	// ModeFull extracts the archive, runs the HTML and TOC passes and repacks.
	ModeFull Mode = iota

	// ModeTOCOnly runs the TOC pass over an existing extraction.
	ModeTOCOnly

	// ModeRepackOnly repacks an existing extraction.
	ModeRepackOnly
)

func (m Mode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeTOCOnly:
		return "toc-only"
	case ModeRepackOnly:
		return "repack-only"
	default:
		return "unknown"
	}
}

// PassReport summarises one pass over the working directory.
type PassReport struct {
	// Files lists the paths written (or packed) by the pass.
	Files []string

	// Count is the pass-specific total: endnotes renumbered, chapters
	// numbered, or members packed.
	Count int
}

// HTMLReport summarises the endnote and empty-frame pass.
type HTMLReport struct {
	PassReport

	// FramesRemoved is the number of empty text frames deleted.
	FramesRemoved int
}

// TOCReport summarises the table-of-contents pass.
type TOCReport struct {
	PassReport

	// Overflows lists the files whose numbering stopped with
	// ErrTooManyChapters.
	Overflows []string
}

// Report is the result of Run.
type Report struct {
	Mode Mode

	// Output is the path of the repacked archive; empty in TOC-only mode.
	Output string

	// Warnings are the non-fatal archive checks from extraction.
	Warnings []string

	HTML   HTMLReport
	TOC    TOCReport
	Repack PassReport
}
