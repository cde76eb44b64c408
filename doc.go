// Package endnotefix repairs endnote numbering and table-of-contents chapter
// labels in an ePub exported with placeholder values.
//
// The work happens on an extracted copy of the book in a scratch directory:
//
//	f := endnotefix.New(endnotefix.DefaultConfig(), logger)
//	report, err := f.Run(ctx, "book.epub", endnotefix.ModeFull)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(report.Output) // book_fixed.epub
//
// # Passes
//
// The HTML pass parses every .html and .xhtml file with the HTML5 parser and
// applies [FixEndnotes] (labels reading "-1" become their list position) and
// [RemoveEmptyFrames] (text frames without visible text are deleted).
//
// The TOC pass parses navigation files as XML. Files named toc* go through
// [RenumberNCX] and [RenumberNavList]; other .xhtml files go through
// [RenumberContentTOC]. All three share one state machine: entries before
// [Config.StartMarker] are left alone, the start entry and each following one
// get the next word from [Config.Ordinals] prefixed and trailing digits
// removed, and [Config.EndMarker] stops the walk. [RenumberLabels] exposes the
// same machine for plain string slices.
//
// Only files a pass actually changed are written back; all other archive
// members are repacked byte for byte.
//
// # Modes
//
// [ModeTOCOnly] and [ModeRepackOnly] reuse the scratch directory of an earlier
// [ModeFull] run and return [ErrNoWorkspace] when it is missing.
//
// # Error Handling
//
// The package defines sentinel errors for the failure cases:
//   - [ErrInvalidArchive] – the input is not a readable ZIP archive
//   - [ErrDRMProtected] – content documents are encrypted
//   - [ErrUnsafePath] – a member path escapes the extraction directory
//   - [ErrNoWorkspace] – no previous extraction to operate on
//   - [ErrTooManyChapters] – more chapters than ordinal words; logged by
//     [Fixer] and reported in [TOCReport.Overflows], never fatal
package endnotefix
