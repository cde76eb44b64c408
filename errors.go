package endnotefix

import "errors"

// Sentinel errors returned by the endnotefix package.
var (
	// ErrInvalidArchive indicates the input is not a readable ZIP archive.
	ErrInvalidArchive = errors.New("endnotefix: invalid archive")

	// ErrDRMProtected indicates the ePub content is encrypted
	// (e.g., Adobe ADEPT, Apple FairPlay, Readium LCP) and cannot be rewritten.
	ErrDRMProtected = errors.New("endnotefix: file is DRM protected")

	// ErrUnsafePath indicates an archive member whose path would escape
	// the extraction directory.
	ErrUnsafePath = errors.New("endnotefix: unsafe archive path")

	// ErrNoWorkspace indicates the scratch directory has not been populated
	// by a previous extraction. TOC-only and repack-only runs require one.
	ErrNoWorkspace = errors.New("endnotefix: working directory not found; run a full extraction first")

	// ErrTooManyChapters indicates a table of contents has more chapter
	// entries than there are ordinal words configured.
	ErrTooManyChapters = errors.New("endnotefix: more chapters than ordinal words")
)
