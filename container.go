package endnotefix

import (
	"archive/zip"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

const (
	// containerPath is the well-known location of container.xml in an ePub archive.
	containerPath = "META-INF/container.xml"

	mimetypeName     = "mimetype"
	expectedMimetype = "application/epub+zip"
	opfMediaType     = "application/oebps-package+xml"
)

// locateOPF finds the package document of the ePub. It reads the rootfiles
// of META-INF/container.xml, preferring the one with the OPF media type,
// and falls back to the first ".opf" member when container.xml is missing.
func locateOPF(zr *zip.Reader) (string, error) {
	f := findFileInsensitive(zr, containerPath)
	if f == nil {
		for _, zf := range zr.File {
			if strings.HasSuffix(strings.ToLower(zf.Name), ".opf") {
				return zf.Name, nil
			}
		}
		return "", fmt.Errorf("endnotefix: no OPF file found in archive: %w", ErrInvalidArchive)
	}

	data, err := readZipFile(f)
	if err != nil {
		return "", fmt.Errorf("endnotefix: read container.xml: %w", err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(stripBOM(data)); err != nil {
		return "", fmt.Errorf("endnotefix: parse container.xml: %w", err)
	}

	var fallback string
	for _, rf := range doc.FindElements("//rootfiles/rootfile") {
		fullPath := strings.TrimSpace(rf.SelectAttrValue("full-path", ""))
		if fullPath == "" {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(rf.SelectAttrValue("media-type", "")), opfMediaType) {
			return fullPath, nil
		}
		if fallback == "" {
			fallback = fullPath
		}
	}
	if fallback == "" {
		return "", fmt.Errorf("endnotefix: container.xml has no usable rootfile: %w", ErrInvalidArchive)
	}
	return fallback, nil
}

// inspectArchive checks the structural conventions the repacked archive
// depends on and returns human-readable warnings for every deviation.
// None of these stop the run; the tool passes the layout through as found.
func inspectArchive(zr *zip.Reader) []string {
	var warnings []string

	switch {
	case len(zr.File) == 0:
		warnings = append(warnings, "empty ZIP archive; mimetype entry missing")
	case zr.File[0].Name != mimetypeName:
		warnings = append(warnings, "first ZIP entry is not \"mimetype\"")
	default:
		data, err := readZipFile(zr.File[0])
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("cannot read mimetype entry: %v", err))
		} else if string(data) != expectedMimetype {
			warnings = append(warnings, fmt.Sprintf("unexpected mimetype: %q", string(data)))
		}
	}

	opfPath, err := locateOPF(zr)
	if err != nil {
		warnings = append(warnings, err.Error())
	} else if findFileInsensitive(zr, opfPath) == nil {
		warnings = append(warnings, fmt.Sprintf("package document %s listed but missing", opfPath))
	}

	return warnings
}
