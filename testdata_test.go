package endnotefix

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/beevik/etree"
)

// buildTestZip creates an in-memory ZIP archive from the provided files map
// (path → content) and returns a *zip.Reader over the resulting bytes.
// It calls t.Fatal on any error.
func buildTestZip(t *testing.T, files map[string]string) *zip.Reader {
	t.Helper()
	data := zipBytes(t, files)
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("buildTestZip: open reader: %v", err)
	}
	return r
}

// zipBytes serialises files into a ZIP archive. The "mimetype" entry, if
// present, is written first; the rest follow in sorted order.
func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	names := make([]string, 0, len(files))
	for name := range files {
		if name != mimetypeName {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if _, ok := files[mimetypeName]; ok {
		names = append([]string{mimetypeName}, names...)
	}

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for _, name := range names {
		fw, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zipBytes: create %s: %v", name, err)
		}
		if _, err := io.WriteString(fw, files[name]); err != nil {
			t.Fatalf("zipBytes: write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zipBytes: close writer: %v", err)
	}
	return buf.Bytes()
}

// buildTestEPubFile writes an ePub (ZIP) archive to a temporary directory and
// returns the file path.
func buildTestEPubFile(t *testing.T, files map[string]string) string {
	t.Helper()
	fp := filepath.Join(t.TempDir(), "book.epub")
	if err := os.WriteFile(fp, zipBytes(t, files), 0o644); err != nil {
		t.Fatalf("buildTestEPubFile: write file: %v", err)
	}
	return fp
}

// readZipEntries returns name → content for every member of the archive at
// path, plus the member order.
func readZipEntries(t *testing.T, path string) (map[string]string, []string) {
	t.Helper()
	zrc, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer zrc.Close()

	out := make(map[string]string, len(zrc.File))
	var order []string
	for _, f := range zrc.File {
		data, err := readZipFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		out[f.Name] = string(data)
		order = append(order, f.Name)
	}
	return out, order
}

// writeTree creates files (slash-separated path → content) below dir.
func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func readFile(t *testing.T, p string) string {
	t.Helper()
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read %s: %v", p, err)
	}
	return string(data)
}

// mustHTML parses markup into a goquery document for the HTML pass tests.
func mustHTML(t *testing.T, markup string) *goquery.Document {
	t.Helper()
	doc, err := parseHTMLDocument([]byte(markup))
	if err != nil {
		t.Fatalf("parseHTMLDocument: %v", err)
	}
	return doc.Document
}

// mustXML parses markup into an etree document for the TOC pass tests.
func mustXML(t *testing.T, markup string) *etree.Document {
	t.Helper()
	doc, _, err := parseXMLDocument([]byte(markup))
	if err != nil {
		t.Fatalf("parseXMLDocument: %v", err)
	}
	return doc
}

// texts returns the full text of each element matched by path.
func texts(doc *etree.Document, path string) []string {
	var out []string
	for _, e := range doc.FindElements(path) {
		out = append(out, elementText(e))
	}
	return out
}

const testContainerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const testNCX = `<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <head><meta name="dtb:uid" content="urn:uuid:1"/></head>
  <docTitle><text>Book</text></docTitle>
  <navMap>
    <navPoint id="np1" playOrder="1"><navLabel><text>Intro</text></navLabel><content src="intro.xhtml"/></navPoint>
    <navPoint id="np2" playOrder="2"><navLabel><text>Darian</text></navLabel><content src="ch1.xhtml"/></navPoint>
    <navPoint id="np3" playOrder="3"><navLabel><text>Eating for Two12</text></navLabel><content src="ch2.xhtml"/></navPoint>
    <navPoint id="np4" playOrder="4"><navLabel><text>Meeting his BFF3</text></navLabel><content src="ch3.xhtml"/></navPoint>
    <navPoint id="np5" playOrder="5"><navLabel><text>Endnotes</text></navLabel><content src="notes.xhtml"/></navPoint>
    <navPoint id="np6" playOrder="6"><navLabel><text>Credits</text></navLabel><content src="credits.xhtml"/></navPoint>
  </navMap>
</ncx>`

const testNavXHTML = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title>TOC</title></head>
<body>
<nav epub:type="toc" id="toc">
<ol>
<li><a href="intro.xhtml">Intro</a></li>
<li><a href="ch1.xhtml">Darian</a></li>
<li><a href="ch2.xhtml">Eating for Two<sup>12</sup></a></li>
<li><a href="ch3.xhtml">Meeting his BFF3</a></li>
<li><a href="notes.xhtml">Endnotes</a></li>
<li><a href="credits.xhtml">Credits</a></li>
</ol>
</nav>
</body>
</html>`

const testContentTOC = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title>Contents</title></head>
<body>
<div epub:type="toc" class="toc">
<h1><a href="intro.xhtml">Intro</a></h1>
<h1><a href="ch1.xhtml"><span class="t">Darian</span></a></h1>
<h1>No link here</h1>
<h1><a href="ch2.xhtml">Eating for Two12</a></h1>
<h1><a href="ch3.xhtml"><span class="t">Meeting his BFF3</span></a></h1>
<h1><a href="notes.xhtml">Endnotes</a></h1>
<h1><a href="credits.xhtml">Credits</a></h1>
</div>
</body>
</html>`

const testNotesXHTML = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title>Endnotes</title></head>
<body>
<div class="Basic-Text-Frame">
</div>
<a id="top"/>
<ol class="_idFootAndEndNoteOLAttrs">
<li><p><a class="_idEndnoteAnchor" href="ch2.xhtml#r1"><span>-1</span></a> First.</p></li>
<li><p><a class="_idEndnoteAnchor" href="ch2.xhtml#r2"><span>-1</span></a> Second.</p></li>
<li><p><a class="_idEndnoteAnchor" href="ch3.xhtml#r3"><span>-1</span></a> Third.</p></li>
</ol>
<div class="Basic-Text-Frame"><p>Kept</p></div>
</body>
</html>`

// testBook is a minimal ePub exercising every pass.
func testBook() map[string]string {
	return map[string]string{
		"mimetype":               "application/epub+zip",
		"META-INF/container.xml": testContainerXML,
		"OEBPS/content.opf":      `<?xml version="1.0"?><package version="3.0"/>`,
		"OEBPS/toc.ncx":          testNCX,
		"OEBPS/toc.xhtml":        testNavXHTML,
		"OEBPS/contents.xhtml":   testContentTOC,
		"OEBPS/notes.xhtml":      testNotesXHTML,
		"OEBPS/ch1.xhtml":        `<?xml version="1.0" encoding="UTF-8"?><html xmlns="http://www.w3.org/1999/xhtml"><head><title>Darian</title></head><body><p>Text.</p></body></html>`,
		"OEBPS/css/toc.css":      `body { margin: 0 }`,
		"OEBPS/images/cover.jpg": "\xff\xd8\xff\xe0binary",
	}
}
