package endnotefix

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/beevik/etree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// entityNameToNumeric maps lowercase HTML entity names to their XML numeric
// character references. XML parsers do not recognise HTML named entities,
// so they are converted before navigation documents are parsed.
var entityNameToNumeric = map[string][]byte{
	"nbsp": []byte("&#160;"), "mdash": []byte("&#8212;"), "ndash": []byte("&#8211;"),
	"hellip": []byte("&#8230;"),
	"lsquo":  []byte("&#8216;"), "rsquo": []byte("&#8217;"),
	"ldquo": []byte("&#8220;"), "rdquo": []byte("&#8221;"),
	"copy": []byte("&#169;"), "reg": []byte("&#174;"), "trade": []byte("&#8482;"),
	"bull": []byte("&#8226;"), "middot": []byte("&#183;"),
	"eacute": []byte("&#233;"), "egrave": []byte("&#232;"),
	"ecirc": []byte("&#234;"), "euml": []byte("&#235;"),
	"aacute": []byte("&#225;"), "agrave": []byte("&#224;"),
	"acirc": []byte("&#226;"), "auml": []byte("&#228;"),
	"iacute": []byte("&#237;"), "igrave": []byte("&#236;"),
	"icirc": []byte("&#238;"), "iuml": []byte("&#239;"),
	"oacute": []byte("&#243;"), "ograve": []byte("&#242;"),
	"ocirc": []byte("&#244;"), "ouml": []byte("&#246;"),
	"uacute": []byte("&#250;"), "ugrave": []byte("&#249;"),
	"ucirc": []byte("&#251;"), "uuml": []byte("&#252;"),
	"ntilde": []byte("&#241;"), "ccedil": []byte("&#231;"),
	"times": []byte("&#215;"), "divide": []byte("&#247;"),
	"deg": []byte("&#176;"), "para": []byte("&#182;"), "sect": []byte("&#167;"),
	"laquo": []byte("&#171;"), "raquo": []byte("&#187;"),
	"iexcl": []byte("&#161;"), "iquest": []byte("&#191;"),
	"shy": []byte("&#173;"), "thinsp": []byte("&#8201;"), "ensp": []byte("&#8194;"),
	"emsp": []byte("&#8195;"), "zwj": []byte("&#8205;"), "zwnj": []byte("&#8204;"),
}

// htmlEntityPattern matches the HTML named entities above case-insensitively.
var htmlEntityPattern = regexp.MustCompile(
	`(?i)&(nbsp|mdash|ndash|hellip|lsquo|rsquo|ldquo|rdquo|copy|reg|trade|bull|middot|` +
		`eacute|egrave|ecirc|euml|aacute|agrave|acirc|auml|iacute|igrave|icirc|iuml|` +
		`oacute|ograve|ocirc|ouml|uacute|ugrave|ucirc|uuml|ntilde|ccedil|` +
		`times|divide|deg|para|sect|laquo|raquo|iexcl|iquest|` +
		`shy|thinsp|ensp|emsp|zwj|zwnj);`)

// preprocessHTMLEntities replaces common HTML named entities with their
// numeric character references so that an XML parser accepts the data.
func preprocessHTMLEntities(data []byte) []byte {
	return htmlEntityPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := strings.ToLower(string(match[1 : len(match)-1]))
		if replacement, ok := entityNameToNumeric[name]; ok {
			return replacement
		}
		return match
	})
}

// xmlDeclPattern matches a leading XML declaration and the line break after it.
var xmlDeclPattern = regexp.MustCompile(`^\s*<\?xml\s[^>]*\?>[ \t]*\r?\n?`)

// splitProlog separates the BOM and XML declaration from the markup. The
// HTML parser would turn the declaration into a bogus comment, so it is kept
// aside and written back verbatim.
func splitProlog(data []byte) (prolog, body []byte) {
	n := 0
	if hasBOM(data) {
		n = 3
	}
	if loc := xmlDeclPattern.FindIndex(data[n:]); loc != nil {
		n += loc[1]
	}
	return data[:n], data[n:]
}

// voidElements may legitimately self-close in HTML.
var voidElements = map[atom.Atom]bool{
	atom.Area: true, atom.Base: true, atom.Br: true, atom.Col: true,
	atom.Embed: true, atom.Hr: true, atom.Img: true, atom.Input: true,
	atom.Link: true, atom.Meta: true, atom.Param: true, atom.Source: true,
	atom.Track: true, atom.Wbr: true,
}

var selfClosingTagPattern = regexp.MustCompile(`<([A-Za-z][A-Za-z0-9:_-]*)((?:\s[^<>]*?)?)\s*/>`)

// normalizeSelfClosingTags expands XHTML-style <tag/> for non-void elements
// into <tag></tag>. The HTML parser ignores the slash, so an empty
// <a id="p12"/> would otherwise swallow the text that follows it.
func normalizeSelfClosingTags(data []byte) []byte {
	return selfClosingTagPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		sub := selfClosingTagPattern.FindSubmatch(match)
		name := string(sub[1])
		if voidElements[atom.Lookup(bytes.ToLower(sub[1]))] {
			return match
		}
		out := make([]byte, 0, len(match)+len(name)+3)
		out = append(out, '<')
		out = append(out, sub[1]...)
		out = append(out, sub[2]...)
		out = append(out, "></"...)
		out = append(out, name...)
		out = append(out, '>')
		return out
	})
}

// htmlDocument is a content document parsed for the HTML pass.
type htmlDocument struct {
	prolog []byte
	*goquery.Document
}

// parseHTMLDocument parses an HTML or XHTML content document with the
// tolerant HTML5 parser and wraps it for selection.
func parseHTMLDocument(data []byte) (*htmlDocument, error) {
	prolog, body := splitProlog(data)
	root, err := html.Parse(bytes.NewReader(normalizeSelfClosingTags(body)))
	if err != nil {
		return nil, fmt.Errorf("endnotefix: parse html: %w", err)
	}
	return &htmlDocument{
		prolog:   append([]byte(nil), prolog...),
		Document: goquery.NewDocumentFromNode(root),
	}, nil
}

// Bytes renders the document back to markup, prolog first.
func (d *htmlDocument) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(d.prolog)
	for _, n := range d.Nodes {
		if err := html.Render(&buf, n); err != nil {
			return nil, fmt.Errorf("endnotefix: render html: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// parseXMLDocument parses a navigation or XHTML document as XML. Element and
// attribute names keep their case (navMap, playOrder, epub:type), which the
// HTML parser would lowercase.
func parseXMLDocument(data []byte) (*etree.Document, bool, error) {
	bom := hasBOM(data)
	doc := etree.NewDocument()
	doc.ReadSettings.PreserveCData = true
	if err := doc.ReadFromBytes(preprocessHTMLEntities(stripBOM(data))); err != nil {
		return nil, false, fmt.Errorf("endnotefix: parse xml: %w", err)
	}
	return doc, bom, nil
}

// renderXMLDocument serializes doc, restoring a BOM if the source had one.
func renderXMLDocument(doc *etree.Document, bom bool) ([]byte, error) {
	data, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("endnotefix: render xml: %w", err)
	}
	if bom {
		data = append([]byte{0xEF, 0xBB, 0xBF}, data...)
	}
	return data, nil
}

// elementText returns the concatenated character data of e and all of its
// descendants, like the DOM textContent property.
func elementText(e *etree.Element) string {
	var sb strings.Builder
	for _, t := range e.Child {
		switch c := t.(type) {
		case *etree.CharData:
			sb.WriteString(c.Data)
		case *etree.Element:
			sb.WriteString(elementText(c))
		}
	}
	return sb.String()
}

// replaceElementText drops all children of e and leaves a single text node.
func replaceElementText(e *etree.Element, text string) {
	for len(e.Child) > 0 {
		e.RemoveChildAt(0)
	}
	e.SetText(text)
}

// hasEpubType checks whether e has an epub:type attribute containing the
// given token (space-separated token matching).
func hasEpubType(e *etree.Element, typeName string) bool {
	for _, t := range strings.Fields(e.SelectAttrValue("epub:type", "")) {
		if t == typeName {
			return true
		}
	}
	return false
}
