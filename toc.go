package endnotefix

import (
	"fmt"
	"regexp"

	"github.com/beevik/etree"
)

// trailingDigits matches endnote back-reference numbers left at the end of
// a chapter title, e.g. the "12" in "Eating for Two12".
var trailingDigits = regexp.MustCompile(`[0-9]+$`)

// stripEndRefNumbers removes a trailing run of decimal digits from s.
func stripEndRefNumbers(s string) string {
	return trailingDigits.ReplaceAllString(s, "")
}

type numberingState int

const (
	seeking numberingState = iota
	numbering
	done
)

// chapterNumberer is the state machine shared by the three table-of-contents
// walks. A fresh value is used for every walk.
type chapterNumberer struct {
	cfg   Config
	state numberingState
	count int
}

func newChapterNumberer(cfg Config) *chapterNumberer {
	return &chapterNumberer{cfg: cfg.withDefaults()}
}

// next feeds one entry label through the state machine. It returns the new
// label and whether the entry should be rewritten. Once the end marker has
// been seen, or the ordinal table is exhausted, Done reports true.
// Exhaustion is returned as ErrTooManyChapters.
func (c *chapterNumberer) next(text string) (string, bool, error) {
	if c.state == done {
		return text, false, nil
	}
	if text == c.cfg.EndMarker {
		c.state = done
		return text, false, nil
	}
	if c.state == seeking {
		if text != c.cfg.StartMarker {
			return text, false, nil
		}
		c.state = numbering
	}
	if c.count >= len(c.cfg.Ordinals) {
		c.state = done
		return text, false, fmt.Errorf("%w: entry %q is chapter %d, only %d ordinals",
			ErrTooManyChapters, text, c.count+1, len(c.cfg.Ordinals))
	}
	label := stripEndRefNumbers(c.cfg.Ordinals[c.count] + " " + text)
	c.count++
	return label, true, nil
}

// Done reports whether the walk should stop.
func (c *chapterNumberer) Done() bool { return c.state == done }

// RenumberLabels applies the chapter numbering state machine to a plain
// sequence of labels and returns the rewritten copy and the number of
// chapters numbered. On ErrTooManyChapters the labels numbered so far are
// kept and the rest are returned unchanged.
func RenumberLabels(labels []string, cfg Config) ([]string, int, error) {
	out := append([]string(nil), labels...)
	c := newChapterNumberer(cfg)
	for i, text := range out {
		label, ok, err := c.next(text)
		if err != nil {
			return out, c.count, err
		}
		if ok {
			out[i] = label
		}
		if c.Done() {
			break
		}
	}
	return out, c.count, nil
}

// renumberElements runs the state machine over label elements in order,
// rewriting each numbered label in place.
func renumberElements(labels []*etree.Element, cfg Config) (int, error) {
	c := newChapterNumberer(cfg)
	for _, e := range labels {
		label, ok, err := c.next(elementText(e))
		if err != nil {
			return c.count, err
		}
		if ok {
			replaceElementText(e, label)
		}
		if c.Done() {
			break
		}
	}
	return c.count, nil
}

// RenumberNCX numbers the navPoint labels of an NCX navigation map.
// Labels are the navLabel/text of each navPoint inside a navMap, visited in
// document order (nested navPoints follow their parent).
func RenumberNCX(doc *etree.Document, cfg Config) (int, error) {
	var labels []*etree.Element
	for _, navMap := range collectElements(doc.Root(), "navMap", "") {
		for _, np := range collectElements(navMap, "navPoint", "navMap") {
			if text := np.FindElement("navLabel/text"); text != nil {
				labels = append(labels, text)
			}
		}
	}
	return renumberElements(labels, cfg)
}

// RenumberNavList numbers the entries of an XHTML navigation list. Every
// <li> inside an <ol> is visited once, in document order, and its first
// descendant <a> is the label. Items without an anchor are skipped.
func RenumberNavList(doc *etree.Document, cfg Config) (int, error) {
	var labels []*etree.Element
	for _, li := range collectElements(doc.Root(), "li", "ol") {
		if a := li.FindElement(".//a"); a != nil {
			labels = append(labels, a)
		}
	}
	return renumberElements(labels, cfg)
}

// RenumberContentTOC numbers the headings of an in-content table of contents:
// the <h1> elements of every <div> whose epub:type contains "toc". The label
// is the heading's first <a>, or the first <span> inside that anchor when the
// title is wrapped in one.
func RenumberContentTOC(doc *etree.Document, cfg Config) (int, error) {
	var labels []*etree.Element
	for _, div := range tocDivs(doc.Root()) {
		for _, h1 := range collectElements(div, "h1", "") {
			a := h1.FindElement(".//a")
			if a == nil {
				continue
			}
			if span := a.FindElement(".//span"); span != nil {
				a = span
			}
			labels = append(labels, a)
		}
	}
	return renumberElements(labels, cfg)
}

// tocDivs returns the outermost <div> elements below root whose epub:type
// contains "toc". A toc div nested in another is covered by its parent's
// heading walk and is not returned again.
func tocDivs(root *etree.Element) []*etree.Element {
	if root == nil {
		return nil
	}
	var out []*etree.Element
	var walk func(e *etree.Element)
	walk = func(e *etree.Element) {
		for _, c := range e.ChildElements() {
			if c.Tag == "div" && hasEpubType(c, "toc") {
				out = append(out, c)
				continue
			}
			walk(c)
		}
	}
	walk(root)
	return out
}

// collectElements returns the descendants of root with the given local tag
// name, in document order. When within is set, only elements that have an
// ancestor named within (below root) are returned. Nested matches are
// included after their enclosing match, each element exactly once.
func collectElements(root *etree.Element, tag, within string) []*etree.Element {
	if root == nil {
		return nil
	}
	var out []*etree.Element
	var walk func(e *etree.Element, inside bool)
	walk = func(e *etree.Element, inside bool) {
		for _, c := range e.ChildElements() {
			if c.Tag == tag && (within == "" || inside) {
				out = append(out, c)
			}
			walk(c, inside || c.Tag == within)
		}
	}
	walk(root, within == "" || root.Tag == within)
	return out
}
