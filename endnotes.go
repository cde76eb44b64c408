package endnotefix

import (
	"strconv"

	"github.com/PuerkitoBio/goquery"
)

// FixEndnotes numbers endnote labels that still carry the placeholder.
//
// For every ordered list, each <li> child is given its 1-based position among
// the list's items. If the item holds an anchor with cfg.EndnoteAnchorClass
// and the first <span> in that anchor reads exactly cfg.Placeholder, the span
// text is replaced by the position. Labels that already hold a number are
// left alone. Nested lists are numbered on their own. It returns the number
// of labels replaced.
func FixEndnotes(doc *goquery.Document, cfg Config) int {
	cfg = cfg.withDefaults()
	count := 0
	doc.Find("ol").Each(func(_ int, ol *goquery.Selection) {
		ol.ChildrenFiltered("li").Each(func(i int, li *goquery.Selection) {
			anchor := li.Find("a").FilterFunction(func(_ int, a *goquery.Selection) bool {
				return a.HasClass(cfg.EndnoteAnchorClass)
			}).First()
			if anchor.Length() == 0 {
				return
			}
			span := anchor.Find("span").First()
			if span.Length() == 0 || span.Text() != cfg.Placeholder {
				return
			}
			span.SetText(strconv.Itoa(i + 1))
			count++
		})
	})
	return count
}
