package endnotefix

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// RemoveEmptyFrames deletes every <div> carrying cfg.TextFrameClass whose
// text content is blank after trimming, together with its subtree, and
// returns the number of frames removed.
//
// Emptiness looks at text only. A frame that holds nothing but an image
// counts as empty and is removed.
func RemoveEmptyFrames(doc *goquery.Document, cfg Config) int {
	cfg = cfg.withDefaults()
	count := 0
	doc.Find("div").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.HasClass(cfg.TextFrameClass)
	}).Each(func(_ int, div *goquery.Selection) {
		if strings.TrimSpace(div.Text()) != "" {
			return
		}
		div.Remove()
		count++
	})
	return count
}
