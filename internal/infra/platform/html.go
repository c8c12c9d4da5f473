package platform

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// htmlToText returns the visible text of an HTML fragment with runs of
// whitespace collapsed to single spaces.
func htmlToText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
